package handlers_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// An unparsable or negative price must come back as an inline form
// error, not be silently treated as "no price".
func TestCreateListingRejectsBadPrice(t *testing.T) {
	app, db := newTestApp(t)
	cookie := signIn(t, db, "u-alice")

	for _, price := range []string{"not-a-number", "-5"} {
		form := strings.NewReader("title=Fresh+Bread&description=Baked+today&category=bread-bakery" +
			"&quantity=2+loaves&expiry_date=2099-01-01&price=" + price)
		req := httptest.NewRequest("POST", "/listings/new", form)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.AddCookie(cookie)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("price=%q: expected the form back, got %d", price, resp.StatusCode)
		}
		body, _ := io.ReadAll(resp.Body)
		if !strings.Contains(string(body), "Enter a valid price") {
			t.Fatalf("price=%q: inline price error missing: %.200s", price, body)
		}
	}

	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM listings WHERE title='Fresh Bread'`); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatal("a draft with a bad price reached the store")
	}
}
