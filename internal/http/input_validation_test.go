package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestSearchRejectsHostileQuery(t *testing.T) {
	app, _ := newTestApp(t)

	bad := []string{
		`<script>alert(1)</script>`,
		`%27%20OR%201=1--`,
		strings.Repeat("a", 51) + "!",
	}
	for _, q := range bad {
		resp, err := app.Test(httptest.NewRequest("GET", "/search?q="+url.QueryEscape(q), nil))
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("q=%q: expected 400, got %d", q, resp.StatusCode)
		}
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/search?q=bread", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for a plain keyword, got %d", resp.StatusCode)
	}
}

func TestListingDetailRejectsBadID(t *testing.T) {
	app, _ := newTestApp(t)

	for _, id := range []string{"..%2F..%2Fetc", "a%20b", "nosuch"} {
		resp, err := app.Test(httptest.NewRequest("GET", "/listing/"+id, nil))
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("id=%q: expected 404, got %d", id, resp.StatusCode)
		}
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/listing/lst-sourdough", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for seeded listing, got %d", resp.StatusCode)
	}
}

func TestSaveRejectsBadListingID(t *testing.T) {
	app, _ := newTestApp(t)

	form := strings.NewReader("listing_id=" + url.QueryEscape("1; DROP TABLE listings"))
	req := httptest.NewRequest("POST", "/saved", form)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
