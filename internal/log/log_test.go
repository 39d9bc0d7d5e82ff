package log

import (
	"bytes"
	stdlog "log"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"foodshare/internal/domain"
)

func TestSetupAddsFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	Setup(path)
	defer stdlog.SetOutput(os.Stderr)

	Info(nil, "sink.check", map[string]any{"k": "v"})

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("file sink not written: %v", err)
	}
	if !strings.Contains(string(b), `"action":"sink.check"`) {
		t.Fatalf("entry missing from file sink: %s", b)
	}
}

func TestEntriesCarrySignedInUser(t *testing.T) {
	var buf bytes.Buffer
	stdlog.SetOutput(&buf)
	defer stdlog.SetOutput(os.Stderr)

	app := fiber.New()
	app.Get("/x", func(c *fiber.Ctx) error {
		c.Locals("user", &domain.User{ID: "u-alice"})
		Audit(c, "user.check", nil)
		return c.SendString("ok")
	})
	if _, err := app.Test(httptest.NewRequest("GET", "/x", nil)); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	if !strings.Contains(out, `"user_id":"u-alice"`) {
		t.Fatalf("entry not enriched with user id: %s", out)
	}
	if !strings.Contains(out, `"level":"audit"`) {
		t.Fatalf("level missing: %s", out)
	}
}
