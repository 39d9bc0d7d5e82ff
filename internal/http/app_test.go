package handlers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	html "github.com/gofiber/template/html/v2"
	"github.com/jmoiron/sqlx"

	"foodshare/internal/config"
	"foodshare/internal/http/handlers"
	"foodshare/internal/media"
	"foodshare/internal/payment"
	"foodshare/internal/repos"
	"foodshare/internal/services"
)

// newTestApp builds the full route surface against an in-memory store,
// without the CSRF and limiter layers so tests can post forms directly.
func newTestApp(t *testing.T) (*fiber.App, *sqlx.DB) {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	cfg := config.Config{
		PreviewDir:   t.TempDir(),
		PaymentMode:  "simulated",
		PaymentDelay: 10 * time.Millisecond,
	}
	userRepo := repos.NewUserRepo(db)
	authSvc := &services.AuthService{Users: userRepo}
	uploader := media.NewUploader(cfg)
	verifier, err := payment.NewVerifier(cfg)
	if err != nil {
		t.Fatalf("verifier: %v", err)
	}

	engine := html.New("../../web/templates", ".html")
	app := fiber.New(fiber.Config{Views: engine})
	app.Use(func(c *fiber.Ctx) error {
		if sid := c.Cookies("sid"); sid != "" {
			if u, err := authSvc.CurrentUser(sid); err == nil && u != nil {
				c.Locals("user", u)
			}
		}
		return c.Next()
	})

	deps := handlers.NewDeps(db, cfg, authSvc, uploader, verifier)
	requireUser := handlers.RequireUser(authSvc)

	app.Get("/", deps.CatalogHandler.Home)
	app.Get("/search", deps.SearchHandler.Search)
	app.Get("/category/:id", deps.CatalogHandler.Browse)
	app.Get("/listing/:id", deps.ListingHandler.Detail)
	app.Get("/listings/new", requireUser, deps.ListingHandler.NewForm)
	app.Post("/listings/new", requireUser, deps.ListingHandler.Create)
	app.Get("/listings/:id/edit", requireUser, deps.ListingHandler.EditForm)
	app.Post("/listings/:id/edit", requireUser, deps.ListingHandler.Update)
	app.Get("/my/listings", requireUser, deps.ListingHandler.MyListings)
	app.Post("/listings/:id/availability", requireUser, deps.ListingHandler.SetAvailability)
	app.Post("/listings/:id/delete", requireUser, deps.ListingHandler.Delete)
	app.Get("/saved", deps.SavedHandler.List)
	app.Post("/saved", deps.SavedHandler.Save)
	app.Post("/saved/delete", deps.SavedHandler.Unsave)
	app.Get("/profile/location", requireUser, deps.ProfileHandler.LocationForm)
	app.Post("/profile/location", requireUser, deps.ProfileHandler.SetLocation)
	app.Get("/upgrade", requireUser, deps.UpgradeHandler.Show)
	app.Post("/upgrade/info", requireUser, deps.UpgradeHandler.SubmitInfo)
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(404).Render("notfound", fiber.Map{"Message": "Page not found"})
	})
	return app, db
}

// signIn binds a session for a seeded user and returns the cookie to
// attach to requests.
func signIn(t *testing.T, db *sqlx.DB, userID string) *http.Cookie {
	t.Helper()
	sid := "sid-" + userID
	if err := repos.NewUserRepo(db).BindSession(sid, userID); err != nil {
		t.Fatalf("bind session: %v", err)
	}
	return &http.Cookie{Name: "sid", Value: sid}
}
