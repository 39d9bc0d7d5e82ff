package main

import (
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	html "github.com/gofiber/template/html/v2"

	"foodshare/internal/config"
	"foodshare/internal/http/handlers"
	applog "foodshare/internal/log"
	"foodshare/internal/media"
	"foodshare/internal/payment"
	"foodshare/internal/repos"
	"foodshare/internal/services"
)

func main() {
	cfg := config.Load()
	applog.Setup(cfg.LogFile)

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}

	// Auth wiring
	userRepo := repos.NewUserRepo(db)
	authSvc := &services.AuthService{Users: userRepo}
	authH := &handlers.AuthHandler{Auth: authSvc}

	uploader := media.NewUploader(cfg)
	verifier, err := payment.NewVerifier(cfg)
	if err != nil {
		log.Fatal(err)
	}

	// Templates & app
	engine := html.New("./web/templates", ".html")
	engine.Reload(true)

	app := fiber.New(fiber.Config{
		Views: engine,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Log and show a friendly message
			applog.Error(c, "server.error", err, nil)
			// Avoid leaking internals; best-effort render
			if rerr := c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{
				"Message": "Something went wrong. Please try again.",
			}); rerr != nil {
				return c.Status(fiber.StatusInternalServerError).SendString("Something went wrong. Please try again.")
			}
			return nil
		},
	})
	// Image selections arrive as multipart bodies; allow a few photos per post.
	app.Server().MaxRequestBodySize = 25 << 20

	// ---------- Middlewares ----------
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(helmet.New())
	// Attach user to context if logged in (for templates/headers)
	app.Use(func(c *fiber.Ctx) error {
		if sid := c.Cookies("sid"); sid != "" {
			if u, err := authSvc.CurrentUser(sid); err == nil && u != nil {
				c.Locals("user", u)
			}
		}
		return c.Next()
	})
	app.Use(limiter.New(limiter.Config{
		Max:        60,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			p := string(c.Request().URI().Path())
			return strings.HasPrefix(p, "/static/") || strings.HasPrefix(p, "/previews/")
		},
	}))
	app.Use(csrf.New(csrf.Config{
		KeyLookup:      "form:csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		CookieSecure:   false, // set true behind HTTPS
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/api/v1/")
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			formTok := c.FormValue("csrf")
			applog.Security(c, "csrf.fail", map[string]any{"form": formTok})
			return c.Status(fiber.StatusForbidden).Render("notfound", fiber.Map{"Message": "Security check failed. Please refresh and try again."})
		},
	}))
	app.Use(func(c *fiber.Ctx) error {
		if tok := c.Locals("csrf"); tok != nil {
			c.Locals("CSRFToken", tok.(string))
		}
		return c.Next()
	})

	// ---------- Static assets ----------
	app.Static("/static", "./web/static")

	// ---------- App handlers ----------
	deps := handlers.NewDeps(db, cfg, authSvc, uploader, verifier)
	requireUser := handlers.RequireUser(authSvc)

	// Public pages
	app.Get("/", deps.CatalogHandler.Home)
	app.Get("/search", limiter.New(limiter.Config{Max: 20, Expiration: time.Minute}), deps.SearchHandler.Search)
	app.Get("/category/:id", deps.CatalogHandler.Browse)

	// Listing pages
	app.Get("/listing", func(c *fiber.Ctx) error {
		return c.Status(404).Render("notfound", fiber.Map{"Message": "This listing is no longer available"})
	})
	app.Get("/listing/:id", deps.ListingHandler.Detail)

	// Listing editor (owner only)
	app.Get("/listings/new", requireUser, deps.ListingHandler.NewForm)
	app.Post("/listings/new", requireUser, deps.ListingHandler.Create)
	app.Get("/listings/:id/edit", requireUser, deps.ListingHandler.EditForm)
	app.Post("/listings/:id/edit", requireUser, deps.ListingHandler.Update)
	app.Post("/listings/images", requireUser, deps.ListingHandler.UploadImages)
	app.Post("/listings/images/remove", requireUser, deps.ListingHandler.RemoveImage)
	app.Get("/previews/listing/:target/:id", requireUser, deps.ListingHandler.Preview)
	app.Get("/my/listings", requireUser, deps.ListingHandler.MyListings)
	app.Post("/listings/:id/availability", requireUser, deps.ListingHandler.SetAvailability)
	app.Post("/listings/:id/delete", requireUser, deps.ListingHandler.Delete)

	// Saved listings (session-scoped, like a wishlist)
	app.Get("/saved", deps.SavedHandler.List)
	app.Post("/saved", deps.SavedHandler.Save)
	app.Post("/saved/delete", deps.SavedHandler.Unsave)

	// Profile completion
	app.Get("/profile/location", requireUser, deps.ProfileHandler.LocationForm)
	app.Post("/profile/location", requireUser, deps.ProfileHandler.SetLocation)

	// Account upgrade wizard
	app.Get("/upgrade", requireUser, deps.UpgradeHandler.Show)
	app.Post("/upgrade/info", requireUser, deps.UpgradeHandler.SubmitInfo)
	app.Post("/upgrade/back", requireUser, deps.UpgradeHandler.Back)
	app.Post("/upgrade/images", requireUser, deps.UpgradeHandler.AddImages)
	app.Post("/upgrade/images/remove", requireUser, deps.UpgradeHandler.RemoveImage)
	app.Post("/upgrade/images/submit", requireUser, deps.UpgradeHandler.SubmitImages)
	app.Get("/previews/upgrade/:role/:id", requireUser, deps.UpgradeHandler.Preview)
	app.Post("/upgrade/payment/method", requireUser, deps.UpgradeHandler.SelectMethod)
	app.Post("/upgrade/payment/confirm", requireUser, deps.UpgradeHandler.ConfirmPaid)
	app.Post("/upgrade/payment/cancel", requireUser, deps.UpgradeHandler.CancelPayment)
	app.Post("/upgrade/discard", requireUser, deps.UpgradeHandler.Discard)

	// API
	api := app.Group("/api/v1", requireUser)
	api.Get("/uploads/progress", deps.ListingHandler.UploadProgress)
	api.Get("/upgrade/payment", deps.UpgradeHandler.PaymentStatus)

	// Auth routes (login throttled)
	app.Get("/login", authH.LoginForm)
	app.Post("/login", limiter.New(limiter.Config{
		Max:        5,
		Expiration: 10 * time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.login.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).Render("login", fiber.Map{"Err": "Too many attempts. Please try again later."})
		},
	}), authH.Login)
	app.Post("/logout", authH.Logout)

	// Health & 404
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(404).Render("notfound", fiber.Map{"Message": "Page not found"})
	})

	log.Fatal(app.Listen(":" + cfg.Port))
}
