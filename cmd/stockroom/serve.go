package main

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/urfave/cli/v2"

	"stockroom/internal/config"
	"stockroom/internal/domain"
	"stockroom/internal/http/handlers"
	applog "stockroom/internal/log"
	"stockroom/internal/repos"
)

func serve(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if p := c.String("port"); p != "" {
		cfg.Port = p
	}

	// Optional file logging
	out := io.Writer(os.Stdout)
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			applog.Warn(nil, "logfile.open.fail", err, map[string]any{"path": cfg.LogFile})
		} else {
			defer f.Close()
			out = io.MultiWriter(os.Stdout, f)
			applog.SetOutput(out)
		}
	}

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		return err
	}
	defer db.Close()
	deps := handlers.NewDeps(db, cfg)

	// First load fills the catalog cache. A missing file is reported on the
	// pages instead of stopping the server; intake creates it.
	if err := deps.Products.Initialize(); err != nil {
		if !domain.IsNotFound(err) {
			return err
		}
		applog.Warn(nil, "catalog.init.missing", err, map[string]any{"path": cfg.ProductsFile})
	}

	app := newServer(cfg, deps, out)
	applog.Info(nil, "server.start", map[string]any{"port": cfg.Port})
	return app.Listen(":" + cfg.Port)
}

func newServer(cfg config.Config, deps *handlers.Deps, accessLog io.Writer) *fiber.App {
	app := fiber.New(fiber.Config{
		Views:     handlers.NewViews(cfg.TemplatesDir),
		BodyLimit: cfg.MaxUploadMB << 20,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Error(c, "server.error", err, nil)
			// Avoid leaking internals; best-effort render
			if rerr := c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{
				"Message": "Terjadi kesalahan. Silakan coba lagi.",
			}); rerr != nil {
				return c.Status(fiber.StatusInternalServerError).SendString("Terjadi kesalahan. Silakan coba lagi.")
			}
			return nil
		},
	})

	// ---------- Middlewares ----------
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{Output: accessLog}))
	app.Use(helmet.New())
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/images/")
		},
	}))
	app.Use(csrf.New(csrf.Config{
		KeyLookup:      "form:csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		CookieSecure:   false, // set true behind HTTPS
		ContextKey:     "csrf",
		Next: func(c *fiber.Ctx) bool {
			// JSON clients use Idempotency-Key instead of form tokens
			return strings.HasPrefix(c.Path(), "/api/")
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Security(c, "csrf.fail", nil)
			return c.Status(fiber.StatusForbidden).Render("notfound", fiber.Map{"Message": "Pemeriksaan keamanan gagal. Muat ulang halaman dan coba lagi."})
		},
	}))
	app.Use(func(c *fiber.Ctx) error {
		if tok, ok := c.Locals("csrf").(string); ok {
			c.Locals("CSRFToken", tok)
		}
		return c.Next()
	})

	// ---------- Static assets ----------
	app.Static("/static", cfg.StaticDir)

	// ---------- App handlers ----------
	handlers.Routes(app, deps)

	// Health & 404
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(404).Render("notfound", fiber.Map{"Message": "Halaman tidak ditemukan"})
	})
	return app
}
