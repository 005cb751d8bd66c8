package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"

	"stockroom/internal/config"
	"stockroom/internal/repos"
	"stockroom/internal/services"
)

type Deps struct {
	Products *repos.ProductStore

	CatalogHandler *CatalogHandler
	OrderHandler   *OrderHandler
	IntakeHandler  *IntakeHandler
}

func NewDeps(db *sqlx.DB, cfg config.Config) *Deps {
	products := repos.NewProductStore(cfg.ProductsFile)
	images := repos.NewImageStore(cfg.ImagesDir)
	orderRepo := repos.NewOrderRepo(db)
	seqRepo := repos.NewSequenceRepo(db)

	catalogSvc := services.NewCatalogService(products, images)
	orderSvc := services.NewOrderService(products, orderRepo)
	intakeSvc := services.NewIntakeService(products, images, seqRepo)

	return &Deps{
		Products:       products,
		CatalogHandler: &CatalogHandler{Catalog: catalogSvc},
		OrderHandler:   &OrderHandler{Catalog: catalogSvc, Order: orderSvc},
		IntakeHandler:  &IntakeHandler{Intake: intakeSvc},
	}
}

// Routes mounts the pages and the JSON API. Middlewares are the caller's.
func Routes(app fiber.Router, d *Deps) {
	app.Get("/", d.CatalogHandler.Stock)
	app.Get("/images/*", d.CatalogHandler.Image)
	app.Post("/catalog/reload", d.CatalogHandler.Reload)

	app.Get("/order", d.OrderHandler.Form)
	app.Post("/order/quote", d.OrderHandler.Quote)
	app.Post("/order/confirm", d.OrderHandler.Confirm)
	app.Get("/orders", d.OrderHandler.History)
	app.Get("/orders/:id", d.OrderHandler.View)

	app.Get("/products/new", d.IntakeHandler.Form)
	app.Post("/products", d.IntakeHandler.Create)

	api := app.Group("/api/v1")
	api.Get("/products", d.CatalogHandler.APIList)
	api.Get("/products/:id/availability", d.CatalogHandler.APIAvailability)
	api.Post("/orders", d.OrderHandler.APIConfirm)
}
