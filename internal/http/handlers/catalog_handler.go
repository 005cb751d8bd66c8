package handlers

import (
	"github.com/gofiber/fiber/v2"

	"stockroom/internal/domain"
	applog "stockroom/internal/log"
	"stockroom/internal/services"
	"stockroom/internal/validate"
)

type CatalogHandler struct {
	Catalog *services.CatalogService
}

// GET /
func (h *CatalogHandler) Stock(c *fiber.Ctx) error {
	products, err := h.Catalog.List()
	if err != nil {
		return fail(c, "catalog.list.fail", err, nil)
	}
	return render(c, "stock", fiber.Map{"Products": products})
}

// POST /catalog/reload
func (h *CatalogHandler) Reload(c *fiber.Ctx) error {
	if err := h.Catalog.Reload(); err != nil {
		return fail(c, "catalog.reload.fail", err, nil)
	}
	applog.Audit(c, "catalog.reload", nil)
	return c.Redirect("/")
}

// GET /images/*
func (h *CatalogHandler) Image(c *fiber.Ctx) error {
	ref := c.Params("*")
	full, err := h.Catalog.ImagePath(ref)
	if err != nil {
		if domain.IsNotFound(err) {
			applog.Security(c, "image.miss", map[string]any{"path": ref})
			return c.SendStatus(fiber.StatusNotFound)
		}
		return err
	}
	return c.SendFile(full, true)
}

// GET /api/v1/products
func (h *CatalogHandler) APIList(c *fiber.Ctx) error {
	products, err := h.Catalog.List()
	if err != nil {
		return failJSON(c, "api.catalog.list.fail", err, nil)
	}
	return c.JSON(fiber.Map{"products": products})
}

// GET /api/v1/products/:id/availability
func (h *CatalogHandler) APIAvailability(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid product id"})
	}
	avail, err := h.Catalog.Availability(id)
	if err != nil {
		return failJSON(c, "api.availability.fail", err, map[string]any{"product_id": id})
	}
	return c.JSON(avail)
}
