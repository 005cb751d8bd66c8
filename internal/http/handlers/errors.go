package handlers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"stockroom/internal/domain"
	applog "stockroom/internal/log"
)

const genericMessage = "Terjadi kesalahan. Silakan coba lagi."

// classify maps a service error to a status code and a message safe to show.
func classify(err error) (int, string) {
	var (
		stock *domain.InsufficientStockError
		store *domain.StorageError
		inval *domain.ValidationError
		nf    *domain.NotFoundError
	)
	switch {
	case errors.As(err, &stock):
		return fiber.StatusConflict, fmt.Sprintf("Stok %s tidak cukup: diminta %d, tersedia %d.", stock.Name, stock.Requested, stock.Available)
	case errors.As(err, &store):
		if errors.As(err, &inval) {
			return fiber.StatusInternalServerError, "Data produk rusak: " + inval.Field + " " + inval.Reason + "."
		}
		return fiber.StatusInternalServerError, genericMessage
	case errors.As(err, &inval):
		return fiber.StatusBadRequest, "Input tidak valid: " + inval.Field + " " + inval.Reason + "."
	case errors.As(err, &nf):
		if nf.Resource == "product store" {
			return fiber.StatusNotFound, "Data produk tidak ditemukan."
		}
		if nf.Key != "" {
			return fiber.StatusNotFound, fmt.Sprintf("Tidak ditemukan (%s): %s", nf.Resource, nf.Key)
		}
		return fiber.StatusNotFound, fmt.Sprintf("Tidak ditemukan: %s", nf.Resource)
	default:
		return fiber.StatusInternalServerError, genericMessage
	}
}

// fail logs err and renders the message page.
func fail(c *fiber.Ctx, action string, err error, fields map[string]any) error {
	code, msg := classify(err)
	if code >= fiber.StatusInternalServerError {
		applog.Error(c, action, err, fields)
	} else {
		applog.Warn(c, action, err, fields)
	}
	return c.Status(code).Render("notfound", fiber.Map{"Message": msg})
}

// failJSON is fail for the JSON API.
func failJSON(c *fiber.Ctx, action string, err error, fields map[string]any) error {
	code, msg := classify(err)
	if code >= fiber.StatusInternalServerError {
		applog.Error(c, action, err, fields)
	} else {
		applog.Warn(c, action, err, fields)
	}
	return c.Status(code).JSON(fiber.Map{"error": msg})
}
