package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"stockroom/internal/domain"
	applog "stockroom/internal/log"
	"stockroom/internal/services"
	"stockroom/internal/validate"
)

type OrderHandler struct {
	Catalog *services.CatalogService
	Order   *services.OrderService
}

func qtyField(id int) string { return fmt.Sprintf("qty_%d", id) }

// GET /order
func (h *OrderHandler) Form(c *fiber.Ctx) error {
	products, err := h.Catalog.List()
	if err != nil {
		return fail(c, "order.form.fail", err, nil)
	}
	return render(c, "order", fiber.Map{"Products": products, "Key": uuid.NewString()})
}

// POST /order/quote
func (h *OrderHandler) Quote(c *fiber.Ctx) error {
	key, ok := validate.Key(c.FormValue("key"))
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "key"})
		return c.Status(fiber.StatusBadRequest).Render("notfound", fiber.Map{"Message": "Formulir pesanan kedaluwarsa. Silakan muat ulang."})
	}
	products, err := h.Catalog.List()
	if err != nil {
		return fail(c, "order.quote.fail", err, nil)
	}
	// the form clamps each quantity to [0, stock]
	quantities := make(map[int]int, len(products))
	for _, p := range products {
		if q := validate.Qty(c.FormValue(qtyField(p.ID)), p.Stock); q > 0 {
			quantities[p.ID] = q
		}
	}
	order, err := h.Order.Quote(quantities)
	if err != nil {
		code, msg := classify(err)
		applog.Warn(c, "order.quote.reject", err, nil)
		return c.Status(code).Render("order", withToken(c, fiber.Map{"Products": products, "Key": key, "Err": msg}))
	}
	return render(c, "order_summary", fiber.Map{"Order": order, "Key": key})
}

// POST /order/confirm
func (h *OrderHandler) Confirm(c *fiber.Ctx) error {
	key, ok := validate.Key(c.FormValue("key"))
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "key"})
		return c.Status(fiber.StatusBadRequest).Render("notfound", fiber.Map{"Message": "Formulir pesanan kedaluwarsa. Silakan muat ulang."})
	}
	products, err := h.Catalog.List()
	if err != nil {
		return fail(c, "order.confirm.fail", err, nil)
	}
	// quantities are re-validated against live stock by the service, not clamped here
	quantities := make(map[int]int)
	for _, p := range products {
		raw := c.FormValue(qtyField(p.ID))
		if raw == "" {
			continue
		}
		q, ok := validate.Count(raw)
		if !ok {
			applog.Security(c, "validation.fail", map[string]any{"field": qtyField(p.ID)})
			return c.Status(fiber.StatusBadRequest).Render("notfound", fiber.Map{"Message": "Jumlah pesanan tidak valid."})
		}
		if q > 0 {
			quantities[p.ID] = q
		}
	}

	rec, err := h.Order.Confirm(key, quantities)
	if err != nil {
		return fail(c, "order.confirm.fail", err, map[string]any{"key": key})
	}
	if rec.Replayed {
		applog.Audit(c, "order.replay", map[string]any{"order_id": rec.ID, "key": key})
	} else {
		applog.Audit(c, "order.confirm", map[string]any{"order_id": rec.ID, "key": key, "total": rec.Total, "lines": len(rec.Lines)})
	}
	return c.Redirect("/orders/" + rec.ID)
}

// GET /orders
func (h *OrderHandler) History(c *fiber.Ctx) error {
	orders, err := h.Order.History(100)
	if err != nil {
		return fail(c, "orders.history.fail", err, nil)
	}
	return render(c, "orders", fiber.Map{"Orders": orders})
}

// GET /orders/:id
func (h *OrderHandler) View(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).Render("notfound", fiber.Map{"Message": "Pesanan tidak ditemukan"})
	}
	rec, err := h.Order.Receipt(id.String())
	if err != nil {
		if domain.IsNotFound(err) {
			return c.Status(fiber.StatusNotFound).Render("notfound", fiber.Map{"Message": "Pesanan tidak ditemukan"})
		}
		return fail(c, "orders.view.fail", err, map[string]any{"order_id": id.String()})
	}
	return render(c, "receipt", fiber.Map{"Receipt": rec})
}

type apiOrderRequest struct {
	Lines []domain.CartLine `json:"lines"`
}

// POST /api/v1/orders (Idempotency-Key header required)
func (h *OrderHandler) APIConfirm(c *fiber.Ctx) error {
	key, ok := validate.Key(c.Get("Idempotency-Key"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Idempotency-Key header must be a UUID"})
	}
	var req apiOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON body"})
	}
	quantities := make(map[int]int, len(req.Lines))
	for _, l := range req.Lines {
		// negatives are rejected per line, before lines for one product are summed
		if l.Quantity < 0 {
			err := &domain.ValidationError{Field: fmt.Sprintf("quantity[%d]", l.ProductID), Reason: "negative"}
			return failJSON(c, "api.order.confirm.reject", err, map[string]any{"key": key})
		}
		quantities[l.ProductID] += l.Quantity
	}

	rec, err := h.Order.Confirm(key, quantities)
	if err != nil {
		return failJSON(c, "api.order.confirm.fail", err, map[string]any{"key": key})
	}
	if rec.Replayed {
		applog.Audit(c, "order.replay", map[string]any{"order_id": rec.ID, "key": key})
		return c.JSON(rec)
	}
	applog.Audit(c, "order.confirm", map[string]any{"order_id": rec.ID, "key": key, "total": rec.Total, "lines": len(rec.Lines)})
	return c.Status(fiber.StatusCreated).JSON(rec)
}
