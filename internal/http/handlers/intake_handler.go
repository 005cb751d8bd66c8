package handlers

import (
	"io"

	"github.com/gofiber/fiber/v2"

	applog "stockroom/internal/log"
	"stockroom/internal/services"
	"stockroom/internal/validate"
)

type IntakeHandler struct {
	Intake *services.IntakeService
}

// GET /products/new
func (h *IntakeHandler) Form(c *fiber.Ctx) error {
	return render(c, "intake", fiber.Map{})
}

// POST /products (multipart)
func (h *IntakeHandler) Create(c *fiber.Ctx) error {
	in := services.NewProduct{Name: c.FormValue("name")}
	form := fiber.Map{"Name": in.Name, "Price": c.FormValue("price"), "Stock": c.FormValue("stock")}

	var ok bool
	if in.Price, ok = validate.Price(c.FormValue("price")); !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "price"})
		form["Err"] = "Harga produk harus berupa angka ≥ 0."
		return c.Status(fiber.StatusBadRequest).Render("intake", withToken(c, form))
	}
	if in.Stock, ok = validate.Count(c.FormValue("stock")); !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "stock"})
		form["Err"] = "Stok produk harus berupa angka ≥ 0."
		return c.Status(fiber.StatusBadRequest).Render("intake", withToken(c, form))
	}

	// a missing file is left for the service to reject
	if fh, err := c.FormFile("image"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return fail(c, "product.create.fail", err, nil)
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return fail(c, "product.create.fail", err, nil)
		}
		in.ImageName = fh.Filename
		in.Image = data
	}

	p, err := h.Intake.Add(in)
	if err != nil {
		code, msg := classify(err)
		if code >= fiber.StatusInternalServerError {
			applog.Error(c, "product.create.fail", err, map[string]any{"name": in.Name})
		} else {
			applog.Warn(c, "product.create.reject", err, map[string]any{"name": in.Name})
		}
		if code == fiber.StatusBadRequest {
			msg = "Harap lengkapi data produk. " + msg
		}
		form["Err"] = msg
		return c.Status(code).Render("intake", withToken(c, form))
	}

	applog.Audit(c, "product.create", map[string]any{"product_id": p.ID, "name": p.Name, "price": p.Price, "stock": p.Stock, "image": p.Image})
	return render(c, "intake", fiber.Map{"Success": "Produk berhasil ditambahkan!", "Product": p})
}

func withToken(c *fiber.Ctx, data fiber.Map) fiber.Map {
	if tok, _ := c.Locals("CSRFToken").(string); tok != "" {
		data["CSRFToken"] = tok
	} else if tok := c.Cookies("csrf_"); tok != "" {
		data["CSRFToken"] = tok
	}
	return data
}
