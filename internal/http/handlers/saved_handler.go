package handlers

import (
	applog "foodshare/internal/log"
	"foodshare/internal/services"
	"foodshare/internal/validate"

	"github.com/gofiber/fiber/v2"
)

type SavedHandler struct {
	Saved *services.SavedService
}

func (h *SavedHandler) List(c *fiber.Ctx) error {
	rows, err := h.Saved.List(ensureSID(c))
	if err != nil {
		applog.Error(c, "saved.list.fail", err, nil)
		return c.Status(500).Render("notfound", fiber.Map{"Message": "Could not load saved listings"})
	}
	return render(c, "saved", fiber.Map{"Rows": rows})
}

func (h *SavedHandler) Save(c *fiber.Ctx) error {
	id, ok := validate.ID(c.FormValue("listing_id"))
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "listing_id"})
		return c.Status(400).SendString("bad listing")
	}
	if err := h.Saved.Save(ensureSID(c), id); err != nil {
		applog.Error(c, "saved.add.fail", err, map[string]any{"listing_id": id})
		return c.Status(400).SendString("could not save listing")
	}
	return c.Redirect(c.Get("Referer", "/saved"))
}

func (h *SavedHandler) Unsave(c *fiber.Ctx) error {
	id, ok := validate.ID(c.FormValue("listing_id"))
	if !ok {
		return c.Status(400).SendString("bad listing")
	}
	if err := h.Saved.Unsave(ensureSID(c), id); err != nil {
		applog.Error(c, "saved.remove.fail", err, map[string]any{"listing_id": id})
		return c.Status(400).SendString("could not remove listing")
	}
	return c.Redirect(c.Get("Referer", "/saved"))
}
