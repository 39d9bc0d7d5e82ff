package handlers

import (
	"foodshare/internal/services"

	"github.com/gofiber/fiber/v2"
)

type CatalogHandler struct {
	Catalog *services.CatalogService
}

func (h *CatalogHandler) Home(c *fiber.Ctx) error {
	cats, err := h.Catalog.ListCategories()
	if err != nil {
		return c.Status(500).SendString(err.Error())
	}
	latest, err := h.Catalog.Search("", "", false, 1, 8)
	if err != nil {
		return c.Status(500).SendString(err.Error())
	}
	return render(c, "home", fiber.Map{"Categories": cats, "Listings": latest})
}

func (h *CatalogHandler) Browse(c *fiber.Ctx) error {
	catID := c.Params("id")
	listings, err := h.Catalog.ListByCategory(catID, 1, 12)
	if err != nil {
		return c.Status(500).SendString(err.Error())
	}
	return render(c, "category", fiber.Map{"CategoryID": catID, "Listings": listings})
}
