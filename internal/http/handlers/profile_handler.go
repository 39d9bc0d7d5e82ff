package handlers

import (
	"foodshare/internal/domain"
	applog "foodshare/internal/log"
	"foodshare/internal/repos"
	"foodshare/internal/validate"

	"github.com/gofiber/fiber/v2"
)

type ProfileHandler struct {
	Users *repos.UserRepo
}

// LocationForm asks for the city and region a listing is posted from.
func (h *ProfileHandler) LocationForm(c *fiber.Ctx) error {
	u, _ := c.Locals("user").(*domain.User)
	return render(c, "profile_location", fiber.Map{"City": u.City, "Region": u.Region})
}

func (h *ProfileHandler) SetLocation(c *fiber.Ctx) error {
	u, _ := c.Locals("user").(*domain.User)
	city, okCity := validate.Name(c.FormValue("city"))
	region, okRegion := validate.Name(c.FormValue("region"))
	if !okCity || !okRegion {
		return render(c, "profile_location", fiber.Map{
			"City":   c.FormValue("city"),
			"Region": c.FormValue("region"),
			"Err":    "Both city and region are required",
		})
	}
	if err := h.Users.SetLocation(u.ID, city, region); err != nil {
		applog.Error(c, "profile.location.fail", err, nil)
		return render(c, "profile_location", fiber.Map{
			"City":   city,
			"Region": region,
			"Err":    "Could not save your location. Please try again.",
		})
	}
	applog.Audit(c, "profile.location", map[string]any{"city": city, "region": region})
	return c.Redirect("/listings/new")
}
