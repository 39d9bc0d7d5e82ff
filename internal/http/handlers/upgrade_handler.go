package handlers

import (
	"context"
	"strconv"

	"foodshare/internal/domain"
	"foodshare/internal/gallery"
	applog "foodshare/internal/log"
	"foodshare/internal/services"

	"github.com/gofiber/fiber/v2"
)

type UpgradeHandler struct {
	Upgrades *services.UpgradeService
	Auth     *services.AuthService
}

// Show renders whichever wizard step the user's application is on.
// An account that is already NGO is bounced, except right after the
// payment that upgraded it: the finished flow still owes the user its
// success view.
func (h *UpgradeHandler) Show(c *fiber.Ctx) error {
	u, _ := c.Locals("user").(*domain.User)
	f := h.Upgrades.Existing(u.ID)
	if u.IsNGO() && (f == nil || f.Step() != services.StepSuccess) {
		return c.Redirect("/")
	}
	if f == nil {
		f = h.Upgrades.Flow(u)
	}

	data := fiber.Map{
		"Step":  f.Step(),
		"Err":   f.Err(),
		"App":   f.Application(),
		"State": "",
	}
	switch f.Step() {
	case services.StepSuccess:
		// The success view renders exactly once; afterwards the flow is
		// gone and NGO visits bounce.
		h.Upgrades.Discard(u.ID)
	case services.StepImages:
		data["Profile"] = f.Profile.Handles()
		data["Gallery"] = f.Gallery.Handles()
		data["QR"] = f.QR.Handles()
		data["HasProfile"] = f.HasProfileImage()
	case services.StepPayment:
		d := f.Dialog()
		data["State"] = string(d.State())
		data["Method"] = d.Method()
		data["Ref"] = d.Ref()
		data["Progress"] = d.Progress()
		data["PayErr"] = d.LastErr()
	}
	return render(c, "upgrade", data)
}

// SubmitInfo handles the step 1 form.
func (h *UpgradeHandler) SubmitInfo(c *fiber.Ctx) error {
	u, _ := c.Locals("user").(*domain.User)
	f := h.Upgrades.Flow(u)
	err := f.SubmitInfo(
		c.FormValue("org_name"),
		c.FormValue("registration_id"),
		c.FormValue("cause"),
		c.FormValue("website"),
		c.FormValue("established"),
		c.FormValue("reach"),
		c.FormValue("description"),
	)
	if err != nil {
		applog.Info(c, "upgrade.info.invalid", nil)
	}
	return c.Redirect("/upgrade")
}

// Back returns from the images step to the info step.
func (h *UpgradeHandler) Back(c *fiber.Ctx) error {
	u, _ := c.Locals("user").(*domain.User)
	_ = h.Upgrades.Flow(u).Back()
	return c.Redirect("/upgrade")
}

// AddImages stages files for one role of the images step. Files beyond
// a role's capacity are quietly ignored.
func (h *UpgradeHandler) AddImages(c *fiber.Ctx) error {
	u, _ := c.Locals("user").(*domain.User)
	f := h.Upgrades.Flow(u)
	st := stagingFor(f, c.FormValue("role"))
	if st == nil {
		return c.Status(400).SendString("bad role")
	}
	files, err := formFiles(c, "images")
	if err != nil {
		return c.Redirect("/upgrade")
	}
	n := st.AddFiles(files)
	applog.Info(c, "upgrade.images.add", map[string]any{"role": c.FormValue("role"), "accepted": n})
	return c.Redirect("/upgrade")
}

func (h *UpgradeHandler) RemoveImage(c *fiber.Ctx) error {
	u, _ := c.Locals("user").(*domain.User)
	f := h.Upgrades.Flow(u)
	st := stagingFor(f, c.FormValue("role"))
	if st == nil {
		return c.Status(400).SendString("bad role")
	}
	if idx, err := strconv.Atoi(c.FormValue("index")); err == nil {
		st.RemoveAt(idx)
	}
	return c.Redirect("/upgrade")
}

// Preview streams a staged image's local rendition for one role.
func (h *UpgradeHandler) Preview(c *fiber.Ctx) error {
	u, _ := c.Locals("user").(*domain.User)
	f := h.Upgrades.Flow(u)
	st := stagingFor(f, c.Params("role"))
	if st == nil {
		return c.SendStatus(404)
	}
	id := c.Params("id")
	for _, hd := range st.Handles() {
		if hd.ID == id && hd.Path() != "" {
			return c.SendFile(hd.Path(), true)
		}
	}
	return c.SendStatus(404)
}

// SubmitImages is the step 2 -> 3 transition: the deferred uploads run
// here, as one batch.
func (h *UpgradeHandler) SubmitImages(c *fiber.Ctx) error {
	u, _ := c.Locals("user").(*domain.User)
	f := h.Upgrades.Flow(u)
	if err := h.Upgrades.SubmitImages(c.Context(), f); err != nil {
		applog.Error(c, "upgrade.images.submit.fail", err, nil)
	}
	return c.Redirect("/upgrade")
}

// SelectMethod picks the payment method and reveals the QR code.
func (h *UpgradeHandler) SelectMethod(c *fiber.Ctx) error {
	u, _ := c.Locals("user").(*domain.User)
	d := h.Upgrades.Flow(u).Dialog()
	if d == nil {
		return c.Redirect("/upgrade")
	}
	if err := d.SelectMethod(c.FormValue("method")); err != nil {
		applog.Info(c, "upgrade.payment.method.invalid", nil)
	}
	return c.Redirect("/upgrade")
}

// ConfirmPaid starts verification in the background so the processing
// page can poll progress, and stays cancellable meanwhile.
func (h *UpgradeHandler) ConfirmPaid(c *fiber.Ctx) error {
	u, _ := c.Locals("user").(*domain.User)
	d := h.Upgrades.Flow(u).Dialog()
	if d == nil {
		return c.Redirect("/upgrade")
	}
	go func() {
		if err := d.ConfirmPaid(context.Background()); err != nil {
			applog.Error(nil, "upgrade.payment.verify.fail", err, map[string]any{"user_id": u.ID})
		}
	}()
	return c.Redirect("/upgrade")
}

func (h *UpgradeHandler) CancelPayment(c *fiber.Ctx) error {
	u, _ := c.Locals("user").(*domain.User)
	if err := h.Upgrades.Flow(u).CancelPayment(); err != nil {
		applog.Info(c, "upgrade.payment.cancel.rejected", nil)
	}
	return c.Redirect("/upgrade")
}

// PaymentStatus reports dialog state for the processing page to poll.
func (h *UpgradeHandler) PaymentStatus(c *fiber.Ctx) error {
	u, _ := c.Locals("user").(*domain.User)
	f := h.Upgrades.Flow(u)
	d := f.Dialog()
	if d == nil {
		return c.JSON(fiber.Map{"state": "", "step": f.Step()})
	}
	return c.JSON(fiber.Map{
		"state":    d.State(),
		"progress": d.Progress(),
		"step":     f.Step(),
		"error":    d.LastErr(),
	})
}

// Discard abandons the whole application and frees staged previews.
func (h *UpgradeHandler) Discard(c *fiber.Ctx) error {
	u, _ := c.Locals("user").(*domain.User)
	h.Upgrades.Discard(u.ID)
	applog.Audit(c, "upgrade.discard", nil)
	return c.Redirect("/")
}

func stagingFor(f *services.UpgradeFlow, role string) *gallery.Staging {
	switch role {
	case "profile":
		return f.Profile
	case "gallery":
		return f.Gallery
	case "qr":
		return f.QR
	}
	return nil
}
