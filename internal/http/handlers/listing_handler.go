package handlers

import (
	"errors"
	"io"
	"strconv"
	"sync"

	"foodshare/internal/domain"
	"foodshare/internal/errs"
	"foodshare/internal/gallery"
	applog "foodshare/internal/log"
	"foodshare/internal/media"
	"foodshare/internal/services"
	"foodshare/internal/validate"

	"github.com/gofiber/fiber/v2"
)

const maxListingImages = 5

// collectorRegistry holds the per-form image collectors, keyed by
// session and target record.
type collectorRegistry struct {
	mu sync.Mutex
	m  map[string]*gallery.Collector
}

func newCollectorRegistry() *collectorRegistry {
	return &collectorRegistry{m: make(map[string]*gallery.Collector)}
}

func (r *collectorRegistry) get(key string, mk func() *gallery.Collector) *gallery.Collector {
	r.mu.Lock()
	defer r.mu.Unlock()
	if col, ok := r.m[key]; ok {
		return col
	}
	col := mk()
	r.m[key] = col
	return col
}

func (r *collectorRegistry) find(key string) *gallery.Collector {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.m[key]
}

func (r *collectorRegistry) drop(key string) {
	r.mu.Lock()
	col, ok := r.m[key]
	delete(r.m, key)
	r.mu.Unlock()
	if ok {
		col.Close()
	}
}

type ListingHandler struct {
	Listings  *services.ListingService
	Catalog   *services.CatalogService
	Uploader  *media.Uploader
	Previews  *gallery.PreviewStore
	Collector *collectorRegistry
}

func (h *ListingHandler) collectorKey(c *fiber.Ctx, target string) string {
	return ensureSID(c) + "|" + target
}

func (h *ListingHandler) newCollector(seed []string) func() *gallery.Collector {
	return func() *gallery.Collector {
		col := gallery.NewCollector(maxListingImages, h.Uploader, h.Previews, func(urls []string) {
			applog.Info(nil, "listing.images.change", map[string]any{"count": len(urls)})
		})
		col.Seed(seed)
		return col
	}
}

// formFiles reads the uploaded multipart files for one field.
func formFiles(c *fiber.Ctx, field string) ([]media.File, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, err
	}
	var out []media.File
	for _, fh := range form.File[field] {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		b, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, err
		}
		out = append(out, media.File{Name: fh.Filename, Content: b})
	}
	return out, nil
}

// Detail renders the public listing page.
func (h *ListingHandler) Detail(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "listing"})
		return c.Status(404).Render("notfound", fiber.Map{"Message": "This listing is no longer available"})
	}
	l, err := h.Listings.Get(id)
	if err != nil {
		return c.Status(404).Render("notfound", fiber.Map{"Message": "This listing is no longer available"})
	}
	d := services.DraftFrom(l)
	return render(c, "listing", fiber.Map{"L": l, "Images": d.Images})
}

// NewForm renders the create-listing editor. Users without location
// fields are redirected to profile completion first.
func (h *ListingHandler) NewForm(c *fiber.Ctx) error {
	u, _ := c.Locals("user").(*domain.User)
	if !u.HasLocation() {
		return c.Redirect("/profile/location")
	}
	col := h.Collector.get(h.collectorKey(c, "new"), h.newCollector(nil))
	return h.renderForm(c, "", services.ListingDraft{}, col, c.Query("err"))
}

// Create validates the draft and persists it. Validation failures stay
// on the form with an inline error and never reach the store.
func (h *ListingHandler) Create(c *fiber.Ctx) error {
	u, _ := c.Locals("user").(*domain.User)
	if !u.HasLocation() {
		return c.Redirect("/profile/location")
	}
	key := h.collectorKey(c, "new")
	col := h.Collector.get(key, h.newCollector(nil))

	d, perr := draftFromForm(c)
	d.Images = col.URLs()
	if perr != "" {
		return h.renderForm(c, "", d, col, perr)
	}

	id, err := h.Listings.Create(u, d)
	if err != nil {
		if errors.Is(err, errs.ErrValidation) {
			return h.renderForm(c, "", d, col, friendlyError(err))
		}
		applog.Error(c, "listing.create.fail", err, nil)
		return h.renderForm(c, "", d, col, "Could not save your listing. Please try again.")
	}

	h.Collector.drop(key)
	applog.Audit(c, "listing.create", map[string]any{"listing_id": id})
	return render(c, "submitted", fiber.Map{"Message": "Listing published!", "Next": "/listing/" + id})
}

// EditForm loads an owned listing into the editor. Absent records fail
// closed into a not-found page, foreign records into a forbidden page.
func (h *ListingHandler) EditForm(c *fiber.Ctx) error {
	u, _ := c.Locals("user").(*domain.User)
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(404).Render("notfound", fiber.Map{"Message": "This listing is no longer available"})
	}
	_, d, err := h.Listings.GetForEdit(id, u)
	if err != nil {
		return h.renderEditError(c, err)
	}
	col := h.Collector.get(h.collectorKey(c, id), h.newCollector(d.Images))
	d.Images = col.URLs()
	return h.renderForm(c, id, d, col, c.Query("err"))
}

func (h *ListingHandler) Update(c *fiber.Ctx) error {
	u, _ := c.Locals("user").(*domain.User)
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(404).Render("notfound", fiber.Map{"Message": "This listing is no longer available"})
	}
	key := h.collectorKey(c, id)
	col := h.Collector.find(key)
	if col == nil {
		return c.Redirect("/listings/" + id + "/edit")
	}

	d, perr := draftFromForm(c)
	d.Images = col.URLs()
	if perr != "" {
		return h.renderForm(c, id, d, col, perr)
	}

	if err := h.Listings.Update(id, u, d); err != nil {
		if errors.Is(err, errs.ErrValidation) {
			return h.renderForm(c, id, d, col, friendlyError(err))
		}
		if errors.Is(err, errs.ErrNotFound) || errors.Is(err, errs.ErrForbidden) {
			return h.renderEditError(c, err)
		}
		applog.Error(c, "listing.update.fail", err, map[string]any{"listing_id": id})
		return h.renderForm(c, id, d, col, "Could not save your changes. Please try again.")
	}

	h.Collector.drop(key)
	applog.Audit(c, "listing.update", map[string]any{"listing_id": id})
	return render(c, "submitted", fiber.Map{"Message": "Listing updated!", "Next": "/listing/" + id})
}

// UploadImages feeds freshly selected files to the form's collector.
func (h *ListingHandler) UploadImages(c *fiber.Ctx) error {
	target := c.FormValue("target")
	if target != "new" {
		if _, ok := validate.ID(target); !ok {
			return c.Status(400).SendString("bad target")
		}
	}
	col := h.Collector.get(h.collectorKey(c, target), h.newCollector(nil))

	files, err := formFiles(c, "images")
	if err != nil || len(files) == 0 {
		return c.Redirect(formURL(target) + "?err=Choose+at+least+one+image")
	}

	if err := col.SelectFiles(c.Context(), files); err != nil {
		switch {
		case errors.Is(err, errs.ErrCapacity):
			applog.Info(c, "listing.images.capacity", map[string]any{"target": target})
			return c.Redirect(formURL(target) + "?err=" + "You+can+add+at+most+5+images")
		default:
			applog.Error(c, "listing.images.upload.fail", err, map[string]any{"target": target})
			return c.Redirect(formURL(target) + "?err=Upload+failed.+Please+try+again")
		}
	}
	return c.Redirect(formURL(target))
}

// RemoveImage drops a committed image and its preview at one index.
func (h *ListingHandler) RemoveImage(c *fiber.Ctx) error {
	target := c.FormValue("target")
	idx, err := strconv.Atoi(c.FormValue("index"))
	if err != nil {
		return c.Status(400).SendString("bad index")
	}
	if col := h.Collector.find(h.collectorKey(c, target)); col != nil {
		col.RemoveAt(idx)
	}
	return c.Redirect(formURL(target))
}

// UploadProgress reports the cosmetic progress value for polling.
func (h *ListingHandler) UploadProgress(c *fiber.Ctx) error {
	target := c.Query("target", "new")
	col := h.Collector.find(h.collectorKey(c, target))
	if col == nil {
		return c.JSON(fiber.Map{"progress": 0, "busy": false})
	}
	return c.JSON(fiber.Map{"progress": col.Progress(), "busy": col.Busy(), "error": col.Err()})
}

// Preview streams a collector's local preview rendition.
func (h *ListingHandler) Preview(c *fiber.Ctx) error {
	target := c.Params("target")
	col := h.Collector.find(h.collectorKey(c, target))
	if col == nil {
		return c.SendStatus(404)
	}
	id := c.Params("id")
	for _, hd := range col.Handles() {
		if hd.ID == id && hd.Path() != "" {
			return c.SendFile(hd.Path(), true)
		}
	}
	return c.SendStatus(404)
}

// MyListings shows the signed-in user's own listings.
func (h *ListingHandler) MyListings(c *fiber.Ctx) error {
	u, _ := c.Locals("user").(*domain.User)
	listings, err := h.Listings.Listings.ListByOwner(u.ID)
	if err != nil {
		applog.Error(c, "listing.mine.fail", err, nil)
		return c.Status(500).Render("notfound", fiber.Map{"Message": "Could not load your listings"})
	}
	return render(c, "my_listings", fiber.Map{"Listings": listings})
}

// SetAvailability toggles the claimed/available flag on an owned listing.
func (h *ListingHandler) SetAvailability(c *fiber.Ctx) error {
	u, _ := c.Locals("user").(*domain.User)
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(400).SendString("bad id")
	}
	available := c.FormValue("available") == "1"
	if err := h.Listings.SetAvailability(id, u, available); err != nil {
		if errors.Is(err, errs.ErrNotFound) || errors.Is(err, errs.ErrForbidden) {
			return h.renderEditError(c, err)
		}
		applog.Error(c, "listing.availability.fail", err, map[string]any{"listing_id": id})
		return c.Status(400).SendString("could not update listing")
	}
	applog.Audit(c, "listing.availability", map[string]any{"listing_id": id, "available": available})
	return c.Redirect("/my/listings")
}

func (h *ListingHandler) Delete(c *fiber.Ctx) error {
	u, _ := c.Locals("user").(*domain.User)
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(400).SendString("bad id")
	}
	if err := h.Listings.Delete(id, u); err != nil {
		if errors.Is(err, errs.ErrNotFound) || errors.Is(err, errs.ErrForbidden) {
			return h.renderEditError(c, err)
		}
		applog.Error(c, "listing.delete.fail", err, map[string]any{"listing_id": id})
		return c.Status(400).SendString("could not delete listing")
	}
	applog.Audit(c, "listing.delete", map[string]any{"listing_id": id})
	return c.Redirect("/my/listings")
}

func (h *ListingHandler) renderForm(c *fiber.Ctx, id string, d services.ListingDraft, col *gallery.Collector, errMsg string) error {
	cats, err := h.Catalog.ListCategories()
	if err != nil {
		applog.Error(c, "listing.form.fail", err, nil)
		return c.Status(500).Render("notfound", fiber.Map{"Message": "Could not load the form"})
	}
	if errMsg == "" {
		errMsg = col.Err()
	}
	return render(c, "listing_form", fiber.Map{
		"ID":         id,
		"D":          d,
		"Categories": cats,
		"Images":     col.URLs(),
		"Previews":   col.Handles(),
		"Busy":       col.Busy(),
		"Target":     formTarget(id),
		"Err":        errMsg,
	})
}

func (h *ListingHandler) renderEditError(c *fiber.Ctx, err error) error {
	if errors.Is(err, errs.ErrForbidden) {
		applog.Security(c, "access.denied.listing", nil)
		return c.Status(fiber.StatusForbidden).Render("notfound", fiber.Map{"Message": "You do not own this listing"})
	}
	return c.Status(fiber.StatusNotFound).Render("notfound", fiber.Map{"Message": "This listing is no longer available"})
}

func formTarget(id string) string {
	if id == "" {
		return "new"
	}
	return id
}

func formURL(target string) string {
	if target == "new" {
		return "/listings/new"
	}
	return "/listings/" + target + "/edit"
}

// draftFromForm reads the submitted fields. The second return value is
// a non-empty inline error when the price field is unparsable or
// negative; the caller re-renders the form with it instead of quietly
// dropping the value.
func draftFromForm(c *fiber.Ctx) (services.ListingDraft, string) {
	d := services.ListingDraft{
		CategoryID:  c.FormValue("category"),
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
		Quantity:    c.FormValue("quantity"),
		ExpiryDate:  c.FormValue("expiry_date"),
	}
	var errMsg string
	if p, ok := validate.Price(c.FormValue("price")); ok {
		d.Price = p
	} else {
		errMsg = "Enter a valid price, or leave it empty"
	}
	// Applied last: turning donation on nulls any submitted price.
	d.SetDonation(c.FormValue("is_donation") == "1" || c.FormValue("is_donation") == "on")
	return d, errMsg
}

// friendlyError strips the sentinel prefix for inline display.
func friendlyError(err error) string {
	msg := err.Error()
	if cut := len(errs.ErrValidation.Error()) + 2; len(msg) > cut {
		return msg[cut:]
	}
	return msg
}
