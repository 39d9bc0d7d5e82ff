package services

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"foodshare/internal/domain"
	"foodshare/internal/errs"
	"foodshare/internal/repos"
	"foodshare/internal/validate"

	"github.com/google/uuid"
)

// ListingDraft is the form-local, unsaved shape of a listing. It lives
// only for the duration of the form and becomes a persisted listing on
// submit.
type ListingDraft struct {
	CategoryID  string
	Title       string
	Description string
	Quantity    string
	Price       *float64
	IsDonation  bool
	ExpiryDate  string
	Images      []string
}

// SetDonation toggles donation mode. Turning it on forces the price to
// nil in the same update; price is only meaningful while it is off.
func (d *ListingDraft) SetDonation(on bool) {
	d.IsDonation = on
	if on {
		d.Price = nil
	}
}

type ListingService struct {
	Listings *repos.ListingRepo
	Cats     *repos.CategoryRepo

	// Now is swappable for expiry-date tests.
	Now func() time.Time
}

func NewListingService(listings *repos.ListingRepo, cats *repos.CategoryRepo) *ListingService {
	return &ListingService{Listings: listings, Cats: cats, Now: time.Now}
}

// Validate checks every required field without touching the store. Any
// failure wraps ErrValidation with a user-facing field message.
func (s *ListingService) Validate(d ListingDraft) error {
	if _, ok := validate.Title(d.Title); !ok {
		return fmt.Errorf("%w: title is required", errs.ErrValidation)
	}
	if _, ok := validate.Text(d.Description, 2000); !ok {
		return fmt.Errorf("%w: description is required", errs.ErrValidation)
	}
	if _, ok := validate.ID(d.CategoryID); !ok {
		return fmt.Errorf("%w: pick a category", errs.ErrValidation)
	}
	if ok, err := s.Cats.Exists(d.CategoryID); err != nil || !ok {
		return fmt.Errorf("%w: pick a category", errs.ErrValidation)
	}
	if _, ok := validate.Text(d.Quantity, 100); !ok {
		return fmt.Errorf("%w: quantity is required", errs.ErrValidation)
	}
	if _, ok := validate.ExpiryDate(d.ExpiryDate, s.Now()); !ok {
		return fmt.Errorf("%w: expiry date must be today or later", errs.ErrValidation)
	}
	if !d.IsDonation && d.Price != nil && *d.Price < 0 {
		return fmt.Errorf("%w: price cannot be negative", errs.ErrValidation)
	}
	if d.IsDonation && d.Price != nil {
		return fmt.Errorf("%w: a donation cannot have a price", errs.ErrValidation)
	}
	if len(d.Images) == 0 {
		return fmt.Errorf("%w: add at least one image", errs.ErrValidation)
	}
	return nil
}

// Create validates the draft, then persists it with the owner identity
// and location snapshot. Validation failure never reaches the store.
func (s *ListingService) Create(owner *domain.User, d ListingDraft) (string, error) {
	if err := s.Validate(d); err != nil {
		return "", err
	}
	imgs, err := json.Marshal(d.Images)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrPersist, err)
	}
	l := domain.Listing{
		ID:           uuid.NewString(),
		OwnerID:      owner.ID,
		OwnerName:    owner.Name,
		CategoryID:   d.CategoryID,
		Title:        d.Title,
		Description:  d.Description,
		Quantity:     d.Quantity,
		Price:        d.Price,
		IsDonation:   d.IsDonation,
		ExpiryDate:   d.ExpiryDate,
		PrimaryImage: d.Images[0],
		ImagesJSON:   string(imgs),
		City:         owner.City,
		Region:       owner.Region,
		IsAvailable:  true,
	}
	if err := s.Listings.Create(l); err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrPersist, err)
	}
	return l.ID, nil
}

// GetForEdit loads a listing for its owner. Absent records map to
// ErrNotFound, a non-owner viewer to ErrForbidden.
func (s *ListingService) GetForEdit(id string, viewer *domain.User) (domain.Listing, ListingDraft, error) {
	l, err := s.Listings.Get(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Listing{}, ListingDraft{}, errs.ErrNotFound
		}
		return domain.Listing{}, ListingDraft{}, err
	}
	if viewer == nil || l.OwnerID != viewer.ID {
		return domain.Listing{}, ListingDraft{}, errs.ErrForbidden
	}
	return l, DraftFrom(l), nil
}

// Update validates and persists changes to an owned listing.
func (s *ListingService) Update(id string, viewer *domain.User, d ListingDraft) error {
	l, _, err := s.GetForEdit(id, viewer)
	if err != nil {
		return err
	}
	if err := s.Validate(d); err != nil {
		return err
	}
	imgs, err := json.Marshal(d.Images)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrPersist, err)
	}
	l.CategoryID = d.CategoryID
	l.Title = d.Title
	l.Description = d.Description
	l.Quantity = d.Quantity
	l.Price = d.Price
	l.IsDonation = d.IsDonation
	l.ExpiryDate = d.ExpiryDate
	l.PrimaryImage = d.Images[0]
	l.ImagesJSON = string(imgs)
	if err := s.Listings.Update(l); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrPersist, err)
	}
	return nil
}

// SetAvailability flips the availability flag on an owned listing.
func (s *ListingService) SetAvailability(id string, viewer *domain.User, available bool) error {
	if _, _, err := s.GetForEdit(id, viewer); err != nil {
		return err
	}
	if err := s.Listings.SetAvailability(id, available); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrPersist, err)
	}
	return nil
}

// Delete removes an owned listing.
func (s *ListingService) Delete(id string, viewer *domain.User) error {
	if _, _, err := s.GetForEdit(id, viewer); err != nil {
		return err
	}
	if err := s.Listings.Delete(id); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrPersist, err)
	}
	return nil
}

// Get loads a listing for public display.
func (s *ListingService) Get(id string) (domain.Listing, error) {
	l, err := s.Listings.Get(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Listing{}, errs.ErrNotFound
		}
		return domain.Listing{}, err
	}
	return l, nil
}

// DraftFrom hydrates a form draft from a persisted listing (edit mode).
func DraftFrom(l domain.Listing) ListingDraft {
	var imgs []string
	_ = json.Unmarshal([]byte(l.ImagesJSON), &imgs)
	return ListingDraft{
		CategoryID:  l.CategoryID,
		Title:       l.Title,
		Description: l.Description,
		Quantity:    l.Quantity,
		Price:       l.Price,
		IsDonation:  l.IsDonation,
		ExpiryDate:  l.ExpiryDate,
		Images:      imgs,
	}
}
