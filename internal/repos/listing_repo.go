package repos

import (
	"foodshare/internal/domain"

	"github.com/jmoiron/sqlx"
)

type ListingRepo struct{ db *sqlx.DB }

func NewListingRepo(db *sqlx.DB) *ListingRepo { return &ListingRepo{db: db} }

const listingCols = `
  id, owner_id, owner_name, category_id, title, description, quantity,
  price, is_donation, expiry_date, primary_image, images_json, city, region,
  is_available, created_at, COALESCE(updated_at,'') AS updated_at`

func (r *ListingRepo) Get(id string) (domain.Listing, error) {
	var l domain.Listing
	err := r.db.Get(&l, `SELECT `+listingCols+` FROM listings WHERE id = ?`, id)
	return l, err
}

func (r *ListingRepo) ListByCategory(catID string, limit, offset int) ([]domain.Listing, error) {
	var out []domain.Listing
	err := r.db.Select(&out, `
	  SELECT `+listingCols+`
	  FROM listings
	  WHERE category_id = ? AND is_available = 1
	  ORDER BY created_at DESC
	  LIMIT ? OFFSET ?
	`, catID, limit, offset)
	return out, err
}

func (r *ListingRepo) ListByOwner(ownerID string) ([]domain.Listing, error) {
	var out []domain.Listing
	err := r.db.Select(&out, `
	  SELECT `+listingCols+`
	  FROM listings
	  WHERE owner_id = ?
	  ORDER BY created_at DESC
	`, ownerID)
	return out, err
}

func (r *ListingRepo) Search(q, catID string, donationsOnly bool, limit, offset int) ([]domain.Listing, error) {
	where := `is_available = 1`
	args := []any{}
	if q != "" {
		where += ` AND (LOWER(title) LIKE ? OR LOWER(description) LIKE ?)`
		args = append(args, "%"+q+"%", "%"+q+"%")
	}
	if catID != "" {
		where += ` AND category_id = ?`
		args = append(args, catID)
	}
	if donationsOnly {
		where += ` AND is_donation = 1`
	}

	sql := `
	  SELECT ` + listingCols + `
	  FROM listings
	  WHERE ` + where + `
	  ORDER BY created_at DESC
	  LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	var out []domain.Listing
	err := r.db.Select(&out, sql, args...)
	return out, err
}

func (r *ListingRepo) Create(l domain.Listing) error {
	_, err := r.db.Exec(`
	  INSERT INTO listings
	    (id, owner_id, owner_name, category_id, title, description, quantity,
	     price, is_donation, expiry_date, primary_image, images_json, city, region,
	     is_available, created_at)
	  VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,CURRENT_TIMESTAMP)
	`, l.ID, l.OwnerID, l.OwnerName, l.CategoryID, l.Title, l.Description, l.Quantity,
		l.Price, l.IsDonation, l.ExpiryDate, l.PrimaryImage, l.ImagesJSON, l.City, l.Region,
		l.IsAvailable)
	return err
}

func (r *ListingRepo) Update(l domain.Listing) error {
	_, err := r.db.Exec(`
	  UPDATE listings SET
	    category_id=?, title=?, description=?, quantity=?, price=?, is_donation=?,
	    expiry_date=?, primary_image=?, images_json=?, updated_at=CURRENT_TIMESTAMP
	  WHERE id=?
	`, l.CategoryID, l.Title, l.Description, l.Quantity, l.Price, l.IsDonation,
		l.ExpiryDate, l.PrimaryImage, l.ImagesJSON, l.ID)
	return err
}

func (r *ListingRepo) SetAvailability(id string, available bool) error {
	_, err := r.db.Exec(`UPDATE listings SET is_available=?, updated_at=CURRENT_TIMESTAMP WHERE id=?`, available, id)
	return err
}

func (r *ListingRepo) Delete(id string) error {
	_, err := r.db.Exec(`DELETE FROM listings WHERE id=?`, id)
	return err
}
