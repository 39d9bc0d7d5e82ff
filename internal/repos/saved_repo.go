package repos

import "github.com/jmoiron/sqlx"

// SavedRepo tracks listings a browser session has bookmarked.
type SavedRepo struct{ db *sqlx.DB }

func NewSavedRepo(db *sqlx.DB) *SavedRepo { return &SavedRepo{db: db} }

type SavedRow struct {
	ListingID    string   `db:"listing_id"`
	Title        string   `db:"title"`
	PrimaryImage string   `db:"primary_image"`
	IsDonation   bool     `db:"is_donation"`
	Price        *float64 `db:"price"`
	SavedAt      string   `db:"saved_at"`
}

func (r *SavedRepo) Add(sessionID, listingID string) error {
	_, err := r.db.Exec(`
	  INSERT INTO saved_listings(session_id, listing_id)
	  VALUES(?,?)
	  ON CONFLICT(session_id, listing_id) DO NOTHING
	`, sessionID, listingID)
	return err
}

func (r *SavedRepo) Remove(sessionID, listingID string) error {
	_, err := r.db.Exec(`DELETE FROM saved_listings WHERE session_id=? AND listing_id=?`, sessionID, listingID)
	return err
}

func (r *SavedRepo) List(sessionID string) ([]SavedRow, error) {
	var out []SavedRow
	err := r.db.Select(&out, `
	  SELECT l.id AS listing_id, l.title, l.primary_image, l.is_donation, l.price,
	         s.created_at AS saved_at
	  FROM saved_listings s
	  JOIN listings l ON l.id = s.listing_id
	  WHERE s.session_id = ?
	  ORDER BY datetime(s.created_at) DESC
	`, sessionID)
	return out, err
}
