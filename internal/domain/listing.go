package domain

type Listing struct {
	ID           string   `db:"id"`
	OwnerID      string   `db:"owner_id"`
	OwnerName    string   `db:"owner_name"`
	CategoryID   string   `db:"category_id"`
	Title        string   `db:"title"`
	Description  string   `db:"description"`
	Quantity     string   `db:"quantity"`
	Price        *float64 `db:"price"` // nil when IsDonation
	IsDonation   bool     `db:"is_donation"`
	ExpiryDate   string   `db:"expiry_date"` // YYYY-MM-DD
	PrimaryImage string   `db:"primary_image"`
	ImagesJSON   string   `db:"images_json"`
	City         string   `db:"city"`
	Region       string   `db:"region"`
	IsAvailable  bool     `db:"is_available"`
	CreatedAt    string   `db:"created_at"`
	UpdatedAt    string   `db:"updated_at"`
}

type Category struct {
	ID        string `db:"id"`
	Name      string `db:"name"`
	CreatedAt string `db:"created_at"`
	UpdatedAt string `db:"updated_at"`
}
