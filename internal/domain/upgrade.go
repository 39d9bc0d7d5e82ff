package domain

// UpgradeApplication is the draft of an individual -> NGO account
// upgrade. It is not persisted until the payment step succeeds.
type UpgradeApplication struct {
	OrgName        string
	RegistrationID string
	Cause          string
	Website        string
	Established    string
	Reach          string
	Description    string

	ProfileImageURL string
	GalleryURLs     []string
	PaymentQRURL    string
}

// NGOProfile is the persisted shape of a completed upgrade, stored on
// the user record.
type NGOProfile struct {
	UserID         string `db:"user_id"`
	OrgName        string `db:"org_name"`
	RegistrationID string `db:"registration_id"`
	Cause          string `db:"cause"`
	Website        string `db:"website"`
	Established    string `db:"established"`
	Reach          string `db:"reach"`
	Description    string `db:"description"`
	ProfileImage   string `db:"profile_image"`
	GalleryJSON    string `db:"gallery_json"`
	PaymentQR      string `db:"payment_qr"`
	CreatedAt      string `db:"created_at"`
}
