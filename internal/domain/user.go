package domain

type User struct {
	ID           string `db:"id"`
	Email        string `db:"email"`
	Name         string `db:"name"`
	Hash         string `db:"password_hash"`
	AccountType  string `db:"account_type"` // INDIVIDUAL | NGO
	City         string `db:"city"`
	Region       string `db:"region"`
	ProfileImage string `db:"profile_image"`
}

// HasLocation reports whether the profile carries the fields a new
// listing inherits. Listing creation redirects to profile completion
// when this is false.
func (u *User) HasLocation() bool {
	return u != nil && u.City != "" && u.Region != ""
}

func (u *User) IsNGO() bool { return u != nil && u.AccountType == "NGO" }
