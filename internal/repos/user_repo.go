package repos

import (
	"encoding/json"

	"foodshare/internal/domain"

	"github.com/jmoiron/sqlx"
)

type UserRepo struct{ DB *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{DB: db} }

const userCols = `id,email,name,password_hash,account_type,city,region,profile_image`

func (r *UserRepo) ByEmail(email string) (*domain.User, error) {
	var u domain.User
	err := r.DB.Get(&u, `SELECT `+userCols+` FROM users WHERE LOWER(email)=LOWER(?)`, email)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) ByID(id string) (*domain.User, error) {
	var u domain.User
	err := r.DB.Get(&u, `SELECT `+userCols+` FROM users WHERE id=?`, id)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) BindSession(sid, userID string) error {
	_, err := r.DB.Exec(`INSERT INTO sessions(id,user_id,last_seen)
                          VALUES(?,?,CURRENT_TIMESTAMP)
                          ON CONFLICT(id) DO UPDATE SET user_id=excluded.user_id,last_seen=CURRENT_TIMESTAMP`, sid, userID)
	return err
}

func (r *UserRepo) SessionUser(sid string) (*domain.User, error) {
	var u domain.User
	err := r.DB.Get(&u, `
      SELECT u.id,u.email,u.name,u.password_hash,u.account_type,u.city,u.region,u.profile_image
      FROM sessions s
      JOIN users u ON u.id=s.user_id
      WHERE s.id=?`, sid)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) UnbindSession(sid string) error {
	_, err := r.DB.Exec(`UPDATE sessions SET user_id=NULL,last_seen=CURRENT_TIMESTAMP WHERE id=?`, sid)
	return err
}

// SetLocation completes the profile fields new listings inherit.
func (r *UserRepo) SetLocation(userID, city, region string) error {
	_, err := r.DB.Exec(`UPDATE users SET city=?, region=?, updated_at=CURRENT_TIMESTAMP WHERE id=?`, city, region, userID)
	return err
}

// ApplyUpgrade persists a completed upgrade application and flips the
// account type in the same transaction.
func (r *UserRepo) ApplyUpgrade(userID string, app domain.UpgradeApplication) error {
	gallery, err := json.Marshal(app.GalleryURLs)
	if err != nil {
		return err
	}

	tx, err := r.DB.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
	  INSERT INTO ngo_profiles
	    (user_id, org_name, registration_id, cause, website, established, reach,
	     description, profile_image, gallery_json, payment_qr)
	  VALUES (?,?,?,?,?,?,?,?,?,?,?)
	  ON CONFLICT(user_id) DO UPDATE SET
	    org_name=excluded.org_name, registration_id=excluded.registration_id,
	    cause=excluded.cause, website=excluded.website, established=excluded.established,
	    reach=excluded.reach, description=excluded.description,
	    profile_image=excluded.profile_image, gallery_json=excluded.gallery_json,
	    payment_qr=excluded.payment_qr
	`, userID, app.OrgName, app.RegistrationID, app.Cause, app.Website, app.Established,
		app.Reach, app.Description, app.ProfileImageURL, string(gallery), app.PaymentQRURL); err != nil {
		return err
	}

	if _, err := tx.Exec(`
	  UPDATE users SET account_type='NGO', profile_image=?, updated_at=CURRENT_TIMESTAMP WHERE id=?
	`, app.ProfileImageURL, userID); err != nil {
		return err
	}

	return tx.Commit()
}

// NGOProfile returns the persisted upgrade record, if any.
func (r *UserRepo) NGOProfile(userID string) (*domain.NGOProfile, error) {
	var p domain.NGOProfile
	err := r.DB.Get(&p, `
	  SELECT user_id, org_name, registration_id, cause, website, established, reach,
	         description, profile_image, gallery_json, payment_qr, created_at
	  FROM ngo_profiles WHERE user_id=?`, userID)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
