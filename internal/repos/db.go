package repos

import (
	"log"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}

	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	// Categories are a fixed set; re-seeded on every start (idempotent).
	if err := seedCategories(db); err != nil {
		return nil, err
	}
	if err := seedUsers(db); err != nil {
		return nil, err
	}
	if err := seedListings(db); err != nil {
		return nil, err
	}

	return db, nil
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
PRAGMA foreign_keys = ON;

-- Categories (fixed set)
CREATE TABLE IF NOT EXISTS categories(
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_categories_name_nocase ON categories(LOWER(name));

-- Users & Sessions
CREATE TABLE IF NOT EXISTS users(
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  account_type TEXT NOT NULL DEFAULT 'INDIVIDUAL' CHECK (account_type IN ('INDIVIDUAL','NGO')),
  city TEXT NOT NULL DEFAULT '',
  region TEXT NOT NULL DEFAULT '',
  profile_image TEXT NOT NULL DEFAULT '',
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(LOWER(email));

CREATE TABLE IF NOT EXISTS sessions(
  id TEXT PRIMARY KEY,               -- same value as the 'sid' cookie
  user_id TEXT NULL REFERENCES users(id) ON DELETE SET NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  last_seen  TEXT
);
CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);

-- Listings
CREATE TABLE IF NOT EXISTS listings(
  id TEXT PRIMARY KEY,
  owner_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  owner_name TEXT NOT NULL,
  category_id TEXT NOT NULL REFERENCES categories(id) ON DELETE RESTRICT,
  title TEXT NOT NULL,
  description TEXT NOT NULL,
  quantity TEXT NOT NULL,
  price NUMERIC NULL CHECK (price IS NULL OR price >= 0),
  is_donation INTEGER NOT NULL DEFAULT 0,
  expiry_date TEXT NOT NULL,
  primary_image TEXT NOT NULL,
  images_json TEXT NOT NULL DEFAULT '[]',
  city TEXT NOT NULL DEFAULT '',
  region TEXT NOT NULL DEFAULT '',
  is_available INTEGER NOT NULL DEFAULT 1,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_listings_category   ON listings(category_id);
CREATE INDEX IF NOT EXISTS idx_listings_owner      ON listings(owner_id);
CREATE INDEX IF NOT EXISTS idx_listings_title      ON listings(LOWER(title));
CREATE INDEX IF NOT EXISTS idx_listings_created_at ON listings(created_at);

-- Saved listings (per browser session)
CREATE TABLE IF NOT EXISTS saved_listings(
  session_id TEXT NOT NULL,
  listing_id TEXT NOT NULL REFERENCES listings(id) ON DELETE CASCADE,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  PRIMARY KEY (session_id, listing_id)
);

-- NGO upgrade profiles (written only after the payment step succeeds)
CREATE TABLE IF NOT EXISTS ngo_profiles(
  user_id TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
  org_name TEXT NOT NULL,
  registration_id TEXT NOT NULL,
  cause TEXT NOT NULL,
  website TEXT NOT NULL DEFAULT '',
  established TEXT NOT NULL DEFAULT '',
  reach TEXT NOT NULL DEFAULT '',
  description TEXT NOT NULL DEFAULT '',
  profile_image TEXT NOT NULL DEFAULT '',
  gallery_json TEXT NOT NULL DEFAULT '[]',
  payment_qr TEXT NOT NULL DEFAULT '',
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
`
	_, err := db.Exec(schema)
	return err
}

// seedCategories keeps the fixed category set in place (idempotent).
func seedCategories(db *sqlx.DB) error {
	cats := [][2]string{
		{"fruits-vegetables", "Fruits & Vegetables"},
		{"bread-bakery", "Bread & Bakery"},
		{"dairy-eggs", "Dairy & Eggs"},
		{"cooked-meals", "Cooked Meals"},
		{"pantry-staples", "Pantry Staples"},
		{"beverages", "Beverages"},
	}
	tx := db.MustBegin()
	defer func() { _ = tx.Rollback() }()
	for _, c := range cats {
		if _, err := tx.Exec(`
			INSERT INTO categories(id,name) VALUES(?,?)
			ON CONFLICT(id) DO NOTHING
		`, c[0], c[1]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// seedUsers ensures demo accounts exist (idempotent).
func seedUsers(db *sqlx.DB) error {
	type u struct {
		ID, Email, Name, Type, City, Region, Hash string
	}
	mk := func(id, email, name, typ, city, region, raw string) u {
		h, _ := bcrypt.GenerateFromPassword([]byte(raw), 12)
		return u{ID: id, Email: email, Name: name, Type: typ, City: city, Region: region, Hash: string(h)}
	}

	users := []u{
		mk("u-alice", "alice@foodshare.test", "Alice", "INDIVIDUAL", "College Park", "20742", "Passw0rd!"),
		mk("u-bob", "bob@foodshare.test", "Bob", "INDIVIDUAL", "", "", "Passw0rd!"),
		mk("u-helping-hands", "contact@helpinghands.test", "Helping Hands", "NGO", "Baltimore", "21201", "Passw0rd!"),
	}

	tx := db.MustBegin()
	defer func() { _ = tx.Rollback() }()

	for _, x := range users {
		if _, err := tx.Exec(`
			INSERT INTO users(id,email,name,password_hash,account_type,city,region)
			VALUES(?,?,?,?,?,?,?)
			ON CONFLICT(email) DO NOTHING
		`, x.ID, x.Email, x.Name, x.Hash, x.Type, x.City, x.Region); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// seedListings inserts a couple of demo listings if missing (idempotent).
func seedListings(db *sqlx.DB) error {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM listings`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	log.Println("[seed] inserting demo listings")

	tx := db.MustBegin()
	tx.MustExec(`INSERT INTO listings
	  (id,owner_id,owner_name,category_id,title,description,quantity,price,is_donation,expiry_date,primary_image,images_json,city,region,is_available)
	  VALUES
	  ('lst-sourdough','u-alice','Alice','bread-bakery','Day-old Sourdough','Two loaves from this morning, still soft.','2 loaves',NULL,1,
	   date('now','+2 days'),'https://cdn.foodshare.test/demo/sourdough.jpg','["https://cdn.foodshare.test/demo/sourdough.jpg"]','College Park','20742',1),
	  ('lst-apples','u-alice','Alice','fruits-vegetables','Crate of Apples','Slightly bruised but perfectly good.','about 5 kg',3.50,0,
	   date('now','+7 days'),'https://cdn.foodshare.test/demo/apples.jpg','["https://cdn.foodshare.test/demo/apples.jpg"]','College Park','20742',1)`)
	return tx.Commit()
}
