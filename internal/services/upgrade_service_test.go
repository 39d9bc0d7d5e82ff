package services_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"foodshare/internal/domain"
	"foodshare/internal/errs"
	"foodshare/internal/gallery"
	"foodshare/internal/media"
	"foodshare/internal/payment"
	"foodshare/internal/repos"
	"foodshare/internal/services"
)

func upgradeDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	schema := `
	CREATE TABLE users(id TEXT PRIMARY KEY, email TEXT, name TEXT, password_hash TEXT,
	  account_type TEXT DEFAULT 'INDIVIDUAL', city TEXT DEFAULT '', region TEXT DEFAULT '',
	  profile_image TEXT DEFAULT '', created_at TEXT, updated_at TEXT);
	CREATE TABLE ngo_profiles(user_id TEXT PRIMARY KEY, org_name TEXT, registration_id TEXT,
	  cause TEXT, website TEXT, established TEXT, reach TEXT, description TEXT,
	  profile_image TEXT, gallery_json TEXT, payment_qr TEXT, created_at TEXT DEFAULT CURRENT_TIMESTAMP);

	INSERT INTO users(id,email,name,password_hash) VALUES ('u-alice','alice@foodshare.test','Alice','x');
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatal(err)
	}
	return db
}

type countingUploader struct {
	calls int
	fail  bool
}

func (u *countingUploader) UploadBatch(_ context.Context, files []media.File) ([]string, error) {
	u.calls++
	if u.fail {
		return nil, fmt.Errorf("%w: host down", errs.ErrUpload)
	}
	urls := make([]string, len(files))
	for i, f := range files {
		urls[i] = "https://cdn.test/" + f.Name
	}
	return urls, nil
}

func pngFile(t *testing.T, name string) media.File {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(0, 0, color.RGBA{G: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return media.File{Name: name, Content: buf.Bytes()}
}

func newUpgradeSvc(t *testing.T, up gallery.BatchUploader) (*services.UpgradeService, *repos.UserRepo) {
	t.Helper()
	users := repos.NewUserRepo(upgradeDB(t))
	svc := services.NewUpgradeService(users, up,
		payment.SimulatedVerifier{Delay: 10 * time.Millisecond},
		gallery.NewPreviewStore(t.TempDir()),
		10*time.Millisecond)
	return svc, users
}

func TestUpgradeInfoStepBlocksOnMissingFields(t *testing.T) {
	svc, _ := newUpgradeSvc(t, &countingUploader{})
	f := svc.Flow(&domain.User{ID: "u-alice", Name: "Alice"})

	err := f.SubmitInfo("", "REG-1", "Food rescue", "", "", "", "")
	if !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want ErrValidation, got %v", err)
	}
	if f.Step() != services.StepInfo || f.Err() == "" {
		t.Fatalf("step=%d err=%q", f.Step(), f.Err())
	}

	if err := f.SubmitInfo("Helping Hands", "REG-1", "Food rescue", "https://hh.test", "2015", "3 cities", "We rescue food."); err != nil {
		t.Fatal(err)
	}
	if f.Step() != services.StepImages {
		t.Fatalf("want step 2, got %d", f.Step())
	}
}

func TestUpgradeImagesStepRequiresProfileImage(t *testing.T) {
	up := &countingUploader{}
	svc, _ := newUpgradeSvc(t, up)
	f := svc.Flow(&domain.User{ID: "u-alice", Name: "Alice"})
	if err := f.SubmitInfo("Helping Hands", "REG-1", "Food rescue", "", "", "", ""); err != nil {
		t.Fatal(err)
	}

	err := svc.SubmitImages(context.Background(), f)
	if !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want ErrValidation, got %v", err)
	}
	if f.Step() != services.StepImages {
		t.Fatalf("step moved to %d", f.Step())
	}
	if f.Err() == "" {
		t.Fatal("no inline error")
	}
	if up.calls != 0 {
		t.Fatal("upload attempted without a profile image")
	}
}

func TestUpgradeExistingProfileImageSatisfiesStepTwo(t *testing.T) {
	up := &countingUploader{}
	svc, _ := newUpgradeSvc(t, up)
	f := svc.Flow(&domain.User{ID: "u-alice", Name: "Alice", ProfileImage: "https://cdn.test/old-profile.jpg"})
	if err := f.SubmitInfo("Helping Hands", "REG-1", "Food rescue", "", "", "", ""); err != nil {
		t.Fatal(err)
	}

	if err := svc.SubmitImages(context.Background(), f); err != nil {
		t.Fatal(err)
	}
	if f.Step() != services.StepPayment {
		t.Fatalf("want step 3, got %d", f.Step())
	}
	// nothing newly selected, so no batch was sent and the old URL is kept
	if up.calls != 0 {
		t.Fatalf("uploader called %d times", up.calls)
	}
	if f.Application().ProfileImageURL != "https://cdn.test/old-profile.jpg" {
		t.Fatalf("existing profile image not carried over: %q", f.Application().ProfileImageURL)
	}
}

func TestUpgradeBackNavigation(t *testing.T) {
	svc, _ := newUpgradeSvc(t, &countingUploader{})
	f := svc.Flow(&domain.User{ID: "u-alice", Name: "Alice"})

	if err := f.Back(); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("back from step 1 must fail, got %v", err)
	}
	if err := f.SubmitInfo("Helping Hands", "REG-1", "Food rescue", "", "", "", ""); err != nil {
		t.Fatal(err)
	}
	if err := f.Back(); err != nil {
		t.Fatal(err)
	}
	if f.Step() != services.StepInfo {
		t.Fatalf("want step 1, got %d", f.Step())
	}
}

func TestUpgradeFullFlow(t *testing.T) {
	up := &countingUploader{}
	svc, users := newUpgradeSvc(t, up)
	f := svc.Flow(&domain.User{ID: "u-alice", Name: "Alice"})

	if err := f.SubmitInfo("Helping Hands", "REG-1", "Food rescue", "https://hh.test", "2015", "3 cities", "We rescue food."); err != nil {
		t.Fatal(err)
	}

	f.Profile.AddFiles([]media.File{pngFile(t, "profile.png")})
	f.Gallery.AddFiles([]media.File{pngFile(t, "g1.png"), pngFile(t, "g2.png")})
	f.QR.AddFiles([]media.File{pngFile(t, "qr.png")})

	if err := svc.SubmitImages(context.Background(), f); err != nil {
		t.Fatal(err)
	}
	if up.calls != 1 {
		t.Fatalf("want one batch upload, got %d", up.calls)
	}
	app := f.Application()
	if app.ProfileImageURL != "https://cdn.test/profile.png" {
		t.Fatalf("profile url %q", app.ProfileImageURL)
	}
	if len(app.GalleryURLs) != 2 || app.GalleryURLs[0] != "https://cdn.test/g1.png" || app.GalleryURLs[1] != "https://cdn.test/g2.png" {
		t.Fatalf("gallery urls %v", app.GalleryURLs)
	}
	if app.PaymentQRURL != "https://cdn.test/qr.png" {
		t.Fatalf("qr url %q", app.PaymentQRURL)
	}

	d := f.Dialog()
	if d == nil || d.State() != payment.StateMethodSelect {
		t.Fatal("payment dialog not opened")
	}
	if err := d.SelectMethod("qr"); err != nil {
		t.Fatal(err)
	}
	if err := d.ConfirmPaid(context.Background()); err != nil {
		t.Fatal(err)
	}

	if f.Step() != services.StepSuccess {
		t.Fatalf("want step 4, got %d", f.Step())
	}
	u, err := users.ByID("u-alice")
	if err != nil {
		t.Fatal(err)
	}
	if u.AccountType != "NGO" {
		t.Fatalf("account type not flipped: %s", u.AccountType)
	}
	if u.ProfileImage != "https://cdn.test/profile.png" {
		t.Fatalf("profile image not written: %q", u.ProfileImage)
	}
	p, err := users.NGOProfile("u-alice")
	if err != nil {
		t.Fatal(err)
	}
	if p.OrgName != "Helping Hands" || p.RegistrationID != "REG-1" || p.PaymentQR != "https://cdn.test/qr.png" {
		t.Fatalf("ngo profile incomplete: %+v", p)
	}
}

func TestUpgradeUploadFailureStaysOnImages(t *testing.T) {
	up := &countingUploader{fail: true}
	svc, _ := newUpgradeSvc(t, up)
	f := svc.Flow(&domain.User{ID: "u-alice", Name: "Alice"})
	if err := f.SubmitInfo("Helping Hands", "REG-1", "Food rescue", "", "", "", ""); err != nil {
		t.Fatal(err)
	}
	f.Profile.AddFiles([]media.File{pngFile(t, "profile.png")})

	err := svc.SubmitImages(context.Background(), f)
	if !errors.Is(err, errs.ErrUpload) {
		t.Fatalf("want ErrUpload, got %v", err)
	}
	if f.Step() != services.StepImages {
		t.Fatalf("step moved to %d", f.Step())
	}
	if f.Err() == "" {
		t.Fatal("no inline error after failed batch")
	}
	// the staged files are retained so the user can simply retry
	if f.Profile.Len() != 1 {
		t.Fatal("staged profile image lost")
	}
}

func TestUpgradeCancelPaymentKeepsApplication(t *testing.T) {
	up := &countingUploader{}
	svc, _ := newUpgradeSvc(t, up)
	f := svc.Flow(&domain.User{ID: "u-alice", Name: "Alice"})
	if err := f.SubmitInfo("Helping Hands", "REG-1", "Food rescue", "", "", "", ""); err != nil {
		t.Fatal(err)
	}
	f.Profile.AddFiles([]media.File{pngFile(t, "profile.png")})
	if err := svc.SubmitImages(context.Background(), f); err != nil {
		t.Fatal(err)
	}
	if err := f.Dialog().SelectMethod("qr"); err != nil {
		t.Fatal(err)
	}

	if err := f.CancelPayment(); err != nil {
		t.Fatal(err)
	}
	if f.Dialog().State() != payment.StateMethodSelect {
		t.Fatal("dialog state not discarded")
	}
	if f.Step() != services.StepPayment {
		t.Fatalf("cancel must not move the wizard, step=%d", f.Step())
	}
	if f.Application().OrgName != "Helping Hands" {
		t.Fatal("application mutated by cancel")
	}
}

func TestUpgradeDiscardReleasesPreviews(t *testing.T) {
	svc, _ := newUpgradeSvc(t, &countingUploader{})
	user := &domain.User{ID: "u-alice", Name: "Alice"}
	f := svc.Flow(user)
	f.Profile.AddFiles([]media.File{pngFile(t, "profile.png")})

	svc.Discard("u-alice")
	if f.Profile.Len() != 0 {
		t.Fatal("staged files not cleared")
	}
	// a fresh flow starts over at step 1
	if svc.Flow(user).Step() != services.StepInfo {
		t.Fatal("flow not recreated")
	}
}
