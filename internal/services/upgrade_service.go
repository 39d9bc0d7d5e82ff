package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"foodshare/internal/domain"
	"foodshare/internal/errs"
	"foodshare/internal/gallery"
	"foodshare/internal/media"
	"foodshare/internal/payment"
	"foodshare/internal/repos"
	"foodshare/internal/validate"
)

// Upgrade wizard steps.
const (
	StepInfo    = 1
	StepImages  = 2
	StepPayment = 3
	StepSuccess = 4
)

const maxGalleryImages = 4

// UpgradeFlow is one user's in-progress individual -> NGO application.
// Nothing is persisted until the payment step succeeds.
type UpgradeFlow struct {
	mu     sync.Mutex
	userID string
	step   int
	app    domain.UpgradeApplication
	errMsg string

	// existingProfile carries a profile image from a prior session; it
	// satisfies the step-2 requirement without a fresh selection.
	existingProfile string

	Profile *gallery.Staging
	Gallery *gallery.Staging
	QR      *gallery.Staging

	dialog *payment.Dialog
}

type UpgradeService struct {
	Users    *repos.UserRepo
	Uploader gallery.BatchUploader
	Verifier payment.Verifier
	Previews *gallery.PreviewStore
	Delay    time.Duration

	mu    sync.Mutex
	flows map[string]*UpgradeFlow
}

func NewUpgradeService(users *repos.UserRepo, up gallery.BatchUploader, v payment.Verifier, previews *gallery.PreviewStore, delay time.Duration) *UpgradeService {
	return &UpgradeService{
		Users:    users,
		Uploader: up,
		Verifier: v,
		Previews: previews,
		Delay:    delay,
		flows:    make(map[string]*UpgradeFlow),
	}
}

// Flow returns the user's in-progress application, creating one at
// step 1 if none exists.
func (s *UpgradeService) Flow(user *domain.User) *UpgradeFlow {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.flows[user.ID]; ok {
		return f
	}
	f := &UpgradeFlow{
		userID:          user.ID,
		step:            StepInfo,
		existingProfile: user.ProfileImage,
		Profile:         gallery.NewStaging(1, s.Previews, nil),
		Gallery:         gallery.NewStaging(maxGalleryImages, s.Previews, nil),
		QR:              gallery.NewStaging(1, s.Previews, nil),
	}
	s.flows[user.ID] = f
	return f
}

// Existing returns the user's in-progress application without creating
// one.
func (s *UpgradeService) Existing(userID string) *UpgradeFlow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flows[userID]
}

// Discard drops a user's wizard state and releases its staged previews.
func (s *UpgradeService) Discard(userID string) {
	s.mu.Lock()
	f, ok := s.flows[userID]
	delete(s.flows, userID)
	s.mu.Unlock()
	if ok {
		f.Profile.Clear()
		f.Gallery.Clear()
		f.QR.Clear()
	}
}

// SubmitImages is the step 2 -> 3 transition: enforce the profile-image
// requirement, upload the newly staged roles as one batch, replace only
// the roles that changed, then open the payment dialog wired to
// complete the application on success.
func (s *UpgradeService) SubmitImages(ctx context.Context, f *UpgradeFlow) error {
	f.mu.Lock()
	if f.step != StepImages {
		f.mu.Unlock()
		return fmt.Errorf("%w: not on the images step", errs.ErrValidation)
	}
	if f.Profile.Len() == 0 && f.existingProfile == "" {
		f.errMsg = "A profile image is required"
		f.mu.Unlock()
		return fmt.Errorf("%w: %s", errs.ErrValidation, f.errMsg)
	}
	profile := f.Profile.Files()
	gal := f.Gallery.Files()
	qr := f.QR.Files()
	f.mu.Unlock()

	files, off := buildBatch(profile, gal, qr)
	var urls []string
	if len(files) > 0 {
		var err error
		urls, err = s.Uploader.UploadBatch(ctx, files)
		if err != nil {
			f.mu.Lock()
			f.errMsg = "Image upload failed. Please try again."
			f.mu.Unlock()
			return err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(profile) > 0 {
		f.app.ProfileImageURL = urls[off.profile]
	} else {
		f.app.ProfileImageURL = f.existingProfile
	}
	if len(gal) > 0 {
		f.app.GalleryURLs = urls[off.gallery : off.gallery+len(gal)]
	}
	if len(qr) > 0 {
		f.app.PaymentQRURL = urls[off.qr]
	}
	f.errMsg = ""
	f.step = StepPayment
	f.dialog = payment.NewDialog(s.Verifier, s.Delay, func(string) { _ = s.Complete(f) })
	return nil
}

// Complete persists the finished application and enters the success
// step. Invoked by the payment dialog's success callback.
func (s *UpgradeService) Complete(f *UpgradeFlow) error {
	f.mu.Lock()
	app := f.app
	userID := f.userID
	f.mu.Unlock()

	if err := s.Users.ApplyUpgrade(userID, app); err != nil {
		f.mu.Lock()
		f.errMsg = "Could not save your upgrade. Please contact support."
		f.mu.Unlock()
		return fmt.Errorf("%w: %v", errs.ErrPersist, err)
	}

	f.mu.Lock()
	f.step = StepSuccess
	f.errMsg = ""
	f.mu.Unlock()

	f.Profile.Clear()
	f.Gallery.Clear()
	f.QR.Clear()
	return nil
}

func (f *UpgradeFlow) Step() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}

func (f *UpgradeFlow) Err() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errMsg
}

func (f *UpgradeFlow) Application() domain.UpgradeApplication {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.app
}

func (f *UpgradeFlow) Dialog() *payment.Dialog {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dialog
}

// HasProfileImage reports whether step 2 can advance: a freshly staged
// profile image or one already on the account.
func (f *UpgradeFlow) HasProfileImage() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Profile.Len() > 0 || f.existingProfile != ""
}

// SubmitInfo validates step 1 and advances to the images step. Name,
// registration id and cause are required; the rest is optional.
func (f *UpgradeFlow) SubmitInfo(orgName, regID, cause, website, established, reach, description string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step != StepInfo {
		return fmt.Errorf("%w: not on the info step", errs.ErrValidation)
	}
	name, ok := validate.Name(orgName)
	if !ok {
		f.errMsg = "Organization name is required"
		return fmt.Errorf("%w: %s", errs.ErrValidation, f.errMsg)
	}
	reg, ok := validate.RegistrationID(regID)
	if !ok {
		f.errMsg = "Registration ID is required"
		return fmt.Errorf("%w: %s", errs.ErrValidation, f.errMsg)
	}
	c, ok := validate.Text(cause, 200)
	if !ok {
		f.errMsg = "Cause is required"
		return fmt.Errorf("%w: %s", errs.ErrValidation, f.errMsg)
	}
	f.app.OrgName = name
	f.app.RegistrationID = reg
	f.app.Cause = c
	f.app.Website = website
	f.app.Established = established
	f.app.Reach = reach
	f.app.Description = description
	f.errMsg = ""
	f.step = StepImages
	return nil
}

// Back returns from the images step to the info step. No other
// backward transition exists.
func (f *UpgradeFlow) Back() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step != StepImages {
		return fmt.Errorf("%w: cannot go back from this step", errs.ErrValidation)
	}
	f.step = StepInfo
	return nil
}

// CancelPayment discards the payment dialog state; the application and
// step are untouched.
func (f *UpgradeFlow) CancelPayment() error {
	f.mu.Lock()
	d := f.dialog
	f.mu.Unlock()
	if d == nil {
		return fmt.Errorf("%w: no payment in progress", errs.ErrValidation)
	}
	return d.Cancel()
}

type batchOffsets struct {
	profile, gallery, qr int
}

func buildBatch(profile, gal, qr []media.File) ([]media.File, batchOffsets) {
	var files []media.File
	var off batchOffsets
	off.profile = len(files)
	files = append(files, profile...)
	off.gallery = len(files)
	files = append(files, gal...)
	off.qr = len(files)
	files = append(files, qr...)
	return files, off
}
