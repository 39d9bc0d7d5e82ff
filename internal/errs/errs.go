// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

var (
	// ErrValidation indicates a missing or malformed required field; no
	// store or network call is attempted when it is returned.
	ErrValidation = errors.New("validation failed")

	// ErrCapacity indicates an image selection would exceed the cap.
	// State is left unchanged.
	ErrCapacity = errors.New("image limit reached")

	// ErrUpload indicates the media host rejected a file or the network
	// call failed. The whole batch is discarded; the user may retry.
	ErrUpload = errors.New("upload failed")

	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden indicates the viewer is not the record's owner.
	ErrForbidden = errors.New("forbidden")

	// ErrPersist indicates a create/update against the store failed.
	ErrPersist = errors.New("could not save")

	// ErrMisconfigured indicates required media credentials are absent;
	// fatal to every upload call.
	ErrMisconfigured = errors.New("media upload not configured")
)
