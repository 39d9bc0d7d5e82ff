package payment

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

type State string

const (
	StateMethodSelect State = "method-select"
	StateQRDisplay    State = "qr-display"
	StateProcessing   State = "processing"
	StateSuccess      State = "success"
)

var (
	ErrBadTransition = errors.New("action not available in this state")
	ErrCancelled     = errors.New("payment cancelled")
)

// Dialog is the payment flow for one upgrade application:
// method-select -> qr-display -> processing -> success. Cancel is
// allowed from every state except success and discards dialog state
// only; the surrounding application is untouched.
type Dialog struct {
	mu        sync.Mutex
	state     State
	method    string
	ref       string
	verifier  Verifier
	onSuccess func(ref string)
	fired     bool
	started   time.Time
	duration  time.Duration
	lastErr   string
}

func NewDialog(v Verifier, estimated time.Duration, onSuccess func(ref string)) *Dialog {
	if onSuccess == nil {
		onSuccess = func(string) {}
	}
	if estimated <= 0 {
		estimated = 3 * time.Second
	}
	return &Dialog{state: StateMethodSelect, verifier: v, onSuccess: onSuccess, duration: estimated}
}

func (d *Dialog) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Dialog) Method() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.method
}

func (d *Dialog) Ref() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ref
}

func (d *Dialog) LastErr() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastErr
}

// SelectMethod moves method-select -> qr-display and mints the payment
// reference shown next to the QR code.
func (d *Dialog) SelectMethod(method string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != StateMethodSelect {
		return ErrBadTransition
	}
	if method == "" {
		method = "qr"
	}
	d.method = method
	d.ref = uuid.NewString()
	d.state = StateQRDisplay
	return nil
}

// ConfirmPaid ("I've Paid") moves qr-display -> processing and blocks on
// the verifier; on success it transitions to success and invokes the
// success callback exactly once.
func (d *Dialog) ConfirmPaid(ctx context.Context) error {
	d.mu.Lock()
	if d.state != StateQRDisplay {
		d.mu.Unlock()
		return ErrBadTransition
	}
	d.state = StateProcessing
	d.started = time.Now()
	d.lastErr = ""
	ref := d.ref
	d.mu.Unlock()

	err := d.verifier.Verify(ctx, ref)

	d.mu.Lock()
	if d.state != StateProcessing {
		// Cancelled while the verifier was pending; the result is
		// discarded and the callback never fires.
		d.mu.Unlock()
		return ErrCancelled
	}
	if err != nil {
		d.state = StateQRDisplay
		d.lastErr = "Payment could not be confirmed. Please try again."
		d.mu.Unlock()
		return err
	}
	d.state = StateSuccess
	fire := !d.fired
	d.fired = true
	d.mu.Unlock()

	if fire {
		d.onSuccess(ref)
	}
	return nil
}

// Cancel discards all dialog state. Not available from success.
func (d *Dialog) Cancel() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == StateSuccess {
		return ErrBadTransition
	}
	d.state = StateMethodSelect
	d.method = ""
	d.ref = ""
	d.lastErr = ""
	return nil
}

// Progress is cosmetic: elapsed share of the estimated processing
// duration, clamped to 100. It reaches 100 at or before the success
// transition and gates nothing.
func (d *Dialog) Progress() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch d.state {
	case StateSuccess:
		return 100
	case StateProcessing:
		p := int(time.Since(d.started) * 100 / d.duration)
		if p > 100 {
			p = 100
		}
		return p
	default:
		return 0
	}
}
