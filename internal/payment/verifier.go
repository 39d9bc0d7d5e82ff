// Package payment holds the upgrade payment dialog and its pluggable
// verification capability.
package payment

import (
	"context"
	"errors"
	"time"

	"foodshare/internal/config"
)

// Verifier confirms that a payment reference has been settled. The only
// built-in implementation is the fixed-delay simulation; a real gateway
// client would satisfy the same interface.
type Verifier interface {
	Verify(ctx context.Context, ref string) error
}

// SimulatedVerifier fabricates a successful payment after a fixed
// delay. It performs no verification of any kind.
type SimulatedVerifier struct {
	Delay time.Duration
}

func (v SimulatedVerifier) Verify(ctx context.Context, _ string) error {
	d := v.Delay
	if d <= 0 {
		d = 3 * time.Second
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NewVerifier selects the verifier implementation from configuration.
func NewVerifier(cfg config.Config) (Verifier, error) {
	switch cfg.PaymentMode {
	case "simulated":
		return SimulatedVerifier{Delay: cfg.PaymentDelay}, nil
	default:
		return nil, errors.New("unknown payment mode: " + cfg.PaymentMode)
	}
}
