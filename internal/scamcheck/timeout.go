package scamcheck

import (
	"context"
	"fmt"
	"time"

	"github.com/internradar/internradar/internal/model"
)

// Timeout bounds every Check of the wrapped provider. A check that overruns
// returns an error wrapping context.DeadlineExceeded.
type Timeout struct {
	inner   model.ScamSignalProvider
	timeout time.Duration
}

// NewTimeout wraps inner so each Check completes within d.
func NewTimeout(inner model.ScamSignalProvider, d time.Duration) *Timeout {
	return &Timeout{inner: inner, timeout: d}
}

func (t *Timeout) Check(ctx context.Context, company string) ([]model.ScamFlag, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	type result struct {
		flags []model.ScamFlag
		err   error
	}
	// Buffered so a provider that ignores ctx does not leak a blocked sender.
	done := make(chan result, 1)
	go func() {
		flags, err := t.inner.Check(ctx, company)
		done <- result{flags, err}
	}()

	select {
	case r := <-done:
		return r.flags, r.err
	case <-ctx.Done():
		return nil, fmt.Errorf("scam check for %q: %w", company, ctx.Err())
	}
}
