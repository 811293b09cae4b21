package gamestream

import (
	"fmt"
	"time"
)

const (
	DefaultBaseDelay = 1 * time.Second
	DefaultMaxDelay  = 30 * time.Second
)

// Backoff is an exponential reconnect delay policy: the n-th consecutive
// failure waits Base * 2^(n-1), capped at Max.
type Backoff struct {
	Base time.Duration
	Max  time.Duration
}

// DefaultBackoff returns the 1s..30s policy.
func DefaultBackoff() Backoff {
	return Backoff{Base: DefaultBaseDelay, Max: DefaultMaxDelay}
}

// Validate checks that 0 < Base <= Max.
func (b Backoff) Validate() error {
	if b.Base <= 0 {
		return fmt.Errorf("backoff base delay must be positive, got %s", b.Base)
	}
	if b.Max < b.Base {
		return fmt.Errorf("backoff max delay %s is less than base delay %s", b.Max, b.Base)
	}
	return nil
}

// Delay returns the wait before retrying after the n-th consecutive failure.
// n < 1 is treated as 1.
func (b Backoff) Delay(n int) time.Duration {
	d := b.Base
	for i := 1; i < n; i++ {
		d = b.Next(d)
		if d == b.Max {
			break
		}
	}
	return d
}

// Next doubles d, capped at Max.
func (b Backoff) Next(d time.Duration) time.Duration {
	if d >= b.Max || d > b.Max/2 {
		return b.Max
	}
	return d * 2
}
