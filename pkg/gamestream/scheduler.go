package gamestream

import "time"

// Scheduler runs callbacks after a delay. The Manager uses it for reconnect
// timers so tests can drive backoff without waiting.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a scheduled callback that can be cancelled.
type Timer interface {
	// Stop prevents the callback from running. It reports whether the call
	// stopped the timer before it fired.
	Stop() bool
}

// WallClock schedules callbacks with time.AfterFunc.
type WallClock struct{}

func (WallClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
