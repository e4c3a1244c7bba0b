package booking

import "time"

// Timer is a pending deferred call.
type Timer interface {
	Stop() bool
}

// Scheduler defers work. The form uses it for the post-success reset so tests
// can fire timers by hand.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// SystemScheduler schedules on the runtime timer wheel.
type SystemScheduler struct{}

// AfterFunc calls f in its own goroutine after d.
func (SystemScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
