// Package schedule runs delayed callbacks one at a time.
//
// Every callback handed to a Scheduler runs on a single logical thread, so
// callbacks never race with each other or with work posted through Do.
package schedule

import "time"

// Timer is a pending callback.
type Timer interface {
	// Stop cancels the callback. It reports false if the callback already ran or was stopped.
	Stop() bool
}

// Scheduler delays callbacks and tells the time.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
	Now() time.Time
}

// Executor is a Scheduler that also runs work on its thread and waits for it.
type Executor interface {
	Scheduler
	Do(f func()) error
}

var (
	_ Executor = (*Loop)(nil)
	_ Executor = (*Manual)(nil)
)
