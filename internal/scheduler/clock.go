package scheduler

import "time"

// Clock supplies the current time, injectable so decision timing is
// testable without sleeps.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// SystemClock returns the wall-clock Clock.
func SystemClock() Clock { return realClock{} }
