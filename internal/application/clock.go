package application

import "time"

// Clock supplies the timestamp stamped on stored analyses.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// ClockFunc adapts a plain function to Clock; tests use it to pin time.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }
