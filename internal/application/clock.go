package application

import "time"

// Clock lets services take timestamps that tests can pin
type Clock interface {
	Now() time.Time
}

// SystemClock returns the wall clock in UTC
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always returns T
type FixedClock struct{ T time.Time }

func (c FixedClock) Now() time.Time { return c.T }
