package clock

import "time"

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func NewSystem() Clock { return systemClock{} }

func (systemClock) Now() time.Time { return time.Now() }

type fixedClock struct {
	t time.Time
}

// NewFixed returns a Clock frozen at t, for tests.
func NewFixed(t time.Time) Clock { return fixedClock{t: t} }

func (c fixedClock) Now() time.Time { return c.t }
