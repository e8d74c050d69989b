package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock supplies the current instant. Analytics windows are resolved
// against it so they stay deterministic under test.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// NewSystemClock returns a Clock backed by the wall clock, in UTC.
func NewSystemClock() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

var Module = fx.Module("clock",
	fx.Provide(NewSystemClock),
)
