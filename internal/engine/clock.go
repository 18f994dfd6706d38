package engine

import (
	"time"

	"github.com/tartampluch/birthday-board/internal/config"
)

// ReferenceZone is the fixed UTC+9 offset every birthday computation runs in,
// independent of the host's local timezone.
var ReferenceZone = time.FixedZone(config.ReferenceZoneName, config.ReferenceZoneOffset)

// Clock abstracts time.Now() to allow deterministic testing.
// It is used by the Board to determine "today".
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// NowInReferenceZone reads the clock once and returns the instant expressed
// in ReferenceZone. The instant is normalized to UTC first, so the host
// location (or a test clock's location) never leaks into the calendar fields.
func NowInReferenceZone(c Clock) time.Time {
	return InReferenceZone(c.Now())
}

// InReferenceZone converts t into ReferenceZone. Year, Month, Day and Hour of
// the result read as UTC+9 wall-clock time.
func InReferenceZone(t time.Time) time.Time {
	return t.UTC().In(ReferenceZone)
}
