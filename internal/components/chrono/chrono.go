package chrono

import (
	"time"
)

var lagos *time.Location

func init() {
	var err error
	lagos, err = time.LoadLocation("Africa/Lagos")
	if err != nil {
		// WAT has no DST, a fixed zone is equivalent when tzdata is missing.
		lagos = time.FixedZone("WAT", 60*60)
	}
}

// Lagos returns a [*time.Location] for Africa/Lagos, the timezone exam years are counted in.
func Lagos() *time.Location {
	return lagos
}

// TimeAPI is the interface that anything depending on the system clock should use.
type TimeAPI interface {
	// Now returns the current time in Africa/Lagos.
	Now() time.Time
}

// StandardTime is the standard implementation of TimeAPI using the standard library.
type StandardTime struct{}

// NewStandardTime is the constructor of StandardTime.
func NewStandardTime() StandardTime {
	return StandardTime{}
}

func (s StandardTime) Now() time.Time {
	return time.Now().In(lagos)
}

// FixedTime always reports the same instant, it is meant for tests.
type FixedTime struct {
	At time.Time
}

func (f FixedTime) Now() time.Time {
	return f.At.In(lagos)
}

// CurrentYear is a shorthand for the year component of t.Now().
func CurrentYear(t TimeAPI) int {
	return t.Now().Year()
}
