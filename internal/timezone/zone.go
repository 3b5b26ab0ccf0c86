package timezone

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

// Zone resolves calendar dates in the user's timezone, so that a class
// marked late in the evening lands on the right day.
type Zone struct {
	location *time.Location
	now      func() time.Time
}

func Load(name string) (*Zone, error) {
	location, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load location %q: %w", name, err)
	}
	return NewZone(location, time.Now), nil
}

func NewZone(location *time.Location, now func() time.Time) *Zone {
	return &Zone{
		location: location,
		now:      now,
	}
}

// Today returns the current date in the zone formatted as YYYY-MM-DD.
func (z *Zone) Today() string {
	return z.now().In(z.location).Format(time.DateOnly)
}
