package attendance

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/classattendance/internal/errs"
)

// DateLayout is the format of the date keys of a ledger.
const DateLayout = time.DateOnly

// Mark classifies a day for display, it is derived from the counts and never
// stored.
type Mark string

const (
	MarkFull    Mark = "full"
	MarkNone    Mark = "none"
	MarkPartial Mark = "partial"
)

// DayRecord holds the classes held and attended by a subject on one date.
type DayRecord struct {
	Total    int `json:"total"`
	Attended int `json:"attended"`
}

func (r DayRecord) Mark() Mark {
	switch {
	case r.Attended == r.Total:
		return MarkFull
	case r.Attended == 0:
		return MarkNone
	default:
		return MarkPartial
	}
}

// Records maps dates in DateLayout to day records.
type Records map[string]DayRecord

// Dates returns the dates of the records in ascending order.
func (rr Records) Dates() []string {
	return slices.Sorted(maps.Keys(rr))
}

func ParseDate(date string) (time.Time, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q is not YYYY-MM-DD", errs.ErrValidation, date)
	}
	return t, nil
}

func validateCounts(total, attended int) error {
	if total < 0 {
		return fmt.Errorf("%w: total %d is negative", errs.ErrValidation, total)
	}
	if total == 0 {
		return nil
	}
	if attended < 0 {
		return fmt.Errorf("%w: attended %d is negative", errs.ErrValidation, attended)
	}
	if attended > total {
		return fmt.Errorf("%w: attended %d exceeds total %d", errs.ErrValidation, attended, total)
	}
	return nil
}
