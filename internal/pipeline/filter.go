package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/diagreg/diagreg/internal/domain/patient"
)

// ErrInvalidDate is returned for a date bound that is not YYYY-MM-DD.
var ErrInvalidDate = errors.New("invalid date")

// DateRange is an inclusive range of calendar dates. An empty bound imposes
// no constraint.
type DateRange struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// ParseDateRange validates the bounds entered by a user. Records themselves
// are compared as strings and are never rejected.
func ParseDateRange(start, end string) (DateRange, error) {
	r := DateRange{Start: strings.TrimSpace(start), End: strings.TrimSpace(end)}
	for _, b := range []string{r.Start, r.End} {
		if b == "" {
			continue
		}
		if _, err := time.Parse(patient.DateLayout, b); err != nil {
			return DateRange{}, fmt.Errorf("%w: %q", ErrInvalidDate, b)
		}
	}
	return r, nil
}

// Contains reports whether date lies within the range. ISO dates order
// lexicographically, so plain string comparison is chronological.
func (r DateRange) Contains(date string) bool {
	if r.Start != "" && date < r.Start {
		return false
	}
	if r.End != "" && date > r.End {
		return false
	}
	return true
}

func (r DateRange) IsZero() bool {
	return r.Start == "" && r.End == ""
}

// Filter returns the records whose event date lies within r, in input order.
func Filter(records []patient.Record, r DateRange) []patient.Record {
	out := make([]patient.Record, 0, len(records))
	for _, rec := range records {
		if r.Contains(rec.EventDate) {
			out = append(out, rec)
		}
	}
	return out
}
