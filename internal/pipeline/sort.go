package pipeline

import (
	"slices"
	"strconv"
	"strings"

	"github.com/diagreg/diagreg/internal/domain/patient"
)

type Direction string

const (
	Ascending  Direction = "ascending"
	Descending Direction = "descending"
)

// ParseDirection accepts "asc"/"ascending" and "desc"/"descending".
func ParseDirection(s string) Direction {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "desc", "descending":
		return Descending
	}
	return Ascending
}

// SortConfig selects the sort field and direction. The zero value means
// "keep the store order".
type SortConfig struct {
	Field     string    `json:"field,omitempty"`
	Direction Direction `json:"direction,omitempty"`
}

// Toggle returns the config after the user picks field: the same field flips
// direction, a new field starts ascending.
func (s SortConfig) Toggle(field string) SortConfig {
	if s.Field == field {
		if s.Direction == Descending {
			return SortConfig{Field: field, Direction: Ascending}
		}
		return SortConfig{Field: field, Direction: Descending}
	}
	return SortConfig{Field: field, Direction: Ascending}
}

// Sort returns a stably sorted copy of records. Missing values go last in
// both directions; the direction only flips comparisons between present values.
func Sort(records []patient.Record, cfg SortConfig) []patient.Record {
	out := slices.Clone(records)
	if out == nil {
		out = []patient.Record{}
	}
	field, ok := patient.FieldByKey(cfg.Field)
	if !ok {
		return out
	}

	slices.SortStableFunc(out, func(a, b patient.Record) int {
		av, aok := field.Value(a)
		bv, bok := field.Value(b)
		switch {
		case !aok && !bok:
			return 0
		case !aok:
			return 1
		case !bok:
			return -1
		}
		c := compareValues(field, av, bv)
		if cfg.Direction == Descending {
			c = -c
		}
		return c
	})
	return out
}

func compareValues(f patient.Field, a, b string) int {
	if f.Numeric() {
		ai, aerr := strconv.Atoi(a)
		bi, berr := strconv.Atoi(b)
		if aerr == nil && berr == nil {
			switch {
			case ai < bi:
				return -1
			case ai > bi:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}
