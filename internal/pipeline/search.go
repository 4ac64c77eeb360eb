package pipeline

import (
	"strings"

	"github.com/diagreg/diagreg/internal/domain/patient"
)

// AllFields selects every field, identifier included, for Search.
const AllFields = "all"

// Search keeps the records where the term occurs, ignoring case, in the
// selected field or in any field when field is empty, "all" or unknown.
// An empty term returns the input unchanged.
func Search(records []patient.Record, term, field string) []patient.Record {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return records
	}

	fields := patient.Fields
	if f, ok := patient.FieldByKey(field); ok && field != AllFields {
		fields = []patient.Field{f}
	}

	out := make([]patient.Record, 0, len(records))
	for _, rec := range records {
		for _, f := range fields {
			if strings.Contains(strings.ToLower(f.Get(rec)), term) {
				out = append(out, rec)
				break
			}
		}
	}
	return out
}
