package patient

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// DateLayout is the calendar date format used for event dates.
const DateLayout = "2006-01-02"

// ErrNotFound is returned when the targeted record does not exist in the store.
var ErrNotFound = errors.New("patient record not found")

// ValidationError carries one message per offending field, keyed by the field's JSON name.
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Validate checks the required fields of a record before it is submitted.
// It returns nil or a *ValidationError.
func Validate(n NewRecord) error {
	fields := map[string]string{}

	if strings.TrimSpace(n.Name) == "" {
		fields["name"] = "El nombre es obligatorio."
	}
	if n.EventDate == "" {
		fields["event_date"] = "La fecha es obligatoria."
	} else if _, err := time.Parse(DateLayout, n.EventDate); err != nil {
		fields["event_date"] = "La fecha debe tener el formato AAAA-MM-DD."
	}
	if n.Age <= 0 {
		fields["age"] = "La edad debe ser un número positivo."
	}
	if !n.Sex.Valid() {
		fields["sex"] = "Sexo no válido."
	}
	if !n.Biopsy.Valid() {
		fields["biopsy"] = "Valor de biopsia no válido."
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
