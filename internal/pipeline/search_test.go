package pipeline

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/diagreg/diagreg/internal/domain/patient"
)

func TestSearch_EmptyTermIsIdentity(t *testing.T) {
	records := manyRecords(5)
	got := Search(records, "", AllFields)
	assert.Equal(t, records, got)

	got = Search(records, "   ", "name")
	assert.Equal(t, records, got)
}

func TestSearch_CaseInsensitiveSubstring(t *testing.T) {
	records := []patient.Record{
		rec("María López", "2024-01-01", 40),
		rec("Jorge Díaz", "2024-01-02", 50),
	}
	assert.Equal(t, []string{"María López"}, names(Search(records, "LÓPEZ", "name")))
	assert.Equal(t, []string{"Jorge Díaz"}, names(Search(records, "jor", AllFields)))
}

func TestSearch_SingleFieldOnly(t *testing.T) {
	a := rec("Alta Gracia", "2024-01-01", 40)
	b := rec("Pedro", "2024-01-02", 50)
	b.Outcome = "Alta médica"
	records := []patient.Record{a, b}

	assert.Equal(t, []string{"Alta Gracia"}, names(Search(records, "alta", "name")))
	assert.Equal(t, []string{"Pedro"}, names(Search(records, "alta", "outcome")))
	assert.Equal(t, []string{"Alta Gracia", "Pedro"}, names(Search(records, "alta", AllFields)))
}

func TestSearch_NumericAndEnumRendering(t *testing.T) {
	a := rec("A", "2024-01-01", 47)
	b := rec("B", "2024-01-02", 52)
	b.Sex = patient.SexFemale
	b.Biopsy = patient.BiopsyYes
	a.ID, b.ID = uuid.Nil, uuid.Nil
	records := []patient.Record{a, b}

	assert.Equal(t, []string{"A"}, names(Search(records, "47", AllFields)))
	assert.Equal(t, []string{"B"}, names(Search(records, "femenino", "sex")))
	assert.Equal(t, []string{"B"}, names(Search(records, "sí", "biopsy")))
}

func TestSearch_MatchesIdentifier(t *testing.T) {
	records := manyRecords(3)
	id := records[1].ID.String()
	got := Search(records, id[:8], "")
	assert.Contains(t, names(got), records[1].Name)
}

func TestSearch_UnknownFieldSearchesAll(t *testing.T) {
	records := []patient.Record{rec("Rosa", "2024-01-01", 40)}
	assert.Len(t, Search(records, "rosa", "bogus"), 1)
}
