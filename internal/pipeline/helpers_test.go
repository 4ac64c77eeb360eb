package pipeline

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/diagreg/diagreg/internal/domain/patient"
)

func rec(name, date string, age int) patient.Record {
	return patient.Record{
		ID: uuid.New(),
		NewRecord: patient.NewRecord{
			EventDate: date,
			Name:      name,
			Age:       age,
			Sex:       patient.SexMale,
			Biopsy:    patient.BiopsyNo,
		},
	}
}

func names(records []patient.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Name
	}
	return out
}

func manyRecords(n int) []patient.Record {
	out := make([]patient.Record, n)
	for i := range out {
		out[i] = rec(fmt.Sprintf("Paciente %02d", i), fmt.Sprintf("2024-01-%02d", i%28+1), 20+i)
	}
	return out
}
