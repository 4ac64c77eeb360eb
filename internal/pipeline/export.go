package pipeline

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/diagreg/diagreg/internal/domain/patient"
)

// ErrEmptyExport is returned when there is nothing to export.
var ErrEmptyExport = errors.New("no records to export")

// utf8BOM lets spreadsheet applications detect the encoding on open.
const utf8BOM = "\ufeff"

// ExportFilename names an export produced on day t.
func ExportFilename(t time.Time) string {
	return "registros_pacientes_" + t.Format(patient.DateLayout) + ".csv"
}

// ExportCSV writes records as comma separated values: a BOM, a header of
// field labels, then one line per record with every value quoted. Nothing is
// written for an empty set.
func ExportCSV(w io.Writer, records []patient.Record) error {
	if len(records) == 0 {
		return ErrEmptyExport
	}

	bw := bufio.NewWriter(w)
	bw.WriteString(utf8BOM)

	labels := make([]string, len(patient.Fields))
	for i, f := range patient.Fields {
		labels[i] = f.Label
	}
	writeRow(bw, labels)

	row := make([]string, len(patient.Fields))
	for _, r := range records {
		for i, f := range patient.Fields {
			row[i] = f.Get(r)
		}
		writeRow(bw, row)
	}
	return bw.Flush()
}

func writeRow(w *bufio.Writer, values []string) {
	for i, v := range values {
		if i > 0 {
			w.WriteByte(',')
		}
		w.WriteByte('"')
		w.WriteString(strings.ReplaceAll(v, `"`, `""`))
		w.WriteByte('"')
	}
	w.WriteByte('\n')
}
