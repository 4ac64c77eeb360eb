package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/diagreg/diagreg/internal/domain/patient"
	"github.com/diagreg/diagreg/internal/pipeline"
	"github.com/diagreg/diagreg/pkg/pagination"
)

const (
	defaultTermWidth = 120
	minCellWidth     = 12
	barWidth         = 30
)

// listColumns are the record fields shown in the table, in order.
var listColumns = []string{"event_date", "name", "age", "sex", "diagnosis", "origin", "outcome"}

// textColumns are the free-text columns that share the remaining width.
var textColumns = map[string]bool{"name": true, "diagnosis": true, "origin": true, "outcome": true}

var statusColors = map[pipeline.Status]text.Colors{
	pipeline.StatusDeceased:     {text.FgRed},
	pipeline.StatusDischarged:   {text.FgGreen},
	pipeline.StatusOncology:     {text.FgMagenta},
	pipeline.StatusFollowUp:     {text.FgBlue},
	pipeline.StatusPulmonology:  {text.FgCyan},
	pipeline.StatusEmergency:    {text.FgHiRed, text.Bold},
	pipeline.StatusRheumatology: {text.FgYellow},
	pipeline.StatusAccepted:     {text.FgHiGreen},
}

// renderOptions control terminal dependent output.
type renderOptions struct {
	Width int
	Color bool
}

func terminalOptions(w io.Writer) renderOptions {
	opts := renderOptions{Width: defaultTermWidth}
	f, ok := w.(*os.File)
	if !ok {
		return opts
	}
	fd := int(f.Fd())
	if width, _, err := term.GetSize(fd); err == nil && width > 0 {
		opts.Width = width
	}
	opts.Color = term.IsTerminal(fd)
	return opts
}

// cellWidth is the width available to each free-text column.
func (o renderOptions) cellWidth() int {
	// date, age, sex, id and borders take roughly 50 columns
	w := (o.Width - 50) / len(textColumns)
	if w < minCellWidth {
		return minCellWidth
	}
	return w
}

func colorStatus(s string, opts renderOptions) string {
	if !opts.Color || s == "" {
		return s
	}
	if c, ok := statusColors[pipeline.Classify(s)]; ok {
		return c.Sprint(s)
	}
	return s
}

func shortID(r patient.Record) string {
	return r.ID.String()[:8]
}

func renderRecordTable(w io.Writer, v pipeline.View, opts renderOptions) {
	if v.Total == 0 {
		fmt.Fprintln(w, "No se encontraron registros.")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := table.Row{"ID"}
	for _, key := range listColumns {
		f, _ := patient.FieldByKey(key)
		label := f.Label
		if v.State.Sort.Field == key {
			label += sortArrow(v.State.Sort.Direction)
		}
		header = append(header, label)
	}
	t.AppendHeader(header)

	width := opts.cellWidth()
	for _, r := range v.Items {
		row := table.Row{shortID(r)}
		for _, key := range listColumns {
			f, _ := patient.FieldByKey(key)
			val := f.Get(r)
			if textColumns[key] {
				val = runewidth.Truncate(val, width, "...")
			}
			if key == "outcome" || key == "origin" {
				val = colorStatus(val, opts)
			}
			row = append(row, val)
		}
		t.AppendRow(row)
	}
	t.Render()

	fmt.Fprintln(w, pageFooter(v))
}

func sortArrow(d pipeline.Direction) string {
	if d == pipeline.Descending {
		return " ↓"
	}
	return " ↑"
}

// pageFooter summarizes the visible slice and the paginator window, with
// the current page in brackets.
func pageFooter(v pipeline.View) string {
	first := (v.State.Page-1)*pagination.PageSize + 1
	last := first + len(v.Items) - 1

	pages := make([]string, 0, len(v.Window))
	for _, p := range v.Window {
		if p == v.State.Page {
			pages = append(pages, fmt.Sprintf("[%d]", p))
		} else {
			pages = append(pages, fmt.Sprint(p))
		}
	}

	pager := pagination.Pager{Page: v.State.Page, TotalPages: v.TotalPages}
	prev, next := " ", " "
	if pager.HasPrevious() {
		prev = "‹"
	}
	if pager.HasNext() {
		next = "›"
	}
	return fmt.Sprintf("Mostrando %d-%d de %d registros · Página %d de %d  %s %s %s",
		first, last, v.Total, v.State.Page, v.TotalPages, prev, strings.Join(pages, " "), next)
}

// renderDetail prints every field of r grouped by section.
func renderDetail(w io.Writer, r patient.Record, opts renderOptions) {
	fmt.Fprintf(w, "ID REGISTRO: %s\n", r.ID)
	if !r.CreatedAt.IsZero() {
		fmt.Fprintf(w, "Creado: %s  Actualizado: %s\n",
			r.CreatedAt.Format("2006-01-02 15:04"), r.UpdatedAt.Format("2006-01-02 15:04"))
	}

	for _, section := range patient.Sections {
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.SetStyle(table.StyleLight)
		t.SetTitle(section)
		for _, f := range patient.FieldsInSection(section) {
			val, ok := f.Value(r)
			if !ok {
				val = "-"
			} else if f.Key == "outcome" || f.Key == "origin" {
				val = colorStatus(val, opts)
			}
			t.AppendRow(table.Row{f.Label, val})
		}
		t.Render()
	}
}

// bar renders n relative to top as a run of block characters.
func bar(n, top int) string {
	if n <= 0 || top <= 0 {
		return ""
	}
	width := n * barWidth / top
	if width == 0 {
		width = 1
	}
	return strings.Repeat("█", width)
}

func renderCounts(w io.Writer, title string, counts []pipeline.Count) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(title)

	top := 0
	for _, c := range counts {
		if c.Count > top {
			top = c.Count
		}
	}
	if len(counts) == 0 {
		t.AppendRow(table.Row{"Sin datos", 0, ""})
	}
	for _, c := range counts {
		t.AppendRow(table.Row{c.Label, c.Count, bar(c.Count, top)})
	}
	t.Render()
}

func renderDashboard(w io.Writer, s pipeline.Stats) {
	kpi := table.NewWriter()
	kpi.SetOutputMirror(w)
	kpi.SetStyle(table.StyleLight)
	kpi.SetTitle("Resumen")
	kpi.AppendHeader(table.Row{"Pacientes", "Edad promedio", "Biopsias", "Laboratorio positivo", "Malignidad"})
	kpi.AppendRow(table.Row{s.Total, s.AvgAge, s.BiopsiesPerformed, s.PositiveLab, s.Malignant})
	kpi.Render()

	renderCounts(w, "Distribución por sexo", s.BySex)
	renderCounts(w, "Distribución por edad", s.AgeHistogram)
	renderCounts(w, "Destino del paciente", s.ByOutcome)
	renderCounts(w, "Procedencia", s.ByOrigin)
	renderCounts(w, "Diagnósticos principales", s.TopDiagnoses)
}
