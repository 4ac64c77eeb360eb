package patient

import (
	"strconv"
	"strings"
)

// Kind tells consumers how a field's value should be compared and edited.
type Kind int

const (
	KindID Kind = iota
	KindDate
	KindText
	KindInt
	KindEnum
)

// Field describes one column of a Record. Fields is built once and iterated
// by search, sort, export and the CLI instead of reflecting over the struct.
type Field struct {
	Key     string
	Label   string
	Kind    Kind
	Section string
	Get     func(Record) string
	set     func(*NewRecord, string) error
}

const (
	SectionPatient   = "Información del Paciente"
	SectionDiagnosis = "Diagnóstico y Origen"
	SectionLavage    = "Resultados de Laboratorio (Lavado)"
	SectionSputum    = "Resultados de Laboratorio (Esputo)"
	SectionBiopsy    = "Biopsia y Observaciones"
	SectionOutcome   = "Resultado Final"
)

// Sections lists the display groups in form order.
var Sections = []string{
	SectionPatient, SectionDiagnosis, SectionLavage, SectionSputum, SectionBiopsy, SectionOutcome,
}

func text(key, label, section string, get func(Record) string, set func(*NewRecord, string)) Field {
	return Field{
		Key:     key,
		Label:   label,
		Kind:    KindText,
		Section: section,
		Get:     get,
		set: func(n *NewRecord, v string) error {
			set(n, v)
			return nil
		},
	}
}

// Fields is the natural field order of a record, identifier first.
var Fields = []Field{
	{
		Key: "id", Label: "ID REGISTRO", Kind: KindID,
		Get: func(r Record) string { return r.ID.String() },
	},
	{
		Key: "event_date", Label: "FECHA", Kind: KindDate, Section: SectionPatient,
		Get: func(r Record) string { return r.EventDate },
		set: func(n *NewRecord, v string) error { n.EventDate = v; return nil },
	},
	text("name", "NOMBRE", SectionPatient,
		func(r Record) string { return r.Name }, func(n *NewRecord, v string) { n.Name = v }),
	{
		Key: "age", Label: "EDAD", Kind: KindInt, Section: SectionPatient,
		Get: func(r Record) string { return strconv.Itoa(r.Age) },
		set: func(n *NewRecord, v string) error {
			age, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return err
			}
			n.Age = age
			return nil
		},
	},
	{
		Key: "sex", Label: "SEXO", Kind: KindEnum, Section: SectionPatient,
		Get: func(r Record) string { return string(r.Sex) },
		set: func(n *NewRecord, v string) error { n.Sex = Sex(v); return nil },
	},
	text("registry_code", "REGISTRO", SectionPatient,
		func(r Record) string { return r.RegistryCode }, func(n *NewRecord, v string) { n.RegistryCode = v }),
	text("diagnosis", "DIAGNOSTICO", SectionDiagnosis,
		func(r Record) string { return r.Diagnosis }, func(n *NewRecord, v string) { n.Diagnosis = v }),
	text("risk_factor", "FACTOR DE RIESGO", SectionDiagnosis,
		func(r Record) string { return r.RiskFactor }, func(n *NewRecord, v string) { n.RiskFactor = v }),
	text("origin", "PROCEDENCIA", SectionDiagnosis,
		func(r Record) string { return r.Origin }, func(n *NewRecord, v string) { n.Origin = v }),
	text("attending_physician", "MEDICO ENCARGADO", SectionDiagnosis,
		func(r Record) string { return r.AttendingPhysician }, func(n *NewRecord, v string) { n.AttendingPhysician = v }),
	text("genexpert_lavage", "GENEXPERT LAVADO", SectionLavage,
		func(r Record) string { return r.GeneXpertLavage }, func(n *NewRecord, v string) { n.GeneXpertLavage = v }),
	text("tb_culture", "CULTIVO TBC", SectionLavage,
		func(r Record) string { return r.TBCulture }, func(n *NewRecord, v string) { n.TBCulture = v }),
	text("mycology_lavage", "MICOLOGICO LAVADO", SectionLavage,
		func(r Record) string { return r.MycologyLavage }, func(n *NewRecord, v string) { n.MycologyLavage = v }),
	text("non_afb_lavage", "NO BAAR LAVADO", SectionLavage,
		func(r Record) string { return r.NonAFBLavage }, func(n *NewRecord, v string) { n.NonAFBLavage = v }),
	text("genexpert_sputum", "GENEXPERT ESPUTO", SectionSputum,
		func(r Record) string { return r.GeneXpertSputum }, func(n *NewRecord, v string) { n.GeneXpertSputum = v }),
	text("non_afb_sputum_culture", "CULTIVO NO BAAR ESPUTO", SectionSputum,
		func(r Record) string { return r.NonAFBSputumCulture }, func(n *NewRecord, v string) { n.NonAFBSputumCulture = v }),
	{
		Key: "biopsy", Label: "BIOPSIA", Kind: KindEnum, Section: SectionBiopsy,
		Get: func(r Record) string { return string(r.Biopsy) },
		set: func(n *NewRecord, v string) error { n.Biopsy = Biopsy(v); return nil },
	},
	text("biopsy_result", "RESULTADO BIOPSIA", SectionBiopsy,
		func(r Record) string { return r.BiopsyResult }, func(n *NewRecord, v string) { n.BiopsyResult = v }),
	text("observation", "OBSERVACION", SectionBiopsy,
		func(r Record) string { return r.Observation }, func(n *NewRecord, v string) { n.Observation = v }),
	text("outcome", "DESTINO PACIENTE", SectionOutcome,
		func(r Record) string { return r.Outcome }, func(n *NewRecord, v string) { n.Outcome = v }),
	text("biopsy_number", "NUMERO BIOPSIA", SectionBiopsy,
		func(r Record) string { return r.BiopsyNumber }, func(n *NewRecord, v string) { n.BiopsyNumber = v }),
	text("diagnosis_code", "Código Diagnóstico", SectionOutcome,
		func(r Record) string { return r.DiagnosisCode }, func(n *NewRecord, v string) { n.DiagnosisCode = v }),
	text("diagnosis_detail", "Detalle Diagnóstico", SectionOutcome,
		func(r Record) string { return r.DiagnosisDetail }, func(n *NewRecord, v string) { n.DiagnosisDetail = v }),
}

var fieldIndex = func() map[string]int {
	idx := make(map[string]int, len(Fields))
	for i, f := range Fields {
		idx[f.Key] = i
	}
	return idx
}()

// FieldByKey resolves a field selector such as "age" or "outcome".
func FieldByKey(key string) (Field, bool) {
	i, ok := fieldIndex[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return Field{}, false
	}
	return Fields[i], true
}

// Editable reports whether the field can be set on a NewRecord.
func (f Field) Editable() bool {
	return f.set != nil
}

// Set parses v into the field on n.
func (f Field) Set(n *NewRecord, v string) error {
	if f.set == nil {
		return nil
	}
	return f.set(n, v)
}

// Numeric reports whether the field compares numerically.
func (f Field) Numeric() bool {
	return f.Kind == KindInt
}

// Value returns the field rendering and whether it is present. Empty text is
// treated as missing; numeric and identifier fields are always present.
func (f Field) Value(r Record) (string, bool) {
	v := f.Get(r)
	switch f.Kind {
	case KindInt, KindID:
		return v, true
	}
	return v, strings.TrimSpace(v) != ""
}

// FieldsInSection returns the fields of one display group in natural order.
func FieldsInSection(section string) []Field {
	var out []Field
	for _, f := range Fields {
		if f.Section == section {
			out = append(out, f)
		}
	}
	return out
}
