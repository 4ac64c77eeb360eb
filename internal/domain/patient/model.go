package patient

import (
	"time"

	"github.com/google/uuid"
)

// Sex is the closed set of sex values accepted on a record.
type Sex string

const (
	SexMale   Sex = "Masculino"
	SexFemale Sex = "Femenino"
	SexOther  Sex = "Otro"
)

// Sexes lists every Sex value in display order.
var Sexes = []Sex{SexMale, SexFemale, SexOther}

func (s Sex) Valid() bool {
	switch s {
	case SexMale, SexFemale, SexOther:
		return true
	}
	return false
}

// Biopsy records whether a biopsy was taken.
type Biopsy string

const (
	BiopsyYes Biopsy = "Sí"
	BiopsyNo  Biopsy = "No"
)

func (b Biopsy) Valid() bool {
	return b == BiopsyYes || b == BiopsyNo
}

// NewRecord is a patient diagnosis entry that has not been stored yet.
type NewRecord struct {
	EventDate           string `json:"event_date"`
	Name                string `json:"name"`
	Age                 int    `json:"age"`
	Sex                 Sex    `json:"sex"`
	RegistryCode        string `json:"registry_code"`
	Diagnosis           string `json:"diagnosis"`
	RiskFactor          string `json:"risk_factor"`
	Origin              string `json:"origin"`
	AttendingPhysician  string `json:"attending_physician"`
	GeneXpertLavage     string `json:"genexpert_lavage"`
	TBCulture           string `json:"tb_culture"`
	MycologyLavage      string `json:"mycology_lavage"`
	NonAFBLavage        string `json:"non_afb_lavage"`
	GeneXpertSputum     string `json:"genexpert_sputum"`
	NonAFBSputumCulture string `json:"non_afb_sputum_culture"`
	Biopsy              Biopsy `json:"biopsy"`
	BiopsyResult        string `json:"biopsy_result"`
	Observation         string `json:"observation"`
	Outcome             string `json:"outcome"`
	BiopsyNumber        string `json:"biopsy_number"`
	DiagnosisCode       string `json:"diagnosis_code"`
	DiagnosisDetail     string `json:"diagnosis_detail"`
}

// Record maps to the patient_record table. ID is assigned by the store on
// create and never changes afterwards.
type Record struct {
	ID uuid.UUID `db:"id" json:"id"`
	NewRecord
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ApplyDefaults fills the enum fields left blank by a fresh form.
func (n *NewRecord) ApplyDefaults() {
	if n.Sex == "" {
		n.Sex = SexMale
	}
	if n.Biopsy == "" {
		n.Biopsy = BiopsyNo
	}
}

// Draft returns an empty record dated today, the starting point of the add form.
func Draft(now time.Time) NewRecord {
	return NewRecord{
		EventDate: now.Format(DateLayout),
		Sex:       SexMale,
		Biopsy:    BiopsyNo,
	}
}
