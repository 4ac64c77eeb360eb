package pipeline

import (
	"math"
	"sort"
	"strings"

	"github.com/diagreg/diagreg/internal/domain/patient"
)

// Unspecified labels records whose grouped text field is empty.
const Unspecified = "No especificado"

// PositiveMarker is the substring that flags a positive GeneXpert result.
const PositiveMarker = "positivo"

// TopDiagnosesLimit caps the diagnosis ranking shown on the dashboard.
const TopDiagnosesLimit = 5

// MalignancyKeywords flag a biopsy result or diagnosis as malignant when any
// of them occurs, ignoring case.
var MalignancyKeywords = []string{
	"carcinoma", "neoplasia", "maligno", "maligna", "malignidad",
	"cáncer", "cancer", "linfoma", "sarcoma", "melanoma",
	"metástasis", "metastasis",
}

// AgeBucket is one fixed bin of the age histogram; Max is inclusive and the
// last bucket is open-ended.
type AgeBucket struct {
	Label string
	Max   int
}

var AgeBuckets = []AgeBucket{
	{Label: "20-30", Max: 30},
	{Label: "31-40", Max: 40},
	{Label: "41-50", Max: 50},
	{Label: "51-60", Max: 60},
	{Label: "61-70", Max: 70},
	{Label: "71+", Max: math.MaxInt},
}

// Count is one labelled tally.
type Count struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Stats are the dashboard aggregates of a record set.
type Stats struct {
	Total             int     `json:"total"`
	AvgAge            int     `json:"avg_age"`
	BySex             []Count `json:"by_sex"`
	ByOutcome         []Count `json:"by_outcome"`
	ByOrigin          []Count `json:"by_origin"`
	TopDiagnoses      []Count `json:"top_diagnoses"`
	BiopsiesPerformed int     `json:"biopsies_performed"`
	PositiveLab       int     `json:"positive_lab"`
	Malignant         int     `json:"malignant"`
	AgeHistogram      []Count `json:"age_histogram"`
}

// SexCount returns the tally for one sex bucket.
func (s Stats) SexCount(sex patient.Sex) int {
	return lookup(s.BySex, string(sex))
}

// AgeCount returns the tally for one histogram bucket label.
func (s Stats) AgeCount(label string) int {
	return lookup(s.AgeHistogram, label)
}

func lookup(counts []Count, label string) int {
	for _, c := range counts {
		if c.Label == label {
			return c.Count
		}
	}
	return 0
}

// Aggregate computes the dashboard statistics in a single pass. Empty input
// yields zero totals with every fixed bucket present.
func Aggregate(records []patient.Record) Stats {
	sexIdx := make(map[patient.Sex]int, len(patient.Sexes))
	bySex := make([]Count, len(patient.Sexes))
	for i, s := range patient.Sexes {
		sexIdx[s] = i
		bySex[i] = Count{Label: string(s)}
	}
	ages := make([]Count, len(AgeBuckets))
	for i, b := range AgeBuckets {
		ages[i] = Count{Label: b.Label}
	}
	outcomes := map[string]int{}
	origins := map[string]int{}
	diagnoses := map[string]int{}

	var st Stats
	ageSum := 0
	for _, r := range records {
		st.Total++
		ageSum += r.Age

		if i, ok := sexIdx[r.Sex]; ok {
			bySex[i].Count++
		}
		outcomes[labelOrUnspecified(r.Outcome)]++
		origins[labelOrUnspecified(r.Origin)]++
		diagnoses[labelOrUnspecified(r.Diagnosis)]++

		if r.Biopsy == patient.BiopsyYes {
			st.BiopsiesPerformed++
		}
		if containsFold(r.GeneXpertLavage, PositiveMarker) || containsFold(r.GeneXpertSputum, PositiveMarker) {
			st.PositiveLab++
		}
		if containsAny(r.BiopsyResult, MalignancyKeywords) || containsAny(r.Diagnosis, MalignancyKeywords) {
			st.Malignant++
		}
		ages[ageBucket(r.Age)].Count++
	}

	if st.Total > 0 {
		st.AvgAge = int(math.Round(float64(ageSum) / float64(st.Total)))
	}
	st.BySex = bySex
	st.AgeHistogram = ages
	st.ByOutcome = ranked(outcomes)
	st.ByOrigin = ranked(origins)
	st.TopDiagnoses = ranked(diagnoses)
	if len(st.TopDiagnoses) > TopDiagnosesLimit {
		st.TopDiagnoses = st.TopDiagnoses[:TopDiagnosesLimit]
	}
	return st
}

func ageBucket(age int) int {
	for i, b := range AgeBuckets {
		if age <= b.Max {
			return i
		}
	}
	return len(AgeBuckets) - 1
}

// labelOrUnspecified keeps stored text as is; only the empty string is
// missing, so " Alta" and "Alta" are tallied apart.
func labelOrUnspecified(s string) string {
	if s == "" {
		return Unspecified
	}
	return s
}

// ranked orders tallies by count descending, then label for stable output.
func ranked(m map[string]int) []Count {
	out := make([]Count, 0, len(m))
	for label, n := range m {
		out = append(out, Count{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), substr)
}

func containsAny(s string, keywords []string) bool {
	s = strings.ToLower(s)
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
