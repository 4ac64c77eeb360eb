package pipeline

import "strings"

// Status is the display category of an outcome or origin text.
type Status string

const (
	StatusDeceased     Status = "deceased"
	StatusDischarged   Status = "discharged"
	StatusOncology     Status = "oncology"
	StatusFollowUp     Status = "follow-up"
	StatusPulmonology  Status = "pulmonology"
	StatusEmergency    Status = "emergency"
	StatusRheumatology Status = "rheumatology"
	StatusAccepted     Status = "accepted"
	StatusOther        Status = "other"
)

// statusRules are checked in order; the first keyword found wins.
var statusRules = []struct {
	keyword string
	status  Status
}{
	{"fallecido", StatusDeceased},
	{"alta", StatusDischarged},
	{"oncologia", StatusOncology},
	{"seguimiento", StatusFollowUp},
	{"neumologia", StatusPulmonology},
	{"emergencia", StatusEmergency},
	{"reumatologia", StatusRheumatology},
	{"acepta", StatusAccepted},
}

// Classify maps free text such as "Alta médica" to a Status.
func Classify(text string) Status {
	t := strings.ToLower(text)
	for _, r := range statusRules {
		if strings.Contains(t, r.keyword) {
			return r.status
		}
	}
	return StatusOther
}
