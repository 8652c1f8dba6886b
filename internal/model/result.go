package model

import "time"

// CongruenceScore pairs one conservation objective with the citations that
// share thematic tags with it. Score is a similarity in [0,1]; zero overlap
// scores exactly 0.
type CongruenceScore struct {
	ObjectiveIndex   int      `json:"objective_index"`
	Score            float64  `json:"score"`
	RelatedCitations []string `json:"related_citations,omitempty"` // citation keys
	SharedTags       []string `json:"shared_tags,omitempty"`
	Rationale        string   `json:"rationale"`
	PartialBasis     bool     `json:"partial_basis,omitempty"`
}

// SegmentFailure records an extraction target that exhausted its retries.
type SegmentFailure struct {
	SegmentID string `json:"segment_id"`
	StartPage int    `json:"start_page"`
	Target    Target `json:"target"`
	Attempts  int    `json:"attempts"`
	Error     string `json:"error"`
}

// AnalysisResult aggregates all validated records for a document plus the
// derived scores. Records are ordered by source page; none are dropped once
// validated, failures are carried as unverified flags or SegmentFailures.
type AnalysisResult struct {
	DocumentID     string          `json:"document_id"`
	Filename       string          `json:"filename"`
	Status         DocumentStatus  `json:"status"`
	Classification ProtectionLevel `json:"classification"`

	Zones               []ZonationRecord        `json:"zones"`
	ZoneClassifications []ZoneClassification    `json:"zone_classifications"`
	Objectives          []ConservationObjective `json:"objectives"`
	Citations           []CitationRecord        `json:"citations"`
	Congruence          []CongruenceScore       `json:"congruence"`

	// AffectedClasses lists record classes with unverified or missing
	// records when Status is partial.
	AffectedClasses []string         `json:"affected_classes,omitempty"`
	Failures        []SegmentFailure `json:"failures,omitempty"`

	TokenUsage TokenUsage `json:"token_usage"`
	CreatedAt  time.Time  `json:"created_at"`
}

// RecordClasses names the record classes checked for partial status.
const (
	ClassZonation   = "zonation"
	ClassObjectives = "objectives"
	ClassCitations  = "citations"
)

// Complete reports whether every objective has a congruence score and every
// record carries a source page reference.
func (r *AnalysisResult) Complete() bool {
	if len(r.Congruence) != len(r.Objectives) {
		return false
	}
	for _, z := range r.Zones {
		if z.Page <= 0 {
			return false
		}
	}
	for _, o := range r.Objectives {
		if o.Page <= 0 {
			return false
		}
	}
	for _, c := range r.Citations {
		if c.Page <= 0 {
			return false
		}
	}
	return true
}
