package model

// SMARTGrade is one ordinal grade on a SMART criterion. The grade set is
// configurable through the scoring rules file; these are the defaults.
type SMARTGrade string

const (
	GradeHigh       SMARTGrade = "high"
	GradeMedium     SMARTGrade = "medium"
	GradeLow        SMARTGrade = "low"
	GradeUnverified SMARTGrade = "unverified"
)

// SMARTScores holds the five per-objective sub-scores.
type SMARTScores struct {
	Specific   SMARTGrade `json:"specific"`
	Measurable SMARTGrade `json:"measurable"`
	Achievable SMARTGrade `json:"achievable"`
	Relevant   SMARTGrade `json:"relevant"`
	TimeBound  SMARTGrade `json:"time_bound"`
}

// All returns the sub-scores in canonical order.
func (s SMARTScores) All() []SMARTGrade {
	return []SMARTGrade{s.Specific, s.Measurable, s.Achievable, s.Relevant, s.TimeBound}
}

// ConservationObjective is one stated conservation or management objective,
// kept in its original Spanish wording.
type ConservationObjective struct {
	Statement        string      `json:"statement"`
	SMART            SMARTScores `json:"smart"`
	Feasibility      string      `json:"feasibility,omitempty"`
	Tags             []string    `json:"tags,omitempty"`
	Page             int         `json:"page"`
	Unverified       bool        `json:"unverified,omitempty"`
	UnverifiedReason string      `json:"unverified_reason,omitempty"`

	// Derived by the scoring engine (append-only enrichment).
	CompositeScore float64 `json:"composite_score"`
	PartialBasis   bool    `json:"partial_basis,omitempty"`
}
