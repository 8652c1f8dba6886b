package model

import "time"

// DocumentStatus tracks a document's progress through the analysis pipeline.
// Transitions are strictly forward; terminal states are Complete, Partial,
// and Failed.
type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "uploaded"
	StatusExtracting DocumentStatus = "extracting"
	StatusValidating DocumentStatus = "validating"
	StatusScoring    DocumentStatus = "scoring"
	StatusComplete   DocumentStatus = "complete"
	StatusPartial    DocumentStatus = "partial"
	StatusFailed     DocumentStatus = "failed"
)

// statusRank orders statuses for forward-only transition checks.
var statusRank = map[DocumentStatus]int{
	StatusUploaded:   0,
	StatusExtracting: 1,
	StatusValidating: 2,
	StatusScoring:    3,
	StatusComplete:   4,
	StatusPartial:    4,
	StatusFailed:     4,
}

// CanTransition reports whether moving from s to next respects the
// forward-only lifecycle. Terminal states never transition.
func (s DocumentStatus) CanTransition(next DocumentStatus) bool {
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[next]
	if !ok {
		return false
	}
	if from >= statusRank[StatusComplete] {
		return false
	}
	return to > from
}

// Terminal reports whether the status is a terminal state.
func (s DocumentStatus) Terminal() bool {
	return s == StatusComplete || s == StatusPartial || s == StatusFailed
}

// PageText is the text of a single source page. Numbers are 1-based and
// match the page order returned by the text extraction adapter.
type PageText struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// Document is one management plan under analysis.
type Document struct {
	ID        string         `json:"id"`
	Filename  string         `json:"filename"`
	Pages     []PageText     `json:"pages,omitempty"`
	Status    DocumentStatus `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Segment is a bounded chunk of preprocessed text sized for one extraction
// request. StartPage and EndPage are inclusive source page numbers.
type Segment struct {
	ID        string `json:"id"`
	Index     int    `json:"index"`
	StartPage int    `json:"start_page"`
	EndPage   int    `json:"end_page"`
	Text      string `json:"text"`
}

// Target identifies one extraction schema.
type Target string

const (
	TargetZonation   Target = "zonation"
	TargetObjectives Target = "objectives"
	TargetCitations  Target = "citations"
)

// Targets lists all extraction targets in pipeline order.
func Targets() []Target {
	return []Target{TargetZonation, TargetObjectives, TargetCitations}
}

// TokenUsage tracks token consumption across oracle calls.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Add accumulates usage from another TokenUsage.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}
