package model

// CitationRecord is one bibliographic reference cited by the plan.
type CitationRecord struct {
	Reference        string   `json:"reference"`
	Authors          string   `json:"authors,omitempty"`
	Title            string   `json:"title,omitempty"`
	Source           string   `json:"source,omitempty"`
	Year             int      `json:"year,omitempty"`
	Key              string   `json:"key"` // normalized author-year key
	Tags             []string `json:"tags,omitempty"`
	Page             int      `json:"page"`
	Unverified       bool     `json:"unverified,omitempty"`
	UnverifiedReason string   `json:"unverified_reason,omitempty"`
}
