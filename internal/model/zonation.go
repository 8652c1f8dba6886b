package model

// ZonationRecord describes one zone of the protected area and the
// regulations attached to it.
type ZonationRecord struct {
	ZoneName             string   `json:"zone_name"`
	Boundaries           string   `json:"boundaries,omitempty"`
	PermittedActivities  []string `json:"permitted_activities"`
	ProhibitedActivities []string `json:"prohibited_activities"`
	RegulationText       string   `json:"regulation_text,omitempty"`
	Page                 int      `json:"page"`
	Unverified           bool     `json:"unverified,omitempty"`
	UnverifiedReason     string   `json:"unverified_reason,omitempty"`
}

// ProtectionLevel is the MPA Guide ordinal protection taxonomy, from
// strongest to weakest.
type ProtectionLevel string

const (
	FullyProtected     ProtectionLevel = "fully_protected"
	HighlyProtected    ProtectionLevel = "highly_protected"
	LightlyProtected   ProtectionLevel = "lightly_protected"
	MinimallyProtected ProtectionLevel = "minimally_protected"
	Unprotected        ProtectionLevel = "unprotected"
)

// protectionRank orders levels; higher rank means stronger protection.
var protectionRank = map[ProtectionLevel]int{
	Unprotected:        0,
	MinimallyProtected: 1,
	LightlyProtected:   2,
	HighlyProtected:    3,
	FullyProtected:     4,
}

// Rank returns the ordinal strength of the level, 0 (unprotected) to
// 4 (fully protected). Unknown levels rank as unprotected.
func (p ProtectionLevel) Rank() int {
	return protectionRank[p]
}

// WeakerThan reports whether p is a more permissive classification than
// other.
func (p ProtectionLevel) WeakerThan(other ProtectionLevel) bool {
	return p.Rank() < other.Rank()
}

// ZoneClassification pairs a zone with its MPA Guide classification and the
// deterministic rationale behind it.
type ZoneClassification struct {
	ZoneName   string          `json:"zone_name"`
	Level      ProtectionLevel `json:"level"`
	Rationale  string          `json:"rationale"`
	Page       int             `json:"page"`
	Unverified bool            `json:"unverified,omitempty"`
}
