// Package scorer computes derived quality metrics over validated records.
// Every function here is pure: no oracle calls, no I/O, and identical input
// always yields identical output.
package scorer

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/bluereef-labs/mpagent/internal/model"
)

// Engine evaluates validated records against the configured rule table.
type Engine struct {
	rules Rules
}

// NewEngine creates an Engine. Zero-value Rules fields fall back to the
// defaults.
func NewEngine(rules Rules) *Engine {
	def := DefaultRules()
	if len(rules.IndustrialActivities) == 0 {
		rules.IndustrialActivities = def.IndustrialActivities
	}
	if len(rules.ExtractiveActivities) == 0 {
		rules.ExtractiveActivities = def.ExtractiveActivities
	}
	if len(rules.SubsistenceMarkers) == 0 {
		rules.SubsistenceMarkers = def.SubsistenceMarkers
	}
	if len(rules.GradeWeights) == 0 {
		rules.GradeWeights = def.GradeWeights
	}
	return &Engine{rules: rules}
}

var foldDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func fold(s string) string {
	out, _, err := transform.String(foldDiacritics, strings.ToLower(s))
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}

func matchesAny(activity string, terms []string) bool {
	a := fold(activity)
	for _, t := range terms {
		if strings.Contains(a, fold(t)) {
			return true
		}
	}
	return false
}

// ClassifyZone maps one zone's permitted/prohibited activities to an MPA
// Guide protection level. Deterministic rule matching: any permitted
// industrial activity forces the minimal band; any permitted extractive
// activity (beyond subsistence) caps the zone below fully protected; ties
// break toward the more permissive classification so conservation strength
// is never overstated.
func (e *Engine) ClassifyZone(z model.ZonationRecord) model.ZoneClassification {
	cls := model.ZoneClassification{
		ZoneName:   z.ZoneName,
		Page:       z.Page,
		Unverified: z.Unverified,
	}

	var industrial, extractive, subsistence []string
	for _, a := range z.PermittedActivities {
		switch {
		case matchesAny(a, e.rules.IndustrialActivities):
			industrial = append(industrial, a)
		case matchesAny(a, e.rules.SubsistenceMarkers):
			subsistence = append(subsistence, a)
		case matchesAny(a, e.rules.ExtractiveActivities):
			extractive = append(extractive, a)
		}
	}

	switch {
	case len(industrial) > 0:
		cls.Level = model.MinimallyProtected
		cls.Rationale = fmt.Sprintf("permits industrial/destructive activities: %s", strings.Join(industrial, ", "))
	case len(extractive) > 0:
		cls.Level = model.LightlyProtected
		cls.Rationale = fmt.Sprintf("permits extractive activities: %s", strings.Join(extractive, ", "))
	case len(subsistence) > 0:
		cls.Level = model.HighlyProtected
		cls.Rationale = fmt.Sprintf("extractive use limited to subsistence/ceremonial: %s", strings.Join(subsistence, ", "))
	case len(z.PermittedActivities) > 0 || len(z.ProhibitedActivities) > 0:
		cls.Level = model.FullyProtected
		cls.Rationale = "no extractive or destructive activities permitted"
	default:
		// No regulation information at all: the permissive side of the tie.
		cls.Level = model.Unprotected
		cls.Rationale = "no activity regulations recorded for this zone"
	}

	if z.Unverified {
		cls.Rationale += " (zone record unverified; low confidence)"
	}
	return cls
}

// ClassifyZones classifies every zone in input order.
func (e *Engine) ClassifyZones(zones []model.ZonationRecord) []model.ZoneClassification {
	out := make([]model.ZoneClassification, len(zones))
	for i, z := range zones {
		out[i] = e.ClassifyZone(z)
	}
	return out
}

// OverallClassification reduces zone classifications to one document-level
// protection level: the most permissive (weakest) zone governs, so an area
// with any industrial zone never reports as fully protected.
func (e *Engine) OverallClassification(zones []model.ZoneClassification) model.ProtectionLevel {
	if len(zones) == 0 {
		return model.Unprotected
	}
	overall := zones[0].Level
	for _, z := range zones[1:] {
		if z.Level.WeakerThan(overall) {
			overall = z.Level
		}
	}
	return overall
}
