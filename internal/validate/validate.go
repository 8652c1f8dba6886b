// Package validate checks extracted records against schema and
// cross-reference invariants, with a bounded repair cycle. Records failing
// repair are flagged unverified, never dropped.
package validate

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/bluereef-labs/mpagent/internal/extract"
	"github.com/bluereef-labs/mpagent/internal/model"
)

// Requeryer re-issues a narrower extraction citing a specific violation.
// Satisfied by *extract.Pipeline.
type Requeryer interface {
	Repair(ctx context.Context, seg model.Segment, target model.Target, violation string) (*extract.Parsed, error)
}

// Validator applies invariants to candidate records. A nil Requeryer
// disables the repair cycle; violations then flag immediately.
type Validator struct {
	repair Requeryer
}

// New creates a Validator.
func New(r Requeryer) *Validator {
	return &Validator{repair: r}
}

// ValidateZones checks each zonation candidate. Schema invariants: zone name
// non-empty, at least one activity listed. One repair attempt per violating
// record; survivors of a failed repair are flagged unverified.
func (v *Validator) ValidateZones(ctx context.Context, res *extract.SegmentResult) []model.ZonationRecord {
	out := make([]model.ZonationRecord, 0, len(res.Zones))
	for i, z := range res.Zones {
		violation := zoneViolation(z)
		if violation == "" {
			out = append(out, z)
			continue
		}

		if repaired, ok := v.repairZone(ctx, res, i, violation); ok {
			out = append(out, repaired)
			continue
		}

		z.Unverified = true
		z.UnverifiedReason = violation
		out = append(out, z)
	}
	return out
}

func (v *Validator) repairZone(ctx context.Context, res *extract.SegmentResult, idx int, violation string) (model.ZonationRecord, bool) {
	if v.repair == nil {
		return model.ZonationRecord{}, false
	}
	parsed, err := v.repair.Repair(ctx, res.Segment, model.TargetZonation, violation)
	if err != nil {
		zap.L().Warn("zone repair failed",
			zap.String("segment", res.Segment.ID),
			zap.String("violation", violation),
			zap.Error(err),
		)
		return model.ZonationRecord{}, false
	}
	for _, z := range parsed.Zones {
		if zoneViolation(z) != "" {
			continue
		}
		// The repaired record must answer the violating zone, not
		// re-extract one of its intact siblings.
		if !answersZone(z, res.Zones, idx) {
			continue
		}
		return z, true
	}
	return model.ZonationRecord{}, false
}

// answersZone reports whether a repaired zone corresponds to the violating
// record at idx. A named original must match by name; a nameless original
// accepts any zone that is not one of its siblings.
func answersZone(candidate model.ZonationRecord, zones []model.ZonationRecord, idx int) bool {
	origName := strings.TrimSpace(zones[idx].ZoneName)
	if origName != "" {
		return strings.EqualFold(strings.TrimSpace(candidate.ZoneName), origName)
	}
	for i, sib := range zones {
		if i == idx {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(candidate.ZoneName), strings.TrimSpace(sib.ZoneName)) {
			return false
		}
	}
	return true
}

func zoneViolation(z model.ZonationRecord) string {
	if strings.TrimSpace(z.ZoneName) == "" {
		return "nombre_zona vacío: cada zona debe tener un nombre"
	}
	if len(z.PermittedActivities) == 0 && len(z.ProhibitedActivities) == 0 {
		return fmt.Sprintf("zona %q sin actividades permitidas ni prohibidas", z.ZoneName)
	}
	return ""
}

// ValidateObjectives checks each objective candidate. The statement must be
// non-empty and every SMART sub-score must come from the ordinal grade set;
// a grade outside the set surfaces as unverified and triggers one repair.
// A record whose repair fails is flagged unverified with its grades kept, so
// the scorer can still average the verified sub-scores on a partial basis.
func (v *Validator) ValidateObjectives(ctx context.Context, res *extract.SegmentResult) []model.ConservationObjective {
	out := make([]model.ConservationObjective, 0, len(res.Objectives))
	for _, o := range res.Objectives {
		violation := objectiveViolation(o)
		if violation == "" {
			out = append(out, o)
			continue
		}

		if repaired, ok := v.repairObjective(ctx, res.Segment, o, violation); ok {
			out = append(out, repaired)
			continue
		}

		o.Unverified = true
		o.UnverifiedReason = violation
		out = append(out, o)
	}
	return out
}

func (v *Validator) repairObjective(ctx context.Context, seg model.Segment, orig model.ConservationObjective, violation string) (model.ConservationObjective, bool) {
	if v.repair == nil {
		return model.ConservationObjective{}, false
	}
	parsed, err := v.repair.Repair(ctx, seg, model.TargetObjectives, violation)
	if err != nil {
		zap.L().Warn("objective repair failed",
			zap.String("segment", seg.ID),
			zap.String("violation", violation),
			zap.Error(err),
		)
		return model.ConservationObjective{}, false
	}
	for _, o := range parsed.Objectives {
		if objectiveViolation(o) != "" {
			continue
		}
		// Keep the repaired record only if it plausibly matches the
		// original statement; otherwise the oracle answered a different
		// objective.
		if orig.Statement == "" || strings.EqualFold(o.Statement, orig.Statement) ||
			strings.Contains(strings.ToLower(o.Statement), strings.ToLower(firstWords(orig.Statement, 4))) {
			return o, true
		}
	}
	return model.ConservationObjective{}, false
}

func objectiveViolation(o model.ConservationObjective) string {
	if strings.TrimSpace(o.Statement) == "" {
		return "objetivo vacío: cada objetivo debe conservar su redacción original"
	}
	for _, g := range o.SMART.All() {
		if g == model.GradeUnverified {
			return fmt.Sprintf("objetivo %q con criterio SMART fuera de la escala alto/medio/bajo", firstWords(o.Statement, 6))
		}
	}
	return ""
}

// ValidateCitations checks each citation candidate: some bibliographic
// content must be present, and the author-year key must be populated.
func (v *Validator) ValidateCitations(ctx context.Context, res *extract.SegmentResult) []model.CitationRecord {
	out := make([]model.CitationRecord, 0, len(res.Citations))
	for i, c := range res.Citations {
		violation := citationViolation(c)
		if violation == "" {
			if c.Key == "" {
				c.Key = extract.CitationKey(c.Authors, c.Year)
			}
			out = append(out, c)
			continue
		}

		if repaired, ok := v.repairCitation(ctx, res, i, violation); ok {
			out = append(out, repaired)
			continue
		}

		c.Unverified = true
		c.UnverifiedReason = violation
		if c.Key == "" {
			c.Key = extract.CitationKey(c.Authors, c.Year)
		}
		out = append(out, c)
	}
	return out
}

func (v *Validator) repairCitation(ctx context.Context, res *extract.SegmentResult, idx int, violation string) (model.CitationRecord, bool) {
	if v.repair == nil {
		return model.CitationRecord{}, false
	}
	parsed, err := v.repair.Repair(ctx, res.Segment, model.TargetCitations, violation)
	if err != nil {
		zap.L().Warn("citation repair failed",
			zap.String("segment", res.Segment.ID),
			zap.String("violation", violation),
			zap.Error(err),
		)
		return model.CitationRecord{}, false
	}
	for _, c := range parsed.Citations {
		if citationViolation(c) != "" {
			continue
		}
		if c.Key == "" {
			c.Key = extract.CitationKey(c.Authors, c.Year)
		}
		// A violating citation has no content of its own to match on, so
		// reject candidates that duplicate a sibling's author-year key.
		if !answersCitation(c, res.Citations, idx) {
			continue
		}
		return c, true
	}
	return model.CitationRecord{}, false
}

func answersCitation(candidate model.CitationRecord, citations []model.CitationRecord, idx int) bool {
	for i, sib := range citations {
		if i == idx {
			continue
		}
		sibKey := sib.Key
		if sibKey == "" {
			sibKey = extract.CitationKey(sib.Authors, sib.Year)
		}
		if candidate.Key == sibKey {
			return false
		}
	}
	return true
}

func citationViolation(c model.CitationRecord) string {
	if strings.TrimSpace(c.Reference) == "" && strings.TrimSpace(c.Authors) == "" && strings.TrimSpace(c.Title) == "" {
		return "referencia bibliográfica sin contenido: se requiere referencia completa, autores o título"
	}
	return ""
}

// CrossValidate enforces cross-reference invariants over the assembled
// result, after all segments have returned: every citation key referenced by
// a congruence score must exist in the citation corpus, every shared tag
// must appear on at least one citation, and every SMART sub-score must be in
// the ordinal set. Violations flag, never drop.
func CrossValidate(result *model.AnalysisResult) []string {
	var violations []string

	keys := make(map[string]bool, len(result.Citations))
	tags := make(map[string]bool)
	for _, c := range result.Citations {
		keys[c.Key] = true
		for _, t := range c.Tags {
			tags[t] = true
		}
	}

	for i, cs := range result.Congruence {
		for _, key := range cs.RelatedCitations {
			if !keys[key] {
				violations = append(violations, fmt.Sprintf("congruence[%d]: citation key %q not in corpus", i, key))
			}
		}
		for _, t := range cs.SharedTags {
			if !tags[t] {
				violations = append(violations, fmt.Sprintf("congruence[%d]: tag %q not on any citation", i, t))
			}
		}
		if cs.Score < 0 || cs.Score > 1 {
			violations = append(violations, fmt.Sprintf("congruence[%d]: score %f out of [0,1]", i, cs.Score))
		}
	}

	valid := map[model.SMARTGrade]bool{
		model.GradeHigh:       true,
		model.GradeMedium:     true,
		model.GradeLow:        true,
		model.GradeUnverified: true,
	}
	for i, o := range result.Objectives {
		for _, g := range o.SMART.All() {
			if !valid[g] {
				violations = append(violations, fmt.Sprintf("objectives[%d]: SMART grade %q outside ordinal set", i, g))
			}
		}
	}

	return violations
}

func firstWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}
