package scorer

import "github.com/bluereef-labs/mpagent/internal/model"

// SMARTComposite aggregates the five sub-scores into an unweighted mean in
// [0,1]. Unverified sub-scores are excluded from the mean and flag the
// composite partial_basis. All-unverified yields 0 on a partial basis.
func (e *Engine) SMARTComposite(s model.SMARTScores) (float64, bool) {
	var sum float64
	var n int
	partial := false

	for _, g := range s.All() {
		w, ok := e.rules.GradeWeights[g]
		if !ok || g == model.GradeUnverified {
			partial = true
			continue
		}
		sum += w
		n++
	}

	if n == 0 {
		return 0, true
	}
	return sum / float64(n), partial
}

// ScoreObjectives attaches composite scores to a copy of the objectives
// (append-only enrichment; input records are not mutated).
func (e *Engine) ScoreObjectives(objectives []model.ConservationObjective) []model.ConservationObjective {
	out := make([]model.ConservationObjective, len(objectives))
	for i, o := range objectives {
		score, partial := e.SMARTComposite(o.SMART)
		o.CompositeScore = score
		o.PartialBasis = partial
		out[i] = o
	}
	return out
}
