package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluereef-labs/mpagent/internal/model"
)

func scores(s, m, a, r, tb model.SMARTGrade) model.SMARTScores {
	return model.SMARTScores{Specific: s, Measurable: m, Achievable: a, Relevant: r, TimeBound: tb}
}

func TestSMARTComposite_AllHigh(t *testing.T) {
	e := NewEngine(DefaultRules())
	score, partial := e.SMARTComposite(scores(
		model.GradeHigh, model.GradeHigh, model.GradeHigh, model.GradeHigh, model.GradeHigh))
	assert.Equal(t, 1.0, score)
	assert.False(t, partial)
}

func TestSMARTComposite_UnweightedMean(t *testing.T) {
	e := NewEngine(DefaultRules())
	// high=1.0, medium=0.5, low=0.0 over 5 criteria.
	score, partial := e.SMARTComposite(scores(
		model.GradeHigh, model.GradeMedium, model.GradeLow, model.GradeHigh, model.GradeMedium))
	assert.InDelta(t, 0.6, score, 1e-9)
	assert.False(t, partial)
}

func TestSMARTComposite_UnverifiedExcludedFromMean(t *testing.T) {
	e := NewEngine(DefaultRules())
	score, partial := e.SMARTComposite(scores(
		model.GradeHigh, model.GradeHigh, model.GradeUnverified, model.GradeHigh, model.GradeHigh))
	assert.Equal(t, 1.0, score, "unverified does not drag the mean down")
	assert.True(t, partial, "composite must carry partial_basis")
}

func TestSMARTComposite_AllUnverified(t *testing.T) {
	e := NewEngine(DefaultRules())
	score, partial := e.SMARTComposite(scores(
		model.GradeUnverified, model.GradeUnverified, model.GradeUnverified, model.GradeUnverified, model.GradeUnverified))
	assert.Equal(t, 0.0, score)
	assert.True(t, partial)
}

func TestSMARTComposite_CustomWeights(t *testing.T) {
	rules := DefaultRules()
	rules.GradeWeights = map[model.SMARTGrade]float64{
		model.GradeHigh:   1.0,
		model.GradeMedium: 0.7,
		model.GradeLow:    0.2,
	}
	e := NewEngine(rules)

	score, _ := e.SMARTComposite(scores(
		model.GradeMedium, model.GradeMedium, model.GradeMedium, model.GradeMedium, model.GradeMedium))
	assert.InDelta(t, 0.7, score, 1e-9)
}

func TestScoreObjectives_DoesNotMutateInput(t *testing.T) {
	e := NewEngine(DefaultRules())
	in := []model.ConservationObjective{{
		Statement: "Conservar arrecifes",
		SMART: scores(model.GradeHigh, model.GradeMedium, model.GradeHigh,
			model.GradeHigh, model.GradeLow),
	}}

	out := e.ScoreObjectives(in)
	require.Len(t, out, 1)
	assert.InDelta(t, 0.7, out[0].CompositeScore, 1e-9)
	assert.Equal(t, 0.0, in[0].CompositeScore, "input slice stays untouched")
}

func TestScoreObjectives_Idempotent(t *testing.T) {
	e := NewEngine(DefaultRules())
	in := []model.ConservationObjective{{
		Statement: "x",
		SMART: scores(model.GradeHigh, model.GradeUnverified, model.GradeLow,
			model.GradeMedium, model.GradeHigh),
	}}

	once := e.ScoreObjectives(in)
	twice := e.ScoreObjectives(once)
	assert.Equal(t, once, twice)
}
