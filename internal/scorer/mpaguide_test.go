package scorer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluereef-labs/mpagent/internal/model"
)

func TestClassifyZone_IndustrialNeverFullyProtected(t *testing.T) {
	e := NewEngine(DefaultRules())

	cls := e.ClassifyZone(model.ZonationRecord{
		ZoneName:            "Zona de Aprovechamiento",
		PermittedActivities: []string{"pesca de arrastre industrial"},
	})
	assert.Equal(t, model.MinimallyProtected, cls.Level)
	assert.Contains(t, cls.Rationale, "industrial")
}

func TestClassifyZone_ExtractiveCapsBelowFull(t *testing.T) {
	e := NewEngine(DefaultRules())

	cls := e.ClassifyZone(model.ZonationRecord{
		ZoneName:            "Zona de Pesca Artesanal",
		PermittedActivities: []string{"pesca artesanal con línea"},
	})
	assert.Equal(t, model.LightlyProtected, cls.Level)
}

func TestClassifyZone_SubsistenceOnlyIsHighlyProtected(t *testing.T) {
	e := NewEngine(DefaultRules())

	cls := e.ClassifyZone(model.ZonationRecord{
		ZoneName:            "Zona de Uso Tradicional",
		PermittedActivities: []string{"pesca de subsistencia", "uso ceremonial"},
	})
	assert.Equal(t, model.HighlyProtected, cls.Level)
}

func TestClassifyZone_NoExtractionIsFullyProtected(t *testing.T) {
	e := NewEngine(DefaultRules())

	cls := e.ClassifyZone(model.ZonationRecord{
		ZoneName:             "Zona Núcleo",
		PermittedActivities:  []string{"investigacion cientifica", "monitoreo"},
		ProhibitedActivities: []string{"pesca", "mineria"},
	})
	assert.Equal(t, model.FullyProtected, cls.Level)
}

func TestClassifyZone_NoInformationTiesPermissive(t *testing.T) {
	e := NewEngine(DefaultRules())

	cls := e.ClassifyZone(model.ZonationRecord{ZoneName: "Zona sin datos"})
	assert.Equal(t, model.Unprotected, cls.Level)
}

func TestClassifyZone_DiacriticInsensitive(t *testing.T) {
	e := NewEngine(DefaultRules())

	with := e.ClassifyZone(model.ZonationRecord{
		ZoneName:            "a",
		PermittedActivities: []string{"minería a cielo abierto"},
	})
	without := e.ClassifyZone(model.ZonationRecord{
		ZoneName:            "b",
		PermittedActivities: []string{"mineria a cielo abierto"},
	})
	assert.Equal(t, with.Level, without.Level)
	assert.Equal(t, model.MinimallyProtected, with.Level)
}

func TestClassifyZone_UnverifiedCarriesFlag(t *testing.T) {
	e := NewEngine(DefaultRules())

	cls := e.ClassifyZone(model.ZonationRecord{
		ZoneName:            "Zona dudosa",
		PermittedActivities: []string{"buceo"},
		Unverified:          true,
	})
	assert.True(t, cls.Unverified)
	assert.Contains(t, cls.Rationale, "unverified")
}

func TestClassifyZone_Deterministic(t *testing.T) {
	e := NewEngine(DefaultRules())
	z := model.ZonationRecord{
		ZoneName:            "Zona Mixta",
		PermittedActivities: []string{"pesca deportiva", "buceo autónomo"},
	}

	first := e.ClassifyZone(z)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, e.ClassifyZone(z))
	}
}

func TestOverallClassification_MostPermissiveGoverns(t *testing.T) {
	e := NewEngine(DefaultRules())

	zones := []model.ZoneClassification{
		{ZoneName: "Núcleo", Level: model.FullyProtected},
		{ZoneName: "Amortiguamiento", Level: model.LightlyProtected},
		{ZoneName: "Tradicional", Level: model.HighlyProtected},
	}
	assert.Equal(t, model.LightlyProtected, e.OverallClassification(zones))
}

func TestOverallClassification_NoZones(t *testing.T) {
	e := NewEngine(DefaultRules())
	assert.Equal(t, model.Unprotected, e.OverallClassification(nil))
}

func TestClassifyZones_MixedDocument(t *testing.T) {
	e := NewEngine(DefaultRules())

	zones := []model.ZonationRecord{
		{ZoneName: "Núcleo", ProhibitedActivities: []string{"todas las actividades extractivas"}},
		{ZoneName: "Aprovechamiento", PermittedActivities: []string{"dragado para canal de navegación"}},
	}
	out := e.ClassifyZones(zones)
	require.Len(t, out, 2)
	assert.Equal(t, model.FullyProtected, out[0].Level)
	assert.Equal(t, model.MinimallyProtected, out[1].Level)
	assert.Equal(t, model.MinimallyProtected, e.OverallClassification(out))
}

func TestLoadRules_EmptyPathUsesDefaults(t *testing.T) {
	rules, err := LoadRules("")
	require.NoError(t, err)
	assert.NotEmpty(t, rules.IndustrialActivities)
	assert.Equal(t, 1.0, rules.GradeWeights[model.GradeHigh])
}

func TestLoadRules_OverridesFromYAML(t *testing.T) {
	path := writeTempRules(t, "industrial_activities:\n  - voladura\ngrade_weights:\n  high: 1.0\n  medium: 0.6\n  low: 0.1\n")

	rules, err := LoadRules(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"voladura"}, rules.IndustrialActivities)
	assert.Equal(t, 0.6, rules.GradeWeights[model.GradeMedium])
	// Untouched sections keep defaults.
	assert.NotEmpty(t, rules.ExtractiveActivities)
}

func TestLoadRules_MissingFile(t *testing.T) {
	_, err := LoadRules("/nonexistent/rules.yaml")
	assert.Error(t, err)
}

func writeTempRules(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
