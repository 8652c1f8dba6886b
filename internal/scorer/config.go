package scorer

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/bluereef-labs/mpagent/internal/model"
)

// Rules holds the configurable MPA Guide activity taxonomy and the SMART
// grade weights. The classification thresholds are deliberately not hard
// facts; operators override them with a YAML rules file.
type Rules struct {
	// IndustrialActivities are substrings (lowercase, diacritics folded)
	// marking industrial-scale extractive or destructive activities.
	IndustrialActivities []string `yaml:"industrial_activities"`
	// ExtractiveActivities mark non-industrial extractive activities.
	ExtractiveActivities []string `yaml:"extractive_activities"`
	// SubsistenceMarkers soften an extractive activity to the highly
	// protected band (subsistence or ceremonial use).
	SubsistenceMarkers []string `yaml:"subsistence_markers"`
	// GradeWeights maps SMART grades to their numeric value for the
	// composite mean.
	GradeWeights map[model.SMARTGrade]float64 `yaml:"grade_weights"`
}

// DefaultRules returns the built-in rule table, derived from the MPA Guide
// category definitions. Activity terms cover both Spanish and English as
// they come back from extraction.
func DefaultRules() Rules {
	return Rules{
		IndustrialActivities: []string{
			"industrial",
			"mineria",
			"minería",
			"dragado",
			"dredging",
			"petroleo",
			"petróleo",
			"hidrocarburos",
			"arrastre",
			"trawling",
			"mining",
		},
		ExtractiveActivities: []string{
			"pesca",
			"fishing",
			"extraccion",
			"extracción",
			"captura",
			"recoleccion",
			"recolección",
			"harvest",
			"caza",
			"acuicultura",
			"aquaculture",
			"marisqueo",
		},
		SubsistenceMarkers: []string{
			"subsistencia",
			"subsistence",
			"ceremonial",
			"artesanal de subsistencia",
			"consumo local",
		},
		GradeWeights: map[model.SMARTGrade]float64{
			model.GradeHigh:   1.0,
			model.GradeMedium: 0.5,
			model.GradeLow:    0.0,
		},
	}
}

// LoadRules reads a YAML rules file, filling gaps from defaults. An empty
// path returns the defaults.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return rules, eris.Wrapf(err, "scorer: read rules %s", path)
	}

	var loaded Rules
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return rules, eris.Wrapf(err, "scorer: parse rules %s", path)
	}

	if len(loaded.IndustrialActivities) > 0 {
		rules.IndustrialActivities = loaded.IndustrialActivities
	}
	if len(loaded.ExtractiveActivities) > 0 {
		rules.ExtractiveActivities = loaded.ExtractiveActivities
	}
	if len(loaded.SubsistenceMarkers) > 0 {
		rules.SubsistenceMarkers = loaded.SubsistenceMarkers
	}
	if len(loaded.GradeWeights) > 0 {
		rules.GradeWeights = loaded.GradeWeights
	}
	return rules, nil
}
