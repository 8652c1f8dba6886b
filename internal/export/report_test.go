package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/bluereef-labs/mpagent/internal/model"
)

func sampleResult() *model.AnalysisResult {
	return &model.AnalysisResult{
		DocumentID:     "doc1",
		Filename:       "plan_loreto.pdf",
		Status:         model.StatusPartial,
		Classification: model.LightlyProtected,
		Zones: []model.ZonationRecord{{
			ZoneName:             "Zona Núcleo",
			Boundaries:           "polígono norte",
			PermittedActivities:  []string{"investigacion"},
			ProhibitedActivities: []string{"pesca"},
			Page:                 4,
		}},
		ZoneClassifications: []model.ZoneClassification{{
			ZoneName:  "Zona Núcleo",
			Level:     model.FullyProtected,
			Rationale: "no extractive or destructive activities permitted",
			Page:      4,
		}},
		Objectives: []model.ConservationObjective{{
			Statement: "Conservar los arrecifes",
			SMART: model.SMARTScores{
				Specific: model.GradeHigh, Measurable: model.GradeMedium,
				Achievable: model.GradeHigh, Relevant: model.GradeHigh,
				TimeBound: model.GradeUnverified,
			},
			Tags:           []string{"arrecifes"},
			Page:           7,
			CompositeScore: 0.875,
			PartialBasis:   true,
		}},
		Citations: []model.CitationRecord{{
			Key: "gonzalez-2005", Authors: "González, A.", Year: 2005,
			Title: "Peces del Golfo", Source: "Ciencias Marinas",
			Tags: []string{"arrecifes"}, Page: 88,
		}},
		Congruence: []model.CongruenceScore{{
			ObjectiveIndex:   0,
			Score:            1.0,
			RelatedCitations: []string{"gonzalez-2005"},
			SharedTags:       []string{"arrecifes"},
			Rationale:        "objective shares themes [arrecifes] with 1 cited work(s)",
		}},
		AffectedClasses: []string{model.ClassObjectives},
		TokenUsage:      model.TokenUsage{InputTokens: 1200, OutputTokens: 340},
		CreatedAt:       time.Now().UTC(),
	}
}

func TestWriteJSON_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.json")
	require.NoError(t, WriteJSON(sampleResult(), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got model.AnalysisResult
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "doc1", got.DocumentID)
	assert.Equal(t, model.LightlyProtected, got.Classification)
	require.Len(t, got.Zones, 1)
	assert.Equal(t, "Zona Núcleo", got.Zones[0].ZoneName)
}

func TestWriteXLSX_SheetsAndContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.xlsx")
	require.NoError(t, WriteXLSX(sampleResult(), path))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)

	var names []string
	for _, sheet := range f.Sheets {
		names = append(names, sheet.Name)
	}
	assert.Equal(t, []string{"Summary", "Zones", "Objectives", "Citations", "Congruence"}, names)

	zones := f.Sheet["Zones"]
	require.NotNil(t, zones)
	require.GreaterOrEqual(t, len(zones.Rows), 2)
	assert.Equal(t, "Zone", zones.Rows[0].Cells[0].String())
	assert.Equal(t, "Zona Núcleo", zones.Rows[1].Cells[0].String())
	assert.Equal(t, string(model.FullyProtected), zones.Rows[1].Cells[4].String())

	citations := f.Sheet["Citations"]
	require.NotNil(t, citations)
	assert.Equal(t, "gonzalez-2005", citations.Rows[1].Cells[0].String())

	congruence := f.Sheet["Congruence"]
	require.NotNil(t, congruence)
	assert.Equal(t, "Conservar los arrecifes", congruence.Rows[1].Cells[0].String())
}

func TestWriteXLSX_DuplicateZoneNamesKeepOwnClassification(t *testing.T) {
	result := sampleResult()
	result.Zones = []model.ZonationRecord{
		{ZoneName: "Zona de Uso", PermittedActivities: []string{"investigacion"}, Page: 4},
		{ZoneName: "Zona de Uso", PermittedActivities: []string{"pesca artesanal"}, Page: 9},
	}
	result.ZoneClassifications = []model.ZoneClassification{
		{ZoneName: "Zona de Uso", Level: model.FullyProtected, Rationale: "research only", Page: 4},
		{ZoneName: "Zona de Uso", Level: model.LightlyProtected, Rationale: "artisanal fishing permitted", Page: 9},
	}

	path := filepath.Join(t.TempDir(), "dupes.xlsx")
	require.NoError(t, WriteXLSX(result, path))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	zones := f.Sheet["Zones"]
	require.NotNil(t, zones)
	require.GreaterOrEqual(t, len(zones.Rows), 3)
	assert.Equal(t, string(model.FullyProtected), zones.Rows[1].Cells[4].String())
	assert.Equal(t, string(model.LightlyProtected), zones.Rows[2].Cells[4].String())
}

func TestWriteXLSX_EmptyResult(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	result := &model.AnalysisResult{
		DocumentID: "doc2",
		Status:     model.StatusFailed,
	}
	require.NoError(t, WriteXLSX(result, path))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	assert.Len(t, f.Sheets, 5)
}
