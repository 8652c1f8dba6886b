// Package export renders analysis results as JSON and XLSX reports.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/bluereef-labs/mpagent/internal/model"
)

// WriteJSON writes the result as indented JSON.
func WriteJSON(result *model.AnalysisResult, path string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return eris.Wrap(err, "export: marshal result")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "export: write %s", path)
	}
	return nil
}

// WriteXLSX writes the result as a workbook with one sheet per record class
// plus a summary sheet.
func WriteXLSX(result *model.AnalysisResult, path string) error {
	f := xlsx.NewFile()

	if err := addSummarySheet(f, result); err != nil {
		return err
	}
	if err := addZonesSheet(f, result); err != nil {
		return err
	}
	if err := addObjectivesSheet(f, result); err != nil {
		return err
	}
	if err := addCitationsSheet(f, result); err != nil {
		return err
	}
	if err := addCongruenceSheet(f, result); err != nil {
		return err
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}

func addSummarySheet(f *xlsx.File, result *model.AnalysisResult) error {
	sheet, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "export: add summary sheet")
	}

	rows := [][]string{
		{"Document ID", result.DocumentID},
		{"Filename", result.Filename},
		{"Status", string(result.Status)},
		{"Classification", string(result.Classification)},
		{"Zones", fmt.Sprintf("%d", len(result.Zones))},
		{"Objectives", fmt.Sprintf("%d", len(result.Objectives))},
		{"Citations", fmt.Sprintf("%d", len(result.Citations))},
		{"Failed segments", fmt.Sprintf("%d", len(result.Failures))},
		{"Affected classes", strings.Join(result.AffectedClasses, ", ")},
		{"Input tokens", fmt.Sprintf("%d", result.TokenUsage.InputTokens)},
		{"Output tokens", fmt.Sprintf("%d", result.TokenUsage.OutputTokens)},
	}
	for _, r := range rows {
		addStringRow(sheet, r...)
	}
	return nil
}

func addZonesSheet(f *xlsx.File, result *model.AnalysisResult) error {
	sheet, err := f.AddSheet("Zones")
	if err != nil {
		return eris.Wrap(err, "export: add zones sheet")
	}
	addStringRow(sheet, "Zone", "Boundaries", "Permitted", "Prohibited", "Protection Level", "Rationale", "Page", "Unverified")

	// Classifications are positional: ClassifyZones preserves input order,
	// and zone names may repeat across segments.
	for i, z := range result.Zones {
		var zc model.ZoneClassification
		if i < len(result.ZoneClassifications) {
			zc = result.ZoneClassifications[i]
		}
		addStringRow(sheet,
			z.ZoneName,
			z.Boundaries,
			strings.Join(z.PermittedActivities, "; "),
			strings.Join(z.ProhibitedActivities, "; "),
			string(zc.Level),
			zc.Rationale,
			fmt.Sprintf("%d", z.Page),
			boolMark(z.Unverified, z.UnverifiedReason),
		)
	}
	return nil
}

func addObjectivesSheet(f *xlsx.File, result *model.AnalysisResult) error {
	sheet, err := f.AddSheet("Objectives")
	if err != nil {
		return eris.Wrap(err, "export: add objectives sheet")
	}
	addStringRow(sheet, "Objective", "Specific", "Measurable", "Achievable", "Relevant", "Time-bound", "Composite", "Partial Basis", "Tags", "Page", "Unverified")

	for _, o := range result.Objectives {
		row := sheet.AddRow()
		row.AddCell().SetString(o.Statement)
		for _, g := range o.SMART.All() {
			row.AddCell().SetString(string(g))
		}
		row.AddCell().SetFloat(o.CompositeScore)
		row.AddCell().SetString(boolMark(o.PartialBasis, ""))
		row.AddCell().SetString(strings.Join(o.Tags, "; "))
		row.AddCell().SetInt(o.Page)
		row.AddCell().SetString(boolMark(o.Unverified, o.UnverifiedReason))
	}
	return nil
}

func addCitationsSheet(f *xlsx.File, result *model.AnalysisResult) error {
	sheet, err := f.AddSheet("Citations")
	if err != nil {
		return eris.Wrap(err, "export: add citations sheet")
	}
	addStringRow(sheet, "Key", "Authors", "Year", "Title", "Source", "Tags", "Page", "Unverified")

	for _, c := range result.Citations {
		addStringRow(sheet,
			c.Key,
			c.Authors,
			yearString(c.Year),
			c.Title,
			c.Source,
			strings.Join(c.Tags, "; "),
			fmt.Sprintf("%d", c.Page),
			boolMark(c.Unverified, c.UnverifiedReason),
		)
	}
	return nil
}

func addCongruenceSheet(f *xlsx.File, result *model.AnalysisResult) error {
	sheet, err := f.AddSheet("Congruence")
	if err != nil {
		return eris.Wrap(err, "export: add congruence sheet")
	}
	addStringRow(sheet, "Objective", "Score", "Related Citations", "Shared Tags", "Rationale", "Partial Basis")

	for _, cs := range result.Congruence {
		statement := ""
		if cs.ObjectiveIndex >= 0 && cs.ObjectiveIndex < len(result.Objectives) {
			statement = result.Objectives[cs.ObjectiveIndex].Statement
		}
		row := sheet.AddRow()
		row.AddCell().SetString(statement)
		row.AddCell().SetFloat(cs.Score)
		row.AddCell().SetString(strings.Join(cs.RelatedCitations, "; "))
		row.AddCell().SetString(strings.Join(cs.SharedTags, "; "))
		row.AddCell().SetString(cs.Rationale)
		row.AddCell().SetString(boolMark(cs.PartialBasis, ""))
	}
	return nil
}

func addStringRow(sheet *xlsx.Sheet, cells ...string) {
	row := sheet.AddRow()
	for _, c := range cells {
		row.AddCell().SetString(c)
	}
}

func boolMark(b bool, reason string) string {
	if !b {
		return ""
	}
	if reason != "" {
		return "yes: " + reason
	}
	return "yes"
}

func yearString(year int) string {
	if year == 0 {
		return ""
	}
	return fmt.Sprintf("%d", year)
}
