package extract

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/bluereef-labs/mpagent/internal/model"
)

// Outcome is the tagged result of parsing one oracle response. Untyped text
// never propagates past this boundary.
type Outcome int

const (
	// OutcomeValid means the response parsed and every required field is set.
	OutcomeValid Outcome = iota
	// OutcomePartial means the response parsed but some records are missing
	// required fields; records are still built and Missing lists the gaps.
	OutcomePartial
	// OutcomeMalformed means the response did not match the schema; only
	// Raw is populated.
	OutcomeMalformed
)

// Parsed holds typed records from one response plus raw provenance.
type Parsed struct {
	Outcome    Outcome
	Zones      []model.ZonationRecord
	Objectives []model.ConservationObjective
	Citations  []model.CitationRecord
	Missing    []string
	Raw        string
}

// wire types mirroring the JSON contracts in prompt.go.

type zonationWire struct {
	Zonas []struct {
		NombreZona            string   `json:"nombre_zona"`
		Limites               string   `json:"limites"`
		ActividadesPermitidas []string `json:"actividades_permitidas"`
		ActividadesProhibidas []string `json:"actividades_prohibidas"`
		Regulaciones          string   `json:"regulaciones"`
	} `json:"zonas"`
}

type objectivesWire struct {
	Objetivos []struct {
		Objetivo string `json:"objetivo"`
		SMART    struct {
			Especifico string `json:"especifico"`
			Medible    string `json:"medible"`
			Alcanzable string `json:"alcanzable"`
			Relevante  string `json:"relevante"`
			ConPlazo   string `json:"con_plazo"`
		} `json:"SMART"`
		Temas      []string `json:"temas"`
		Viabilidad string   `json:"viabilidad"`
	} `json:"objetivos_conservacion"`
}

type citationsWire struct {
	Referencias []struct {
		ReferenciaCompleta string          `json:"referencia_completa"`
		Autores            string          `json:"autores"`
		Titulo             string          `json:"titulo"`
		RevistaOFuente     string          `json:"revista_o_fuente"`
		AnoPublicacion     json.RawMessage `json:"ano_publicacion"`
		TemasPrincipales   []string        `json:"temas_principales"`
	} `json:"referencias_bibliograficas"`
}

// Parse converts a raw oracle response for the given target and segment into
// typed records. The segment supplies the source page reference.
func Parse(target model.Target, seg model.Segment, raw string) *Parsed {
	payload, ok := extractJSON(raw)
	if !ok {
		return &Parsed{Outcome: OutcomeMalformed, Raw: raw}
	}

	switch target {
	case model.TargetZonation:
		return parseZonation(seg, payload, raw)
	case model.TargetObjectives:
		return parseObjectives(seg, payload, raw)
	case model.TargetCitations:
		return parseCitations(seg, payload, raw)
	default:
		return &Parsed{Outcome: OutcomeMalformed, Raw: raw}
	}
}

func parseZonation(seg model.Segment, payload []byte, raw string) *Parsed {
	var wire zonationWire
	if err := json.Unmarshal(payload, &wire); err != nil {
		return &Parsed{Outcome: OutcomeMalformed, Raw: raw}
	}

	p := &Parsed{Outcome: OutcomeValid, Raw: raw}
	for i, z := range wire.Zonas {
		rec := model.ZonationRecord{
			ZoneName:             strings.TrimSpace(z.NombreZona),
			Boundaries:           strings.TrimSpace(z.Limites),
			PermittedActivities:  normalizeTags(z.ActividadesPermitidas),
			ProhibitedActivities: normalizeTags(z.ActividadesProhibidas),
			RegulationText:       strings.TrimSpace(z.Regulaciones),
			Page:                 seg.StartPage,
		}
		if rec.ZoneName == "" {
			p.Missing = append(p.Missing, fmt.Sprintf("zonas[%d].nombre_zona", i))
		}
		if len(rec.PermittedActivities) == 0 && len(rec.ProhibitedActivities) == 0 {
			p.Missing = append(p.Missing, fmt.Sprintf("zonas[%d].actividades", i))
		}
		p.Zones = append(p.Zones, rec)
	}
	if len(p.Missing) > 0 {
		p.Outcome = OutcomePartial
	}
	return p
}

// gradeFromSpanish maps the prompt's alto/medio/bajo scale onto the ordinal
// grade set. Unknown grades become unverified so validation can flag them.
func gradeFromSpanish(s string) model.SMARTGrade {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "alto", "alta", "high":
		return model.GradeHigh
	case "medio", "media", "medium":
		return model.GradeMedium
	case "bajo", "baja", "low":
		return model.GradeLow
	default:
		return model.GradeUnverified
	}
}

func parseObjectives(seg model.Segment, payload []byte, raw string) *Parsed {
	var wire objectivesWire
	if err := json.Unmarshal(payload, &wire); err != nil {
		return &Parsed{Outcome: OutcomeMalformed, Raw: raw}
	}

	p := &Parsed{Outcome: OutcomeValid, Raw: raw}
	for i, o := range wire.Objetivos {
		rec := model.ConservationObjective{
			Statement: strings.TrimSpace(o.Objetivo),
			SMART: model.SMARTScores{
				Specific:   gradeFromSpanish(o.SMART.Especifico),
				Measurable: gradeFromSpanish(o.SMART.Medible),
				Achievable: gradeFromSpanish(o.SMART.Alcanzable),
				Relevant:   gradeFromSpanish(o.SMART.Relevante),
				TimeBound:  gradeFromSpanish(o.SMART.ConPlazo),
			},
			Feasibility: strings.TrimSpace(o.Viabilidad),
			Tags:        normalizeTags(o.Temas),
			Page:        seg.StartPage,
		}
		if rec.Statement == "" {
			p.Missing = append(p.Missing, fmt.Sprintf("objetivos_conservacion[%d].objetivo", i))
		}
		p.Objectives = append(p.Objectives, rec)
	}
	if len(p.Missing) > 0 {
		p.Outcome = OutcomePartial
	}
	return p
}

func parseCitations(seg model.Segment, payload []byte, raw string) *Parsed {
	var wire citationsWire
	if err := json.Unmarshal(payload, &wire); err != nil {
		return &Parsed{Outcome: OutcomeMalformed, Raw: raw}
	}

	p := &Parsed{Outcome: OutcomeValid, Raw: raw}
	for i, c := range wire.Referencias {
		rec := model.CitationRecord{
			Reference: strings.TrimSpace(c.ReferenciaCompleta),
			Authors:   strings.TrimSpace(c.Autores),
			Title:     strings.TrimSpace(c.Titulo),
			Source:    strings.TrimSpace(c.RevistaOFuente),
			Year:      parseYear(c.AnoPublicacion),
			Tags:      normalizeTags(c.TemasPrincipales),
			Page:      seg.StartPage,
		}
		if rec.Reference == "" && rec.Authors == "" && rec.Title == "" {
			p.Missing = append(p.Missing, fmt.Sprintf("referencias_bibliograficas[%d].referencia_completa", i))
		}
		rec.Key = CitationKey(rec.Authors, rec.Year)
		p.Citations = append(p.Citations, rec)
	}
	if len(p.Missing) > 0 {
		p.Outcome = OutcomePartial
	}
	return p
}

// parseYear accepts both 2005 and "2005" (the oracle is inconsistent here).
func parseYear(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	// Keep only the first 4-digit run ("2005a", "2005-2007").
	for i := 0; i+4 <= len(s); i++ {
		if y, err := strconv.Atoi(s[i : i+4]); err == nil && y >= 1500 && y <= 2100 {
			return y
		}
	}
	return 0
}

// extractJSON locates the outermost JSON object in the response, tolerating
// markdown code fences and leading prose.
func extractJSON(raw string) ([]byte, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return nil, false
	}
	payload := []byte(s[start : end+1])
	if !json.Valid(payload) {
		return nil, false
	}
	return payload, true
}

// foldDiacritics removes combining marks so "pesca ilegal" and "pesca ilegál"
// compare equal. NFC output keeps everything else intact.
var foldDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeTags lowercases, trims, folds diacritics, and dedupes tag sets,
// preserving first-seen order.
func normalizeTags(tags []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, t := range tags {
		folded, _, err := transform.String(foldDiacritics, strings.ToLower(strings.TrimSpace(t)))
		if err != nil || folded == "" {
			continue
		}
		if seen[folded] {
			continue
		}
		seen[folded] = true
		out = append(out, folded)
	}
	return out
}

// CitationKey builds a normalized author-year key like "gonzalez-2005" from
// the first author surname.
func CitationKey(authors string, year int) string {
	first := authors
	for _, sep := range []string{";", " y ", " & ", ","} {
		if idx := strings.Index(first, sep); idx >= 0 {
			first = first[:idx]
		}
	}
	folded, _, err := transform.String(foldDiacritics, strings.ToLower(strings.TrimSpace(first)))
	if err != nil {
		folded = strings.ToLower(strings.TrimSpace(first))
	}
	var b strings.Builder
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else if unicode.IsSpace(r) && b.Len() > 0 {
			b.WriteRune('-')
		}
	}
	key := strings.Trim(b.String(), "-")
	if key == "" {
		key = "anon"
	}
	if year > 0 {
		return fmt.Sprintf("%s-%d", key, year)
	}
	return key
}
