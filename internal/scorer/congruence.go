package scorer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bluereef-labs/mpagent/internal/model"
)

// Congruence computes the tag-overlap similarity between one objective and
// the citation corpus. The score is Jaccard similarity between the
// objective's tags and the aggregate tag set of the citations sharing at
// least one tag; zero overlap scores exactly 0, never unverified. Related
// citations order by overlap count, ties broken by publication recency when
// available, else extraction order.
func (e *Engine) Congruence(objectiveIndex int, obj model.ConservationObjective, citations []model.CitationRecord) model.CongruenceScore {
	cs := model.CongruenceScore{ObjectiveIndex: objectiveIndex}

	objTags := make(map[string]bool, len(obj.Tags))
	for _, t := range obj.Tags {
		objTags[t] = true
	}

	type related struct {
		index   int
		key     string
		year    int
		overlap int
	}
	var matches []related
	aggTags := make(map[string]bool)
	sharedSet := make(map[string]bool)
	anyUnverified := false

	for i, c := range citations {
		overlap := 0
		for _, t := range c.Tags {
			if objTags[t] {
				overlap++
				sharedSet[t] = true
			}
		}
		if overlap == 0 {
			continue
		}
		matches = append(matches, related{index: i, key: c.Key, year: c.Year, overlap: overlap})
		for _, t := range c.Tags {
			aggTags[t] = true
		}
		if c.Unverified {
			anyUnverified = true
		}
	}

	if len(matches) == 0 {
		cs.Score = 0
		cs.Rationale = "no thematic overlap between the objective and the cited literature"
		return cs
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].overlap != matches[j].overlap {
			return matches[i].overlap > matches[j].overlap
		}
		return matches[i].year > matches[j].year
	})

	cs.Score = jaccard(objTags, aggTags)
	for _, m := range matches {
		cs.RelatedCitations = append(cs.RelatedCitations, m.key)
	}
	cs.SharedTags = sortedKeys(sharedSet)
	cs.PartialBasis = anyUnverified || obj.Unverified
	cs.Rationale = fmt.Sprintf("objective shares themes [%s] with %d cited work(s)",
		strings.Join(cs.SharedTags, ", "), len(matches))
	if cs.PartialBasis {
		cs.Rationale += "; based partly on unverified records"
	}
	return cs
}

// ScoreCongruence produces exactly one CongruenceScore per objective, in
// objective order.
func (e *Engine) ScoreCongruence(objectives []model.ConservationObjective, citations []model.CitationRecord) []model.CongruenceScore {
	out := make([]model.CongruenceScore, len(objectives))
	for i, o := range objectives {
		out[i] = e.Congruence(i, o, citations)
	}
	return out
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if b[t] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
