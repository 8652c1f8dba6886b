// Package preprocess turns raw page texts into analysis-ready segments.
// All transformations are deterministic and side-effect free.
package preprocess

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/bluereef-labs/mpagent/internal/model"
)

// DefaultMaxSegmentChars bounds segment size for one extraction request.
const DefaultMaxSegmentChars = 8000

// hyphenBreak matches a word split across a line break with a hyphen, e.g.
// "conserva-\nción". Spanish diacritics are letters under \p{L}.
var hyphenBreak = regexp.MustCompile(`(\p{L})-\s*\n\s*(\p{L})`)

// spaceRun collapses horizontal whitespace runs; newlines are preserved.
var spaceRun = regexp.MustCompile(`[ \t]+`)

// blankRun collapses three or more consecutive newlines.
var blankRun = regexp.MustCompile(`\n{3,}`)

// pageNumberLine matches lines that are only a page number, optionally
// decorated ("- 12 -", "Página 12", "12 / 96").
var pageNumberLine = regexp.MustCompile(`(?i)^\s*(?:-\s*)?(?:p[áa]g(?:ina)?\.?\s*)?\d{1,4}(?:\s*/\s*\d{1,4})?(?:\s*-)?\s*$`)

// sentenceEnd marks positions where a segment may be cut. The closing
// characters cover Spanish punctuation as it survives pdftotext.
var sentenceEnd = regexp.MustCompile(`[.!?…][)"»']*\s`)

// Normalize applies deterministic cleanup to one page of text: NFC Unicode
// normalization (keeps diacritics intact), de-hyphenation across line
// breaks, whitespace collapse.
func Normalize(text string) string {
	text = norm.NFC.String(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = hyphenBreak.ReplaceAllString(text, "$1$2")
	text = spaceRun.ReplaceAllString(text, " ")
	text = blankRun.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// StripRunningLines removes running headers and footers: lines that repeat
// verbatim on at least half the pages (minimum 3 occurrences), plus lines
// that are only a page number. Pages are modified in place order-preserving.
func StripRunningLines(pages []string) []string {
	if len(pages) == 0 {
		return pages
	}

	counts := make(map[string]int)
	for _, page := range pages {
		seen := make(map[string]bool)
		for _, line := range strings.Split(page, "\n") {
			key := strings.TrimSpace(line)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			counts[key]++
		}
	}

	threshold := len(pages)/2 + 1
	if threshold < 3 {
		threshold = 3
	}

	out := make([]string, len(pages))
	for i, page := range pages {
		var kept []string
		for _, line := range strings.Split(page, "\n") {
			key := strings.TrimSpace(line)
			if key != "" && counts[key] >= threshold {
				continue
			}
			if pageNumberLine.MatchString(line) {
				continue
			}
			kept = append(kept, line)
		}
		out[i] = strings.Join(kept, "\n")
	}
	return out
}

// BuildSegments normalizes the document's pages and chunks them into
// segments of at most maxChars, cutting on sentence boundaries where
// possible. Consecutive short pages are packed into one segment; each
// segment records its inclusive source page range.
func BuildSegments(docID string, pages []model.PageText, maxChars int) []model.Segment {
	if maxChars <= 0 {
		maxChars = DefaultMaxSegmentChars
	}

	raw := make([]string, len(pages))
	for i, p := range pages {
		raw[i] = p.Text
	}
	raw = StripRunningLines(raw)

	var segments []model.Segment
	var buf strings.Builder
	startPage, endPage := 0, 0

	flush := func() {
		text := strings.TrimSpace(buf.String())
		if text == "" {
			buf.Reset()
			return
		}
		segments = append(segments, model.Segment{
			ID:        fmt.Sprintf("%s-seg-%d", docID, len(segments)),
			Index:     len(segments),
			StartPage: startPage,
			EndPage:   endPage,
			Text:      text,
		})
		buf.Reset()
	}

	for i, p := range pages {
		text := Normalize(raw[i])
		if text == "" {
			continue
		}

		for _, chunk := range splitBounded(text, maxChars) {
			if buf.Len() > 0 && buf.Len()+len(chunk)+2 > maxChars {
				flush()
			}
			if buf.Len() == 0 {
				startPage = p.Number
			}
			if buf.Len() > 0 {
				buf.WriteString("\n\n")
			}
			buf.WriteString(chunk)
			endPage = p.Number
		}
	}
	flush()

	// Reindex after flushes so Index matches slice position.
	for i := range segments {
		segments[i].Index = i
	}
	return segments
}

// splitBounded cuts text into pieces of at most maxChars, preferring the
// last sentence boundary before the limit. A sentence longer than maxChars
// is hard-split.
func splitBounded(text string, maxChars int) []string {
	var chunks []string
	for len(text) > maxChars {
		cut := lastSentenceEnd(text[:maxChars])
		if cut <= 0 {
			// No boundary found; hard-split on a rune boundary.
			cut = maxChars
			for cut > 0 && !isRuneStart(text[cut]) {
				cut--
			}
			if cut == 0 {
				cut = maxChars
			}
		}
		chunks = append(chunks, strings.TrimSpace(text[:cut]))
		text = strings.TrimSpace(text[cut:])
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}

// lastSentenceEnd returns the index just past the final sentence terminator
// in s, or 0 if none is found.
func lastSentenceEnd(s string) int {
	locs := sentenceEnd.FindAllStringIndex(s, -1)
	if len(locs) == 0 {
		return 0
	}
	return locs[len(locs)-1][1]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
