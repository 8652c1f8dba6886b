package ocr

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// PdfToText extracts text from PDFs using the pdftotext CLI tool.
// pdftotext separates pages with form feeds, which preserves page order.
type PdfToText struct {
	binPath string
}

// NewPdfToText creates a PdfToText extractor. If binPath is empty,
// "pdftotext" is used.
func NewPdfToText(binPath string) *PdfToText {
	if binPath == "" {
		binPath = "pdftotext"
	}
	return &PdfToText{binPath: binPath}
}

// ExtractPages runs pdftotext -layout on the given PDF and splits stdout on
// form feeds into per-page texts.
func (p *PdfToText) ExtractPages(ctx context.Context, pdfPath string) ([]string, error) {
	if !strings.EqualFold(filepath.Ext(pdfPath), ".pdf") {
		return nil, eris.Wrapf(ErrUnsupportedFormat, "%s", pdfPath)
	}
	if _, err := os.Stat(pdfPath); err != nil {
		return nil, eris.Wrapf(ErrCorruptDocument, "stat %s: %v", pdfPath, err)
	}

	cmd := exec.CommandContext(ctx, p.binPath, "-layout", pdfPath, "-")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "ocr: pdftotext cancelled")
		}
		return nil, eris.Wrapf(ErrCorruptDocument, "pdftotext failed for %s: %s", pdfPath, stderr.String())
	}

	return SplitPages(stdout.String()), nil
}

// SplitPages splits raw pdftotext output on form feeds. A trailing empty
// page from the final form feed is dropped; interior blank pages are kept so
// page numbering stays aligned with the source.
func SplitPages(text string) []string {
	pages := strings.Split(text, "\f")
	if n := len(pages); n > 1 && strings.TrimSpace(pages[n-1]) == "" {
		pages = pages[:n-1]
	}
	return pages
}
