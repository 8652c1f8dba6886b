// Package ocr wraps external PDF-to-text services. Extractors return the
// document as an ordered sequence of page texts; page numbers downstream are
// 1-based positions in that sequence.
package ocr

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/bluereef-labs/mpagent/internal/config"
)

// Ingestion-level failures. Both are fatal for the document run.
var (
	ErrUnsupportedFormat = eris.New("ocr: unsupported document format")
	ErrCorruptDocument   = eris.New("ocr: corrupt or unreadable document")
)

// Extractor extracts page texts from PDF files.
type Extractor interface {
	ExtractPages(ctx context.Context, pdfPath string) ([]string, error)
}

// NewExtractor creates an Extractor based on config.
func NewExtractor(cfg config.OCRConfig) (Extractor, error) {
	switch cfg.Provider {
	case "local", "":
		return NewPdfToText(cfg.PdfToTextPath), nil
	case "mistral":
		if cfg.MistralKey == "" {
			return nil, eris.New("ocr: mistral provider requires mistral_api_key")
		}
		return NewMistralOCR(cfg.MistralKey, cfg.MistralModel), nil
	default:
		return nil, eris.Errorf("ocr: unknown provider %q", cfg.Provider)
	}
}
