package ocr

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluereef-labs/mpagent/internal/config"
)

func TestSplitPages(t *testing.T) {
	pages := SplitPages("página uno\fpágina dos\fpágina tres\f")
	require.Len(t, pages, 3)
	assert.Equal(t, "página uno", pages[0])
	assert.Equal(t, "página tres", pages[2])
}

func TestSplitPages_KeepsInteriorBlankPages(t *testing.T) {
	pages := SplitPages("uno\f\ftres\f")
	require.Len(t, pages, 3)
	assert.Equal(t, "", pages[1])
}

func TestSplitPages_SinglePage(t *testing.T) {
	pages := SplitPages("solo una página")
	require.Len(t, pages, 1)
}

func TestExtractPages_RejectsNonPDF(t *testing.T) {
	p := NewPdfToText("")
	_, err := p.ExtractPages(context.Background(), "/tmp/plan.docx")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrUnsupportedFormat))
}

func TestExtractPages_MissingFile(t *testing.T) {
	p := NewPdfToText("")
	_, err := p.ExtractPages(context.Background(), filepath.Join(t.TempDir(), "gone.pdf"))
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrCorruptDocument))
}

func TestExtractPages_CorruptPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf"), 0o644))

	// A binary that always fails stands in for pdftotext rejecting the file.
	p := NewPdfToText("/bin/false")
	_, err := p.ExtractPages(context.Background(), path)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrCorruptDocument))
}

func TestNewExtractor_Providers(t *testing.T) {
	local, err := NewExtractor(config.OCRConfig{Provider: "local"})
	require.NoError(t, err)
	assert.IsType(t, &PdfToText{}, local)

	def, err := NewExtractor(config.OCRConfig{})
	require.NoError(t, err)
	assert.IsType(t, &PdfToText{}, def)

	mistral, err := NewExtractor(config.OCRConfig{Provider: "mistral", MistralKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &MistralOCR{}, mistral)

	_, err = NewExtractor(config.OCRConfig{Provider: "mistral"})
	assert.Error(t, err)

	_, err = NewExtractor(config.OCRConfig{Provider: "tesseract"})
	assert.Error(t, err)
}
