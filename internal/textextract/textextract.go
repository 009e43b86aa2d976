// Package textextract pulls plain text out of downloaded brochure PDFs for
// the classification stage.
package textextract

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/iapd-pipeline/internal/config"
)

// Extractor extracts text content from PDF files.
type Extractor interface {
	ExtractText(ctx context.Context, pdfPath string) (string, error)
}

// NewExtractor creates an Extractor based on config.
func NewExtractor(cfg config.ExtractConfig) (Extractor, error) {
	switch cfg.Provider {
	case "pdf", "":
		return NewPDFReader(), nil
	case "pdftotext":
		return NewPdfToText(cfg.PdfToTextPath), nil
	default:
		return nil, eris.Errorf("textextract: unknown provider %q", cfg.Provider)
	}
}
