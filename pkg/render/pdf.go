package render

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	wkhtmltopdf "github.com/SebastiaanKlippert/go-wkhtmltopdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// PDFEngine converts rendered HTML into PDF bytes. It sits behind an
// interface so tests can render without the wkhtmltopdf binary.
type PDFEngine interface {
	RenderPDF(ctx context.Context, html string, cssPath string) ([]byte, error)
}

// WKHTMLEngine renders PDFs through the wkhtmltopdf binary.
type WKHTMLEngine struct{}

// NewWKHTMLEngine creates the default PDF engine.
func NewWKHTMLEngine() *WKHTMLEngine {
	return &WKHTMLEngine{}
}

// RenderPDF renders the HTML document, applying the stylesheet when one is
// given. Local file access is enabled so templates can reference assets by
// path.
func (e *WKHTMLEngine) RenderPDF(ctx context.Context, html string, cssPath string) ([]byte, error) {
	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, fmt.Errorf("failed to create pdf generator: %w", err)
	}

	page := wkhtmltopdf.NewPageReader(strings.NewReader(html))
	page.EnableLocalFileAccess.Set(true)
	if cssPath != "" {
		page.UserStyleSheet.Set(cssPath)
	}
	pdfg.AddPage(page)

	if err := pdfg.CreateContext(ctx); err != nil {
		return nil, fmt.Errorf("pdf rendering failed: %w", err)
	}

	return pdfg.Bytes(), nil
}

// pdfPageCount counts the pages of a produced PDF, best effort: a document
// pdfcpu cannot parse reports 0 pages rather than failing the row.
func pdfPageCount(logger *slog.Logger, data []byte) int {
	count, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		logger.Warn("Failed to count pdf pages.", "error", err)
		return 0
	}
	return count
}
