package loaders

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"

	"ragchatbot/internal/rag/interfaces"
)

// PdfExtractor implements the Extractor interface on top of ledongthuc/pdf.
// Extraction failures on individual pages are reported per page and do not
// abort the document.
type PdfExtractor struct{}

// NewPdfExtractor creates a new PdfExtractor.
func NewPdfExtractor() *PdfExtractor {
	return &PdfExtractor{}
}

// Extract opens the PDF at path and returns one Page per document page.
// A page that cannot be parsed carries a non-nil Err and empty text.
// A file that cannot be opened or parsed at all fails the whole document.
func (e *PdfExtractor) Extract(ctx context.Context, path string) ([]interfaces.Page, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat PDF: %w", err)
	}

	reader, err := pdf.NewReader(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to parse PDF: %w", err)
	}

	numPages := reader.NumPage()
	pages := make([]interfaces.Page, 0, numPages)
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, interfaces.Page{
				Number: i,
				Err:    fmt.Errorf("page %d: missing page object", i),
			})
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			pages = append(pages, interfaces.Page{
				Number: i,
				Err:    fmt.Errorf("page %d: %w", i, err),
			})
			continue
		}

		pages = append(pages, interfaces.Page{
			Number: i,
			Text:   strings.TrimSpace(text),
		})
	}

	return pages, nil
}

// compile-time check to ensure PdfExtractor implements the Extractor interface
var _ interfaces.Extractor = (*PdfExtractor)(nil)
