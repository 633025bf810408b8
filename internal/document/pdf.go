// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package document

import (
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
)

// DefaultMaxPages is how many leading pages OpenPDF extracts when asked
// for zero. Identifiers and titles are nearly always on the first pages.
const DefaultMaxPages = 3

// OpenPDF extracts the text of the first maxPages pages of a PDF file.
// A negative maxPages extracts every page. Pages whose text cannot be
// extracted are kept as empty pages.
func OpenPDF(path string, maxPages int) (*Text, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening PDF %s: %w", path, err)
	}
	defer f.Close()
	return pagesOf(r, maxPages), nil
}

// ReadPDF is OpenPDF for a PDF held in r.
func ReadPDF(r io.ReaderAt, size int64, maxPages int) (*Text, error) {
	pr, err := pdf.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("reading PDF: %w", err)
	}
	return pagesOf(pr, maxPages), nil
}

func pagesOf(r *pdf.Reader, maxPages int) *Text {
	if maxPages == 0 {
		maxPages = DefaultMaxPages
	}
	if maxPages < 0 || maxPages > r.NumPage() {
		maxPages = r.NumPage()
	}

	pages := make([]string, 0, maxPages)
	for i := 1; i <= maxPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}
	return NewPages(pages)
}
