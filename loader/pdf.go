package loader

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

var errNoText = errors.New("document contains no extractable text")

// IsPDF reports whether body starts with the PDF magic header.
func IsPDF(body []byte) bool {
	return bytes.HasPrefix(bytes.TrimLeft(body, "\r\n\t "), []byte("%PDF-"))
}

// PDFPages extracts the plain text of every page. Pages without text are
// dropped, so the result may be shorter than the page count.
func PDFPages(body []byte) (pages []string, err error) {
	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to extract text from page %d: %w", i, err)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, text)
	}
	if len(pages) == 0 {
		return nil, errNoText
	}
	return pages, nil
}
