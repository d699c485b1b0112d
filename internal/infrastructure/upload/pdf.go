package upload

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// readPDFText extracts plain text from at most maxPages pages. Encrypted
// documents and documents with more pages than the cap are rejected.
func readPDFText(raw []byte, maxPages int) (text string, err error) {
	// The parser panics on some malformed cross-reference tables; a hostile
	// upload must surface as an error, not take the process down.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("invalid pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		if errors.Is(err, pdf.ErrInvalidPassword) {
			return "", errors.New("encrypted pdf is not supported")
		}
		return "", fmt.Errorf("invalid pdf: %w", err)
	}

	pages := reader.NumPage()
	if pages > maxPages {
		return "", fmt.Errorf("pdf has %d pages, limit is %d", pages, maxPages)
	}

	var sb strings.Builder
	for num := 1; num <= pages; num++ {
		page := reader.Page(num)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page does not invalidate the document.
			continue
		}
		sb.WriteString(content)
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String()), nil
}
