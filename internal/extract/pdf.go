package extract

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDF extracts plain text from a PDF stream. When pages are given, only
// those 1-based pages are extracted; out-of-range page numbers are an error.
func PDF(r io.Reader, pages ...int) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}

	rd, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("parse pdf: %w", err)
	}

	total := rd.NumPage()
	selected := make(map[int]bool, len(pages))
	for _, p := range pages {
		if p < 1 || p > total {
			return "", fmt.Errorf("page %d out of range, document has %d pages", p, total)
		}
		selected[p] = true
	}

	var sb strings.Builder
	for i := 1; i <= total; i++ {
		if len(selected) > 0 && !selected[i] {
			continue
		}
		page := rd.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extract page %d: %w", i, err)
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	if strings.TrimSpace(sb.String()) == "" {
		return "", ErrEmpty
	}
	return sb.String(), nil
}
