// Package extract pulls plain text out of uploaded study material. It sits
// at the boundary of the pipeline: extraction failures become generation
// failures before any prompt is built.
package extract

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// ErrUnsupportedType is returned for file types other than PDF and TXT.
var ErrUnsupportedType = errors.New("unsupported file type")

// ErrEmpty is returned when a document yields no usable text.
var ErrEmpty = errors.New("document contains no text")

// FromUpload extracts the text of an uploaded document, dispatching on the
// filename extension. An optional page selection restricts PDF extraction
// to the given 1-based pages; it is ignored for plain text.
func FromUpload(filename string, r io.Reader, pages ...int) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt":
		data, err := io.ReadAll(r)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", filename, err)
		}
		text := string(data)
		if strings.TrimSpace(text) == "" {
			return "", ErrEmpty
		}
		return text, nil
	case ".pdf":
		text, err := PDF(r, pages...)
		if err != nil {
			return "", fmt.Errorf("extract %s: %w", filename, err)
		}
		return text, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, filepath.Ext(filename))
	}
}
