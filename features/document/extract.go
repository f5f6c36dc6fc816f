package document

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrExtract marks a malformed or unsupported source document. Extraction
// failures are reported per document and never abort the rest of a batch.
var ErrExtract = errors.New("cannot extract document text")

// ExtractText pulls plain text out of an uploaded file. Plain text passes
// through unchanged; PDFs are flattened page by page.
func ExtractText(r io.ReaderAt, size int64, filename string) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt":
		data, err := io.ReadAll(io.NewSectionReader(r, 0, size))
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrExtract, err)
		}
		return string(data), nil
	case ".pdf":
		return extractPDF(r, size)
	default:
		return "", fmt.Errorf("%w: unsupported file type %q", ErrExtract, filepath.Ext(filename))
	}
}

func extractPDF(r io.ReaderAt, size int64) (string, error) {
	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtract, err)
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("%w: page %d: %v", ErrExtract, i, err)
		}
		b.WriteString(pageText)
		b.WriteString("\n")
	}
	return b.String(), nil
}
