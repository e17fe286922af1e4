// Package extract provides text extraction from study-material documents.
package extract

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupported is returned for extensions the extractor has no reader for.
var ErrUnsupported = errors.New("unsupported document type")

// Extractor extracts plain text from document files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// ExtractBytes extracts text from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf") and is matched case-insensitively.
// Returns ErrUnsupported (wrapped) for unknown extensions.
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	switch strings.ToLower(ext) {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".xlsx":
		return extractExcel(content)
	case ".pptx":
		return extractPPTX(content)
	case ".txt", ".md":
		return extractPlain(content)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
}

// Supported reports whether ext (with its leading dot) has a reader.
func Supported(ext string) bool {
	switch strings.ToLower(ext) {
	case ".pdf", ".docx", ".xlsx", ".pptx", ".txt", ".md":
		return true
	}
	return false
}
