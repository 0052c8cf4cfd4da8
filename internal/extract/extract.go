// Package extract turns uploaded files into plain text segments ready
// for chunking.
package extract

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

var (
	// ErrUnsupportedType indicates the file extension is not accepted.
	ErrUnsupportedType = errors.New("unsupported document type")

	// ErrExtraction indicates the file content could not be read.
	ErrExtraction = errors.New("text extraction failed")
)

// supportedExtensions maps accepted file extensions (lowercase, with
// dot) to the document type stored in the registry.
var supportedExtensions = map[string]string{
	".pdf":  "pdf",
	".docx": "docx",
	".doc":  "doc",
	".txt":  "txt",
	".csv":  "csv",
	".xlsx": "xlsx",
	".xls":  "xls",
}

// Segment is a contiguous run of extracted text with its source page.
// Formats without a page concept report page 1.
type Segment struct {
	Text string
	Page int
}

// Extractor converts raw file bytes into text segments.
type Extractor interface {
	Extract(data []byte) ([]Segment, error)
}

// TypeFromFilename returns the registry document type for a filename,
// or ErrUnsupportedType when the extension is not accepted.
func TypeFromFilename(name string) (string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	docType, ok := supportedExtensions[ext]
	if !ok {
		return "", fmt.Errorf("%w: %q (accepted: %s)",
			ErrUnsupportedType, ext, strings.Join(SupportedExtensions(), ", "))
	}
	return docType, nil
}

// SupportedExtensions returns the accepted extensions in a stable order.
func SupportedExtensions() []string {
	return []string{".pdf", ".docx", ".doc", ".txt", ".csv", ".xlsx", ".xls"}
}

// For returns the extractor responsible for a document type. Text-like
// formats share the plain-text extractor; binary office formats go
// through their dedicated ones.
func For(docType string) (Extractor, error) {
	switch docType {
	case "txt", "csv":
		return PlainText{}, nil
	case "pdf", "docx", "doc", "xlsx", "xls":
		// Binary formats are decoded leniently as text until dedicated
		// parsers land. TODO: wire a real PDF parser for page-accurate
		// extraction.
		return PlainText{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, docType)
	}
}

// PlainText extracts UTF-8 text, repairing invalid byte sequences
// instead of failing. The whole file is one page.
type PlainText struct{}

// Extract implements Extractor.
func (PlainText) Extract(data []byte) ([]Segment, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrExtraction)
	}

	text := string(data)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "�")
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: no text content", ErrExtraction)
	}

	return []Segment{{Text: text, Page: 1}}, nil
}
