// Package extract provides text extraction from various document formats.
package extract

import (
	"path/filepath"
	"strings"

	"github.com/hyperjump/kotae/internal/errs"
)

// Format identifies a supported document format. Dispatch is an explicit
// enumeration with one handler per variant so adding a format is a localized
// change.
type Format int

const (
	FormatPlainText Format = iota
	FormatPDF
	FormatDOCX
	FormatEmail
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatPDF:
		return "pdf"
	case FormatDOCX:
		return "docx"
	case FormatEmail:
		return "email"
	default:
		return "plain"
	}
}

// DetectFormat maps a filename extension (case-insensitive) to a Format.
// Unknown extensions fall back to plain text.
func DetectFormat(filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return FormatPDF
	case ".docx":
		return FormatDOCX
	case ".eml":
		return FormatEmail
	default:
		return FormatPlainText
	}
}

// Extractor extracts plain text from document bytes.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// ExtractText extracts the text content of content, dispatching on the
// format detected from filename. PDF pages are concatenated in page order,
// DOCX text nodes in document order, and email text/plain MIME parts in
// walk order; anything else is decoded as UTF-8-tolerant plain text.
// Returns a client-input error when the document yields no readable text.
func (e *Extractor) ExtractText(content []byte, filename string) (string, error) {
	format := DetectFormat(filename)
	text, err := e.extract(content, format)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", errs.ClientInput("No readable text found in file.")
	}
	return text, nil
}

func (e *Extractor) extract(content []byte, format Format) (string, error) {
	switch format {
	case FormatPDF:
		return extractPDF(content)
	case FormatDOCX:
		return extractDOCX(content)
	case FormatEmail:
		return extractEmail(content)
	default:
		return extractPlain(content)
	}
}
