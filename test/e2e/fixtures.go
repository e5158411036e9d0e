// Package e2e provides end-to-end tests; this file builds minimal binary files for supported types.
package e2e

import (
	"archive/zip"
	"bytes"
)

// SupportedFileExtensions is the list of file extensions used in E2E file-based tests.
// PDF is not generated here (no minimal PDF with extractable text); the PDF path is
// covered by unit tests against real reader output.
var SupportedFileExtensions = []string{
	".txt", ".md", ".docx", ".eml",
}

// BuildMinimalFile returns the bytes of a minimal file of the given extension
// whose extracted text is the given content.
func BuildMinimalFile(ext, text string) []byte {
	switch ext {
	case ".docx":
		return minimalDocx(text)
	case ".eml":
		return minimalEml(text)
	default:
		return []byte(text)
	}
}

func minimalDocx(text string) []byte {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, _ := w.Create("word/document.xml")
	_, _ = fw.Write([]byte(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p><w:r><w:t>` + text + `</w:t></w:r></w:p></w:body></w:document>`))
	_ = w.Close()
	return buf.Bytes()
}

func minimalEml(text string) []byte {
	return []byte("From: sender@example.com\r\n" +
		"To: recipient@example.com\r\n" +
		"Subject: Fixture\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		text + "\r\n")
}
