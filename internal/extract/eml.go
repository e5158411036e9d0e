package extract

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"
)

// extractEmail extracts text from an RFC 5322 message. Every MIME part with
// content type text/plain contributes its decoded payload, concatenated in
// walk order. A message with no Content-Type header is treated as text/plain
// per the RFC default. Undecodable bytes are tolerated, not fatal.
func extractEmail(content []byte) (string, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("parse email: %w", err)
	}
	var buf strings.Builder
	if err := collectTextParts(&buf, msg.Header.Get("Content-Type"), msg.Header.Get("Content-Transfer-Encoding"), msg.Body); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// collectTextParts walks one MIME entity, recursing into multipart bodies and
// appending decoded text/plain payloads to buf.
func collectTextParts(buf *strings.Builder, contentType, transferEncoding string, body io.Reader) error {
	mediaType := "text/plain"
	var params map[string]string
	if contentType != "" {
		parsed, p, err := mime.ParseMediaType(contentType)
		if err == nil {
			mediaType = parsed
			params = p
		}
	}
	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" {
			return fmt.Errorf("parse email: multipart without boundary")
		}
		mr := multipart.NewReader(body, boundary)
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				// tolerate a truncated trailing part
				return nil
			}
			err = collectTextParts(buf, part.Header.Get("Content-Type"), part.Header.Get("Content-Transfer-Encoding"), part)
			_ = part.Close()
			if err != nil {
				return err
			}
		}
	}
	if mediaType != "text/plain" {
		return nil
	}
	payload, err := io.ReadAll(decodeTransfer(body, transferEncoding))
	if err != nil && len(payload) == 0 {
		return nil
	}
	text, _ := extractPlain(payload)
	buf.WriteString(text)
	return nil
}

// decodeTransfer wraps r with the decoder for the given Content-Transfer-Encoding.
func decodeTransfer(r io.Reader, encoding string) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, r)
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	default:
		return r
	}
}
