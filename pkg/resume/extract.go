// Package resume extracts plain text from uploaded resume files.
package resume

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"rsc.io/pdf"
)

// MaxUploadBytes bounds accepted resume uploads.
const MaxUploadBytes = 10 << 20

// ExtractText pulls the text content out of an uploaded resume. PDF uploads
// are parsed page by page; anything else is treated as plain text.
func ExtractText(r io.Reader, filename string) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read resume upload: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("resume upload is empty")
	}

	if isPDF(data, filename) {
		return extractPDF(data)
	}
	return string(data), nil
}

func isPDF(data []byte, filename string) bool {
	if strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		return true
	}
	return bytes.HasPrefix(data, []byte("%PDF-"))
}

func extractPDF(data []byte) (text string, err error) {
	// The pdf package panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("failed to parse pdf: %v", r)
		}
	}()

	doc, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to parse pdf: %w", err)
	}

	var parts []string
	for i := 1; i <= doc.NumPage(); i++ {
		page := doc.Page(i)
		if page.V.IsNull() {
			continue
		}
		content := page.Content()
		for _, text := range content.Text {
			if strings.TrimSpace(text.S) == "" {
				continue
			}
			parts = append(parts, text.S)
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("no text found in pdf")
	}
	return strings.Join(parts, " "), nil
}
