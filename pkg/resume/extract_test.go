package resume

import (
	"strings"
	"testing"
)

func TestExtractPlainText(t *testing.T) {
	text, err := ExtractText(strings.NewReader("Go engineer, 5 years of experience."), "resume.txt")
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if text != "Go engineer, 5 years of experience." {
		t.Errorf("plain text should pass through, got %q", text)
	}
}

func TestExtractEmptyUpload(t *testing.T) {
	if _, err := ExtractText(strings.NewReader(""), "resume.txt"); err == nil {
		t.Error("expected error for empty upload")
	}
}

func TestExtractCorruptPDF(t *testing.T) {
	if _, err := ExtractText(strings.NewReader("%PDF-1.4 garbage"), "resume.pdf"); err == nil {
		t.Error("expected error for corrupt pdf")
	}
}

func TestIsPDF(t *testing.T) {
	if !isPDF([]byte("plain"), "cv.PDF") {
		t.Error("pdf extension should be detected case-insensitively")
	}
	if !isPDF([]byte("%PDF-1.7\n"), "upload.bin") {
		t.Error("pdf magic bytes should be detected")
	}
	if isPDF([]byte("hello"), "cv.txt") {
		t.Error("plain text misdetected as pdf")
	}
}
