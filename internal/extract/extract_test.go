package extract

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func TestTextExtractorPassThrough(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	if err := os.WriteFile(path, []byte("hello\nworld\n"), 0o644); err != nil {
		t.Fatalf("write doc: %v", err)
	}
	text, err := NewText().Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if text != "hello\nworld\n" {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestTextExtractorNormalizesLineEndings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	if err := os.WriteFile(path, []byte("a\r\nb\r\n"), 0o644); err != nil {
		t.Fatalf("write doc: %v", err)
	}
	text, err := NewText().Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if text != "a\nb\n" {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestTextExtractorRejectsInvalidUTF8(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	if err := os.WriteFile(path, []byte{0xff, 0xfe, 0x00}, 0o644); err != nil {
		t.Fatalf("write doc: %v", err)
	}
	_, err := NewText().Extract(context.Background(), path)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestTextExtractorMissingFile(t *testing.T) {
	_, err := NewText().Extract(context.Background(), filepath.Join(t.TempDir(), "absent.txt"))
	if !errors.Is(err, ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
}

func TestNewPDFRejectsEmptyCommand(t *testing.T) {
	if _, err := NewPDF(""); err == nil {
		t.Fatal("expected error for empty command")
	}
}

func TestPDFExtractorRunsCollaborator(t *testing.T) {
	if _, err := exec.LookPath("cat"); err != nil {
		t.Skip("cat not available")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.pdf")
	if err := os.WriteFile(path, []byte("pretend pdf text\n"), 0o644); err != nil {
		t.Fatalf("write doc: %v", err)
	}
	// cat stands in for pdftotext: the path is appended when no %s is given.
	e, err := NewPDF("cat")
	if err != nil {
		t.Fatalf("new pdf extractor: %v", err)
	}
	text, err := e.Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if text != "pretend pdf text\n" {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestPDFExtractorCollaboratorFailure(t *testing.T) {
	if _, err := exec.LookPath("cat"); err != nil {
		t.Skip("cat not available")
	}
	e, err := NewPDF("cat")
	if err != nil {
		t.Fatalf("new pdf extractor: %v", err)
	}
	_, err = e.Extract(context.Background(), filepath.Join(t.TempDir(), "absent.pdf"))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestRegistrySelection(t *testing.T) {
	r, err := NewRegistry("pdftotext -layout %s -")
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	if _, err := r.ForFile("book.PDF"); err != nil {
		t.Fatalf("expected pdf extractor: %v", err)
	}
	if _, err := r.ForFile("notes.txt"); err != nil {
		t.Fatalf("expected txt extractor: %v", err)
	}
	if _, err := r.ForFile("image.png"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	if _, err := r.ForFile("noext"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat for missing extension, got %v", err)
	}
}
