package extract

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"
)

type textExtractor struct{}

// NewText returns the plain-text extractor. Normalization is currently a
// pass-through that only rewrites CRLF line endings; stripping boilerplate
// headers can slot in here later without touching callers.
func NewText() Extractor {
	return textExtractor{}
}

func (textExtractor) Extract(_ context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %v", ErrExtraction, path, err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s is not valid UTF-8", ErrInvalidInput, path)
	}
	return cleanText(string(data)), nil
}

func cleanText(text string) string {
	return strings.ReplaceAll(text, "\r\n", "\n")
}
