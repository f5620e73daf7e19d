// Package extract turns uploaded documents into normalized plain text.
package extract

import (
	"context"
	"errors"
)

var (
	// ErrUnsupportedFormat reports a document the service cannot convert.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrExtraction reports an I/O or collaborator failure during extraction.
	ErrExtraction = errors.New("text extraction failed")
	// ErrInvalidInput reports document content that is not valid UTF-8 text.
	ErrInvalidInput = errors.New("invalid input text")
)

// Extractor produces normalized UTF-8 text from a document on disk.
type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}
