package extract

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Registry selects an extractor by document extension.
type Registry struct {
	byExt map[string]Extractor
}

func NewRegistry(pdfCommand string) (*Registry, error) {
	pdf, err := NewPDF(pdfCommand)
	if err != nil {
		return nil, err
	}
	return &Registry{byExt: map[string]Extractor{
		"pdf": pdf,
		"txt": NewText(),
	}}, nil
}

// ForFile returns the extractor for filename, or ErrUnsupportedFormat when
// the extension is not recognized. Conversion must not be attempted for
// unknown input.
func (r *Registry) ForFile(filename string) (Extractor, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	e, ok := r.byExt[ext]
	if !ok {
		return nil, fmt.Errorf("%w: extension %q", ErrUnsupportedFormat, ext)
	}
	return e, nil
}
