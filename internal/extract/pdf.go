package extract

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-shellwords"
)

type pdfExtractor struct {
	cmd []string
}

// NewPDF builds an extractor that shells out to a pdftotext-style
// collaborator. Every "%s" argument in command is replaced by the document
// path; if none is present the path is appended. The command must print the
// extracted text on stdout.
func NewPDF(command string) (Extractor, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse pdf command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("pdf command empty")
	}
	return &pdfExtractor{cmd: args}, nil
}

func (p *pdfExtractor) Extract(ctx context.Context, path string) (string, error) {
	args := make([]string, 0, len(p.cmd)-1)
	substituted := false
	for _, a := range p.cmd[1:] {
		if strings.Contains(a, "%s") {
			a = strings.ReplaceAll(a, "%s", path)
			substituted = true
		}
		args = append(args, a)
	}
	if !substituted {
		args = append(args, path)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, p.cmd[0], args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			// The collaborator ran but rejected the document.
			return "", fmt.Errorf("%w: %s: %s", ErrUnsupportedFormat, path, firstLine(stderr.String()))
		}
		return "", fmt.Errorf("%w: run pdf collaborator: %v", ErrExtraction, err)
	}

	text := stdout.String()
	if !utf8.ValidString(text) {
		return "", fmt.Errorf("%w: pdf collaborator produced non-UTF-8 output", ErrInvalidInput)
	}
	return cleanText(text), nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if s == "" {
		s = "collaborator reported failure"
	}
	return s
}
