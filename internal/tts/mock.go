package tts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

type mockSynth struct{}

// NewMockSynth returns a synthesizer that writes a deterministic pseudo-audio
// payload derived from the input text. Useful for development and tests where
// no speech engine is installed.
func NewMockSynth() Synthesizer {
	return mockSynth{}
}

func (mockSynth) Synthesize(ctx context.Context, text, outPath string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrSynthesis, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(outPath), ".synth-*")
	if err != nil {
		return fmt.Errorf("%w: create staging file: %v", ErrSynthesis, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := fmt.Fprintf(tmp, "MOCKAUDIO[%d]%s", len(text), text); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write output: %v", ErrSynthesis, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close output: %v", ErrSynthesis, err)
	}
	if err := os.Rename(tmpName, outPath); err != nil {
		return fmt.Errorf("%w: rename to %s: %v", ErrSynthesis, outPath, err)
	}
	return nil
}
