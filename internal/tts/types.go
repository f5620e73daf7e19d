package tts

import (
	"context"
	"errors"
)

// ErrSynthesis reports a speech engine failure, including timeouts.
var ErrSynthesis = errors.New("speech synthesis failed")

// Synthesizer renders speech for one text chunk into a file.
//
// Synthesize blocks until the file at outPath is complete and flushed. On
// failure nothing is left at outPath: implementations stage output in a temp
// file and rename it into place.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, outPath string) error
}
