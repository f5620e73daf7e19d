package tts

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-shellwords"
)

type execSynth struct {
	cmd     []string
	voice   string
	timeout time.Duration
	mu      sync.Mutex
}

// NewExecSynth wraps a command-line speech engine. The command receives the
// chunk text on stdin and must write the rendered audio to stdout; "%v"
// arguments are replaced by the configured voice.
//
// The engine is treated as non-reentrant: a mutex serializes calls, so one
// instance can be shared across jobs without interleaving engine state.
func NewExecSynth(command, voice string, timeout time.Duration) (Synthesizer, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse tts command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("tts command empty")
	}
	return &execSynth{cmd: args, voice: voice, timeout: timeout}, nil
}

func (e *execSynth) Synthesize(ctx context.Context, text, outPath string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	tmp, err := os.CreateTemp(filepath.Dir(outPath), ".synth-*")
	if err != nil {
		return fmt.Errorf("%w: create staging file: %v", ErrSynthesis, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	args := make([]string, 0, len(e.cmd)-1)
	for _, a := range e.cmd[1:] {
		args = append(args, strings.ReplaceAll(a, "%v", e.voice))
	}
	cmd := exec.CommandContext(ctx, e.cmd[0], args...)
	cmd.Stdin = strings.NewReader(text)
	cmd.Stdout = tmp

	// Engines of this kind are known to hang on completion. Run under an
	// owned goroutine and treat the deadline as authoritative instead of
	// trusting the engine's own wait.
	done := make(chan error, 1)
	go func() { done <- cmd.Run() }()

	select {
	case err = <-done:
	case <-ctx.Done():
		<-done // CommandContext has killed the process; reap it
		tmp.Close()
		return fmt.Errorf("%w: engine did not complete: %v", ErrSynthesis, ctx.Err())
	}
	if err != nil {
		tmp.Close()
		return fmt.Errorf("%w: engine: %v", ErrSynthesis, err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: sync output: %v", ErrSynthesis, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close output: %v", ErrSynthesis, err)
	}
	if err := os.Rename(tmpName, outPath); err != nil {
		return fmt.Errorf("%w: rename to %s: %v", ErrSynthesis, outPath, err)
	}
	return nil
}
