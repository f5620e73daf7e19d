package tts

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestMockSynthWritesFile(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "seg-0000.mp3")
	if err := NewMockSynth().Synthesize(context.Background(), "hello world", out); err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(data), "hello world") {
		t.Fatalf("unexpected output: %q", data)
	}
}

func TestMockSynthIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.mp3")
	b := filepath.Join(dir, "b.mp3")
	s := NewMockSynth()
	if err := s.Synthesize(context.Background(), "same text", a); err != nil {
		t.Fatalf("synthesize a: %v", err)
	}
	if err := s.Synthesize(context.Background(), "same text", b); err != nil {
		t.Fatalf("synthesize b: %v", err)
	}
	da, _ := os.ReadFile(a)
	db, _ := os.ReadFile(b)
	if string(da) != string(db) {
		t.Fatal("same input produced different output")
	}
}

func TestMockSynthHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := filepath.Join(t.TempDir(), "seg.mp3")
	err := NewMockSynth().Synthesize(ctx, "text", out)
	if !errors.Is(err, ErrSynthesis) {
		t.Fatalf("expected ErrSynthesis, got %v", err)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Fatal("output written despite cancelled context")
	}
}

func TestExecSynthRendersStdinToFile(t *testing.T) {
	if _, err := exec.LookPath("cat"); err != nil {
		t.Skip("cat not available")
	}
	s, err := NewExecSynth("cat", "en-US", 5*time.Second)
	if err != nil {
		t.Fatalf("new exec synth: %v", err)
	}
	out := filepath.Join(t.TempDir(), "seg-0000.mp3")
	if err := s.Synthesize(context.Background(), "spoken words", out); err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != "spoken words" {
		t.Fatalf("unexpected output: %q", data)
	}
}

func TestExecSynthTimesOut(t *testing.T) {
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not available")
	}
	s, err := NewExecSynth("sleep 10", "en-US", 100*time.Millisecond)
	if err != nil {
		t.Fatalf("new exec synth: %v", err)
	}
	out := filepath.Join(t.TempDir(), "seg.mp3")
	start := time.Now()
	err = s.Synthesize(context.Background(), "text", out)
	if !errors.Is(err, ErrSynthesis) {
		t.Fatalf("expected ErrSynthesis, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatal("timeout did not interrupt the engine")
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Fatal("partial output left behind after timeout")
	}
}

func TestExecSynthFailedEngineLeavesNothing(t *testing.T) {
	if _, err := exec.LookPath("false"); err != nil {
		t.Skip("false not available")
	}
	s, err := NewExecSynth("false", "en-US", 5*time.Second)
	if err != nil {
		t.Fatalf("new exec synth: %v", err)
	}
	out := filepath.Join(t.TempDir(), "seg.mp3")
	if err := s.Synthesize(context.Background(), "text", out); !errors.Is(err, ErrSynthesis) {
		t.Fatalf("expected ErrSynthesis, got %v", err)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Fatal("output present after engine failure")
	}
}

func TestNewExecSynthRejectsEmptyCommand(t *testing.T) {
	if _, err := NewExecSynth("", "en-US", time.Second); err == nil {
		t.Fatal("expected error for empty command")
	}
}
