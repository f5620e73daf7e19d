package audio

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeSegment(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write segment: %v", err)
	}
	return path
}

func TestMergePreservesGivenOrder(t *testing.T) {
	dir := t.TempDir()
	// Deliberately not lexicographic: merge must honor the listed order, not
	// a sorted one.
	segs := []string{
		writeSegment(t, dir, "zz.mp3", []byte("THIRD")),
		writeSegment(t, dir, "aa.mp3", []byte("FIRST")),
		writeSegment(t, dir, "mm.mp3", []byte("SECOND")),
	}
	out := filepath.Join(dir, "merged.mp3")

	if err := NewMerger().Merge(segs, out); err != nil {
		t.Fatalf("merge: %v", err)
	}
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read merged: %v", err)
	}
	if !bytes.Equal(got, []byte("THIRDFIRSTSECOND")) {
		t.Fatalf("unexpected merged content: %q", got)
	}
}

func TestMergeLengthEqualsSum(t *testing.T) {
	dir := t.TempDir()
	segs := []string{
		writeSegment(t, dir, "s0.mp3", bytes.Repeat([]byte{0x11}, 1000)),
		writeSegment(t, dir, "s1.mp3", bytes.Repeat([]byte{0x22}, 333)),
		writeSegment(t, dir, "s2.mp3", []byte{0x33}),
	}
	out := filepath.Join(dir, "merged.mp3")
	if err := NewMerger().Merge(segs, out); err != nil {
		t.Fatalf("merge: %v", err)
	}
	info, err := os.Stat(out)
	if err != nil {
		t.Fatalf("stat merged: %v", err)
	}
	if info.Size() != 1334 {
		t.Fatalf("expected 1334 bytes, got %d", info.Size())
	}
}

func TestMergeNoSegmentsProducesEmptyFile(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "merged.mp3")
	if err := NewMerger().Merge(nil, out); err != nil {
		t.Fatalf("merge: %v", err)
	}
	info, err := os.Stat(out)
	if err != nil {
		t.Fatalf("stat merged: %v", err)
	}
	if info.Size() != 0 {
		t.Fatalf("expected empty artifact, got %d bytes", info.Size())
	}
}

func TestMergeMissingSegment(t *testing.T) {
	dir := t.TempDir()
	segs := []string{
		writeSegment(t, dir, "s0.mp3", []byte("data")),
		filepath.Join(dir, "absent.mp3"),
	}
	out := filepath.Join(dir, "merged.mp3")
	err := NewMerger().Merge(segs, out)
	if !errors.Is(err, ErrMerge) {
		t.Fatalf("expected ErrMerge, got %v", err)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Fatalf("partial output left behind after failed merge")
	}
}

func TestMergeEmptySegment(t *testing.T) {
	dir := t.TempDir()
	segs := []string{
		writeSegment(t, dir, "s0.mp3", []byte("data")),
		writeSegment(t, dir, "s1.mp3", nil),
	}
	out := filepath.Join(dir, "merged.mp3")
	if err := NewMerger().Merge(segs, out); !errors.Is(err, ErrMerge) {
		t.Fatalf("expected ErrMerge for zero-length segment, got %v", err)
	}
}

func TestMergeLeavesNoStagingFiles(t *testing.T) {
	dir := t.TempDir()
	segs := []string{writeSegment(t, dir, "s0.mp3", []byte("x"))}
	out := filepath.Join(dir, "merged.mp3")
	if err := NewMerger().Merge(segs, out); err != nil {
		t.Fatalf("merge: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	for _, e := range entries {
		if e.Name() != "s0.mp3" && e.Name() != "merged.mp3" {
			t.Fatalf("unexpected leftover file %s", e.Name())
		}
	}
}
