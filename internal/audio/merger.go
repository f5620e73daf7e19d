// Package audio concatenates synthesized segment files into a single
// artifact.
//
// Merging is a plain ordered byte concatenation. That is only a valid way to
// join frame-based compressed streams such as MPEG audio, which is what the
// synthesis engines emit here; container formats with a single header (wav,
// ogg) would need re-encoding and are not supported.
package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrMerge reports a failed segment merge.
var ErrMerge = errors.New("audio merge failed")

// Merger joins ordered audio segments.
type Merger struct{}

func NewMerger() *Merger {
	return &Merger{}
}

// Merge writes the byte concatenation of segments, in the exact order given,
// to outPath. Output appears atomically: content is staged in a temp file in
// the destination directory and renamed into place, so a failed merge leaves
// nothing behind. A missing or zero-length segment fails the merge.
func (m *Merger) Merge(segments []string, outPath string) error {
	tmp, err := os.CreateTemp(filepath.Dir(outPath), ".merge-*")
	if err != nil {
		return fmt.Errorf("%w: create staging file: %v", ErrMerge, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	for _, seg := range segments {
		if err := appendSegment(tmp, seg); err != nil {
			tmp.Close()
			return err
		}
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: sync %s: %v", ErrMerge, tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", ErrMerge, tmpName, err)
	}
	if err := os.Rename(tmpName, outPath); err != nil {
		return fmt.Errorf("%w: rename to %s: %v", ErrMerge, outPath, err)
	}
	return nil
}

func appendSegment(dst io.Writer, seg string) error {
	info, err := os.Stat(seg)
	if err != nil {
		return fmt.Errorf("%w: segment %s missing: %v", ErrMerge, seg, err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%w: segment %s is empty", ErrMerge, seg)
	}
	f, err := os.Open(seg)
	if err != nil {
		return fmt.Errorf("%w: open segment %s: %v", ErrMerge, seg, err)
	}
	defer f.Close()
	if _, err := io.Copy(dst, f); err != nil {
		return fmt.Errorf("%w: copy segment %s: %v", ErrMerge, seg, err)
	}
	return nil
}
