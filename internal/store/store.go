// Package store manages the per-process working directory that holds
// uploaded documents, converted artifacts and per-job scratch space.
package store

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/lehakshiv/lehakshiv/internal/config"
)

// ErrNotFound reports a missing document or artifact.
var ErrNotFound = errors.New("file not found")

// Entry describes one artifact in a directory listing.
type Entry struct {
	File string `json:"file"`
	Size string `json:"size"`
}

// Store owns the working directory layout:
//
//	<root>/uploads/    raw documents
//	<root>/converted/  merged audio artifacts
//	<root>/jobs/       per-job scratch dirs
//
// Uploads and artifacts are write-once per name; scratch dirs are owned by a
// single job each, so jobs never share a path.
type Store struct {
	root    string
	created bool
	keep    bool
	log     *slog.Logger
}

func Open(cfg config.StoreConfig, log *slog.Logger) (*Store, error) {
	root := cfg.Root
	created := false
	if root == "" {
		tmp, err := os.MkdirTemp("", "lehakshiv-*")
		if err != nil {
			return nil, fmt.Errorf("create work dir: %w", err)
		}
		root = tmp
		created = true
	}
	s := &Store{root: root, created: created, keep: cfg.KeepOnShutdown, log: log.With(slog.String("component", "store"))}
	for _, dir := range []string{s.UploadsDir(), s.ConvertedDir(), s.jobsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("prepare %s: %w", dir, err)
		}
	}
	s.log.Info("working directory ready", slog.String("root", root))
	return s, nil
}

// Close tears the working directory down unless configured to keep it.
func (s *Store) Close() error {
	if s.keep {
		return nil
	}
	s.log.Info("removing working directory", slog.String("root", s.root))
	return os.RemoveAll(s.root)
}

func (s *Store) Root() string         { return s.root }
func (s *Store) UploadsDir() string   { return filepath.Join(s.root, "uploads") }
func (s *Store) ConvertedDir() string { return filepath.Join(s.root, "converted") }
func (s *Store) jobsDir() string      { return filepath.Join(s.root, "jobs") }

// sanitize rejects names that would escape the working directory.
func sanitize(name string) (string, error) {
	base := filepath.Base(name)
	if base != name || base == "." || base == ".." || strings.ContainsAny(name, "/\\") {
		return "", fmt.Errorf("%w: invalid name %q", ErrNotFound, name)
	}
	return base, nil
}

// SaveUpload streams an uploaded document into the uploads area.
func (s *Store) SaveUpload(name string, r io.Reader) error {
	name, err := sanitize(name)
	if err != nil {
		return err
	}
	dst := filepath.Join(s.UploadsDir(), name)
	tmp, err := os.CreateTemp(s.UploadsDir(), ".upload-*")
	if err != nil {
		return fmt.Errorf("stage upload: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close upload: %w", err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return fmt.Errorf("store upload: %w", err)
	}
	return nil
}

// UploadPath resolves an uploaded document by name.
func (s *Store) UploadPath(name string) (string, error) {
	name, err := sanitize(name)
	if err != nil {
		return "", err
	}
	p := filepath.Join(s.UploadsDir(), name)
	if _, err := os.Stat(p); err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return p, nil
}

// ArtifactPath resolves a converted artifact, falling back to the uploads
// area so original documents stay downloadable too.
func (s *Store) ArtifactPath(name string) (string, error) {
	name, err := sanitize(name)
	if err != nil {
		return "", err
	}
	for _, dir := range []string{s.ConvertedDir(), s.UploadsDir()} {
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Remove deletes name from both the uploads and converted areas. It fails
// with ErrNotFound only when the file exists in neither.
func (s *Store) Remove(name string) error {
	name, err := sanitize(name)
	if err != nil {
		return err
	}
	removed := false
	for _, dir := range []string{s.UploadsDir(), s.ConvertedDir()} {
		if err := os.Remove(filepath.Join(dir, name)); err == nil {
			removed = true
		}
	}
	if !removed {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}

// ListConverted returns the converted artifacts with human-readable sizes,
// sorted by name for stable output.
func (s *Store) ListConverted() ([]Entry, error) {
	dirents, err := os.ReadDir(s.ConvertedDir())
	if err != nil {
		return nil, fmt.Errorf("%w: converted area: %v", ErrNotFound, err)
	}
	entries := make([]Entry, 0, len(dirents))
	for _, d := range dirents {
		if d.IsDir() {
			continue
		}
		info, err := d.Info()
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			File: d.Name(),
			Size: humanize.Bytes(uint64(info.Size())),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].File < entries[j].File })
	return entries, nil
}

// JobDir creates a private scratch directory for one conversion job.
func (s *Store) JobDir(jobID string) (string, error) {
	dir := filepath.Join(s.jobsDir(), jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create job dir: %w", err)
	}
	return dir, nil
}

// ReleaseJobDir discards a job's scratch directory and everything in it.
func (s *Store) ReleaseJobDir(jobID string) {
	if err := os.RemoveAll(filepath.Join(s.jobsDir(), jobID)); err != nil {
		s.log.Warn("failed to remove job dir", slog.String("job_id", jobID), slog.String("error", err.Error()))
	}
}

// PublishArtifact moves a finished merged artifact into the converted area.
func (s *Store) PublishArtifact(src, name string) (string, error) {
	name, err := sanitize(name)
	if err != nil {
		return "", err
	}
	dst := filepath.Join(s.ConvertedDir(), name)
	if err := os.Rename(src, dst); err != nil {
		return "", fmt.Errorf("publish artifact: %w", err)
	}
	return dst, nil
}
