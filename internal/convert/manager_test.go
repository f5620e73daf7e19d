package convert

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lehakshiv/lehakshiv/internal/config"
	"github.com/lehakshiv/lehakshiv/internal/extract"
	"github.com/lehakshiv/lehakshiv/internal/jobstore"
	"github.com/lehakshiv/lehakshiv/internal/store"
)

func newManager(t *testing.T, p *Pipeline, f *fixture) *Manager {
	t.Helper()
	m := NewManager(context.Background(),
		config.ConvertConfig{WordBudget: 4096, Workers: 1, MaxJobs: 2},
		p, f.jobs, newLogger())
	t.Cleanup(m.Close)
	return m
}

func waitForState(t *testing.T, f *fixture, jobID, state string) jobstore.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := f.jobs.GetJob(context.Background(), jobID)
		if err == nil && job.State == state {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	job, _ := f.jobs.GetJob(context.Background(), jobID)
	t.Fatalf("job %s never reached %s (last state %q, error %q)", jobID, state, job.State, job.Error)
	return jobstore.Job{}
}

func TestSubmitRunsJobToCompletion(t *testing.T) {
	p, f := newPipeline(t, &passthroughSynth{}, 1)
	m := newManager(t, p, f)

	uploadText(t, f, "book.txt", tenThousandWords())
	job, err := m.Submit(context.Background(), "book.txt")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if job.Artifact != "book.mp3" {
		t.Fatalf("unexpected artifact name %q", job.Artifact)
	}

	done := waitForState(t, f, job.ID, StateDone)
	if done.Chunks != 3 {
		t.Fatalf("expected 3 chunks, got %d", done.Chunks)
	}
	if _, err := f.files.ArtifactPath("book.mp3"); err != nil {
		t.Fatalf("artifact not published: %v", err)
	}
}

func TestSubmitRejectsUnsupportedExtension(t *testing.T) {
	p, f := newPipeline(t, &passthroughSynth{}, 1)
	m := newManager(t, p, f)

	uploadText(t, f, "image.png", "bytes")
	if _, err := m.Submit(context.Background(), "image.png"); !errors.Is(err, extract.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestSubmitRejectsMissingUpload(t *testing.T) {
	p, f := newPipeline(t, &passthroughSynth{}, 1)
	m := newManager(t, p, f)

	if _, err := m.Submit(context.Background(), "absent.txt"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStatusUnknownJob(t *testing.T) {
	p, f := newPipeline(t, &passthroughSynth{}, 1)
	m := newManager(t, p, f)

	if _, err := m.Status(context.Background(), "no-such-job"); !errors.Is(err, jobstore.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestConcurrentSubmissionsStayIsolated(t *testing.T) {
	p, f := newPipeline(t, &passthroughSynth{}, 1)
	m := newManager(t, p, f)

	uploadText(t, f, "a.txt", "alpha alpha alpha\n")
	uploadText(t, f, "b.txt", "beta beta\n")
	jobA, err := m.Submit(context.Background(), "a.txt")
	if err != nil {
		t.Fatalf("submit a: %v", err)
	}
	jobB, err := m.Submit(context.Background(), "b.txt")
	if err != nil {
		t.Fatalf("submit b: %v", err)
	}

	waitForState(t, f, jobA.ID, StateDone)
	waitForState(t, f, jobB.ID, StateDone)

	entries, err := f.files.ListConverted()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 artifacts, got %+v", entries)
	}
}
