package convert

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lehakshiv/lehakshiv/internal/config"
	"github.com/lehakshiv/lehakshiv/internal/jobstore"
	"github.com/lehakshiv/lehakshiv/internal/protocol"
)

// Manager accepts conversion requests and runs each job on its own
// goroutine, bounded by convert.max_jobs. Jobs are independent: every job
// gets its own scratch directory and its own cancelable context.
type Manager struct {
	pipeline *Pipeline
	jobs     *jobstore.Store
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	sem    chan struct{}
	wg     sync.WaitGroup
}

func NewManager(parent context.Context, cfg config.ConvertConfig, pipeline *Pipeline, jobs *jobstore.Store, logger *slog.Logger) *Manager {
	ctx, cancel := context.WithCancel(parent)
	return &Manager{
		pipeline: pipeline,
		jobs:     jobs,
		logger:   logger.With(slog.String("component", "convert-manager")),
		ctx:      ctx,
		cancel:   cancel,
		sem:      make(chan struct{}, cfg.MaxJobs),
	}
}

// Submit validates the request, journals a pending job and kicks off the
// pipeline in the background. The returned job carries the id and target
// artifact name the caller can poll for.
func (m *Manager) Submit(ctx context.Context, source string) (jobstore.Job, error) {
	// Reject unconvertible input before accepting the job.
	if _, err := m.pipeline.extractors.ForFile(source); err != nil {
		return jobstore.Job{}, err
	}
	if _, err := m.pipeline.files.UploadPath(source); err != nil {
		return jobstore.Job{}, err
	}

	job := jobstore.Job{
		ID:       uuid.New().String(),
		Source:   source,
		Artifact: m.pipeline.ArtifactName(source),
		State:    StatePending,
	}
	if err := m.jobs.CreateJob(ctx, job); err != nil {
		return jobstore.Job{}, fmt.Errorf("journal job: %w", err)
	}

	m.pipeline.publish(protocol.SubjectJobAccepted, protocol.JobEvent{
		JobID:     job.ID,
		Source:    job.Source,
		Artifact:  job.Artifact,
		State:     StatePending,
		Timestamp: time.Now().UTC(),
	})

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		select {
		case m.sem <- struct{}{}:
			defer func() { <-m.sem }()
		case <-m.ctx.Done():
			m.pipeline.fail(context.WithoutCancel(m.ctx), job, fmt.Errorf("job cancelled before start: %w", m.ctx.Err()))
			return
		}
		// The terminal error is journaled and published by the pipeline;
		// nothing to do with it here.
		_ = m.pipeline.Run(m.ctx, job)
	}()

	m.logger.Info("job accepted",
		slog.String("job_id", job.ID),
		slog.String("source", source),
		slog.String("artifact", job.Artifact))
	return job, nil
}

// Status returns the journaled record of one job.
func (m *Manager) Status(ctx context.Context, jobID string) (jobstore.Job, error) {
	return m.jobs.GetJob(ctx, jobID)
}

// Close cancels outstanding jobs and waits for them to unwind. In-flight
// synthesis stops at a chunk boundary and each job removes its partial
// segments before Close returns.
func (m *Manager) Close() {
	m.cancel()
	m.wg.Wait()
}
