// Package convert orchestrates the document-to-audio pipeline: extract text,
// plan chunks, synthesize one audio segment per chunk, merge segments in
// chunk order and publish the merged artifact.
package convert

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/lehakshiv/lehakshiv/internal/audio"
	"github.com/lehakshiv/lehakshiv/internal/bus"
	"github.com/lehakshiv/lehakshiv/internal/chunk"
	"github.com/lehakshiv/lehakshiv/internal/config"
	"github.com/lehakshiv/lehakshiv/internal/extract"
	"github.com/lehakshiv/lehakshiv/internal/jobstore"
	"github.com/lehakshiv/lehakshiv/internal/protocol"
	"github.com/lehakshiv/lehakshiv/internal/store"
	"github.com/lehakshiv/lehakshiv/internal/tts"
)

// Job lifecycle states, journaled per transition.
const (
	StatePending      = "pending"
	StateExtracting   = "extracting"
	StateChunking     = "chunking"
	StateSynthesizing = "synthesizing"
	StateMerging      = "merging"
	StateDone         = "done"
	StateFailed       = "failed"
)

// Pipeline runs one conversion job end to end. Collaborators are pluggable:
// extraction and synthesis stay behind their interfaces so engines can be
// swapped without touching the orchestration.
type Pipeline struct {
	cfg        config.ConvertConfig
	extractors *extract.Registry
	planner    *chunk.Planner
	synth      tts.Synthesizer
	merger     *audio.Merger
	files      *store.Store
	jobs       *jobstore.Store
	bus        *bus.Client
	format     string
	logger     *slog.Logger
	metrics    *metrics
	tracer     trace.Tracer
}

func NewPipeline(
	cfg config.ConvertConfig,
	extractors *extract.Registry,
	synth tts.Synthesizer,
	merger *audio.Merger,
	files *store.Store,
	jobs *jobstore.Store,
	busClient *bus.Client,
	format string,
	logger *slog.Logger,
) (*Pipeline, error) {
	m, err := newMetrics()
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		cfg:        cfg,
		extractors: extractors,
		planner:    chunk.NewPlanner(cfg.WordBudget),
		synth:      synth,
		merger:     merger,
		files:      files,
		jobs:       jobs,
		bus:        busClient,
		format:     format,
		logger:     logger.With(slog.String("component", "pipeline")),
		metrics:    m,
		tracer:     otel.Tracer("lehakshiv/convert"),
	}, nil
}

// ArtifactName derives the merged artifact name from the source document.
func (p *Pipeline) ArtifactName(source string) string {
	ext := filepath.Ext(source)
	return strings.TrimSuffix(source, ext) + "." + p.format
}

// Run executes the job. Any stage failure aborts the remaining stages,
// discards partial segments and surfaces a single terminal error; the merged
// artifact is published only on full success.
func (p *Pipeline) Run(ctx context.Context, job jobstore.Job) error {
	ctx, span := p.tracer.Start(ctx, "convert.run",
		trace.WithAttributes(
			attribute.String("job.id", job.ID),
			attribute.String("job.source", job.Source),
		))
	defer span.End()

	start := time.Now()
	p.metrics.jobsStarted.Add(ctx, 1)

	err := p.run(ctx, job)

	p.metrics.jobDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		p.metrics.jobsFailed.Add(ctx, 1)
		span.RecordError(err)
		// Journal the failure even when the job context itself was cancelled.
		p.fail(context.WithoutCancel(ctx), job, err)
		return err
	}
	p.metrics.jobsCompleted.Add(ctx, 1)
	return nil
}

func (p *Pipeline) run(ctx context.Context, job jobstore.Job) error {
	jobDir, err := p.files.JobDir(job.ID)
	if err != nil {
		return err
	}
	defer p.files.ReleaseJobDir(job.ID)

	// Extracting
	p.transition(ctx, job, StateExtracting, "")
	extractor, err := p.extractors.ForFile(job.Source)
	if err != nil {
		return err
	}
	srcPath, err := p.files.UploadPath(job.Source)
	if err != nil {
		return err
	}
	text, err := extractor.Extract(ctx, srcPath)
	if err != nil {
		return err
	}
	// Keep the normalized text next to the upload, matching the service's
	// historical layout.
	p.writeSidecar(job.Source, text)

	// Chunking
	p.transition(ctx, job, StateChunking, "")
	chunks := p.planner.Plan(text)
	if err := p.jobs.SetChunks(ctx, job.ID, len(chunks)); err != nil {
		p.logger.Warn("failed to record chunk count", slog.String("job_id", job.ID), slogError(err))
	}

	// Synthesizing. Zero chunks is legitimate: the job short-circuits to an
	// empty merged artifact.
	p.transition(ctx, job, StateSynthesizing, fmt.Sprintf("%d chunks", len(chunks)))
	segments, err := p.synthesize(ctx, job, jobDir, chunks)
	if err != nil {
		return err
	}

	// Merging
	p.transition(ctx, job, StateMerging, "")
	merged := filepath.Join(jobDir, "merged."+p.format)
	if err := p.merger.Merge(segments, merged); err != nil {
		return err
	}
	artifact, err := p.files.PublishArtifact(merged, p.ArtifactName(job.Source))
	if err != nil {
		return err
	}

	p.transition(ctx, job, StateDone, "")
	p.logger.Info("conversion complete",
		slog.String("job_id", job.ID),
		slog.String("artifact", artifact),
		slog.Int("chunks", len(chunks)))
	p.publish(protocol.SubjectJobCompleted, protocol.JobEvent{
		JobID:     job.ID,
		Source:    job.Source,
		Artifact:  filepath.Base(artifact),
		State:     StateDone,
		Chunks:    len(chunks),
		Timestamp: time.Now().UTC(),
	})
	return nil
}

// synthesize renders one segment per chunk under a bounded worker pool.
// Segment paths encode the chunk index, so merge order is unambiguous no
// matter which worker finishes first. After a failure no further chunk is
// dispatched; in-flight chunks run to their boundary.
func (p *Pipeline) synthesize(ctx context.Context, job jobstore.Job, jobDir string, chunks []chunk.Chunk) ([]string, error) {
	segments := make([]string, len(chunks))
	for _, c := range chunks {
		segments[c.Index] = filepath.Join(jobDir, fmt.Sprintf("seg-%04d.%s", c.Index, p.format))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := make(chan struct{}, p.cfg.Workers)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for _, c := range chunks {
		sem <- struct{}{}
		if ctx.Err() != nil {
			<-sem
			break
		}
		wg.Add(1)
		go func(c chunk.Chunk) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := p.synth.Synthesize(ctx, c.Content, segments[c.Index]); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("chunk %d: %w", c.Index, err)
					cancel()
				}
				mu.Unlock()
				return
			}
			p.metrics.chunksSynthesized.Add(ctx, 1)
			if info, err := os.Stat(segments[c.Index]); err == nil {
				p.publish(protocol.SubjectSegmentDone, protocol.SegmentEvent{
					JobID:     job.ID,
					Index:     c.Index,
					WordCount: c.WordCount,
					Bytes:     info.Size(),
					Timestamp: time.Now().UTC(),
				})
			}
		}(c)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("synthesis cancelled: %w", err)
	}
	return segments, nil
}

func (p *Pipeline) fail(ctx context.Context, job jobstore.Job, cause error) {
	p.logger.Error("conversion failed",
		slog.String("job_id", job.ID),
		slog.String("source", job.Source),
		slogError(cause))
	if err := p.jobs.SetError(ctx, job.ID, cause.Error()); err != nil {
		p.logger.Warn("failed to record job error", slog.String("job_id", job.ID), slogError(err))
	}
	p.transition(ctx, job, StateFailed, cause.Error())
	p.publish(protocol.SubjectJobFailed, protocol.JobEvent{
		JobID:     job.ID,
		Source:    job.Source,
		State:     StateFailed,
		Error:     cause.Error(),
		Timestamp: time.Now().UTC(),
	})
}

func (p *Pipeline) transition(ctx context.Context, job jobstore.Job, state, detail string) {
	if err := p.jobs.UpdateState(ctx, job.ID, state, detail); err != nil {
		p.logger.Warn("failed to journal transition",
			slog.String("job_id", job.ID),
			slog.String("state", state),
			slogError(err))
	}
}

func (p *Pipeline) publish(subject string, payload any) {
	if err := p.bus.Publish(subject, payload); err != nil {
		p.logger.Warn("failed to publish job event", slog.String("subject", subject), slogError(err))
	}
}

func (p *Pipeline) writeSidecar(source, text string) {
	ext := filepath.Ext(source)
	name := strings.TrimSuffix(source, ext) + ".txt"
	if name == source {
		return
	}
	path := filepath.Join(p.files.UploadsDir(), name)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		p.logger.Warn("failed to write text sidecar", slog.String("path", path), slogError(err))
	}
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
