package jobstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lehakshiv/lehakshiv/internal/config"
)

// ErrJobNotFound reports an unknown job id.
var ErrJobNotFound = errors.New("job not found")

// Job is one conversion job record.
type Job struct {
	ID        string
	Source    string
	Artifact  string
	State     string
	Chunks    int
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Transition is one recorded state change of a job.
type Transition struct {
	ID        int64
	JobID     string
	State     string
	Detail    string
	CreatedAt time.Time
}

// Store journals conversion jobs and their state transitions in SQLite.
type Store struct {
	db    *sql.DB
	cfg   config.JobStoreConfig
	log   *slog.Logger
	clock func() time.Time
}

// Open initializes the job store according to config.
func Open(ctx context.Context, cfg config.JobStoreConfig, log *slog.Logger) (*Store, error) {
	dir := filepath.Dir(cfg.Path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, cfg: cfg, log: log, clock: time.Now}

	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if cfg.VacuumOnStart {
		if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
			log.Warn("job store vacuum failed", slog.String("error", err.Error()))
		}
	}

	if err := s.Prune(ctx); err != nil {
		log.Warn("job store prune on start failed", slog.String("error", err.Error()))
	}

	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS jobs (
    job_id TEXT PRIMARY KEY,
    source TEXT NOT NULL,
    artifact TEXT,
    state TEXT NOT NULL,
    chunks INTEGER NOT NULL DEFAULT 0,
    error TEXT,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS transitions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    job_id TEXT NOT NULL,
    state TEXT NOT NULL,
    detail TEXT,
    created_at TIMESTAMP NOT NULL,
    FOREIGN KEY(job_id) REFERENCES jobs(job_id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_transitions_job_created ON transitions(job_id, created_at);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

// Close releases underlying resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// CreateJob inserts a new job row in the given initial state.
func (s *Store) CreateJob(ctx context.Context, job Job) error {
	now := s.clock().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs(job_id, source, artifact, state, chunks, error, created_at, updated_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.Source, job.Artifact, job.State, job.Chunks, job.Error, now, now)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return s.appendTransition(ctx, job.ID, job.State, "")
}

// UpdateState records a state change, keeping the transition log in step with
// the job row.
func (s *Store) UpdateState(ctx context.Context, jobID, state, detail string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET state = ?, updated_at = ? WHERE job_id = ?`,
		state, s.clock().UTC(), jobID)
	if err != nil {
		return fmt.Errorf("update job state: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	return s.appendTransition(ctx, jobID, state, detail)
}

// SetChunks records how many chunks the planner produced for a job.
func (s *Store) SetChunks(ctx context.Context, jobID string, chunks int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET chunks = ?, updated_at = ? WHERE job_id = ?`,
		chunks, s.clock().UTC(), jobID)
	if err != nil {
		return fmt.Errorf("update job chunks: %w", err)
	}
	return nil
}

// SetError stores the terminal error of a failed job.
func (s *Store) SetError(ctx context.Context, jobID, message string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET error = ?, updated_at = ? WHERE job_id = ?`,
		message, s.clock().UTC(), jobID)
	if err != nil {
		return fmt.Errorf("update job error: %w", err)
	}
	return nil
}

func (s *Store) appendTransition(ctx context.Context, jobID, state, detail string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transitions(job_id, state, detail, created_at) VALUES(?, ?, ?, ?)`,
		jobID, state, detail, s.clock().UTC())
	if err != nil {
		return fmt.Errorf("insert transition: %w", err)
	}
	return nil
}

// GetJob returns one job by id.
func (s *Store) GetJob(ctx context.Context, jobID string) (Job, error) {
	var job Job
	var artifact, errMsg sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT job_id, source, artifact, state, chunks, error, created_at, updated_at
		 FROM jobs WHERE job_id = ?`, jobID).
		Scan(&job.ID, &job.Source, &artifact, &job.State, &job.Chunks, &errMsg, &job.CreatedAt, &job.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	if err != nil {
		return Job{}, fmt.Errorf("query job: %w", err)
	}
	job.Artifact = artifact.String
	job.Error = errMsg.String
	return job, nil
}

// ListTransitions returns the recorded transitions of a job, oldest first.
func (s *Store) ListTransitions(ctx context.Context, jobID string, limit int) ([]Transition, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, job_id, state, detail, created_at FROM transitions
		 WHERE job_id = ? ORDER BY created_at ASC, id ASC LIMIT ?`, jobID, limit)
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	defer rows.Close()

	var out []Transition
	for rows.Next() {
		var t Transition
		var detail sql.NullString
		if err := rows.Scan(&t.ID, &t.JobID, &t.State, &detail, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		t.Detail = detail.String
		out = append(out, t)
	}
	return out, rows.Err()
}

// Prune applies the retention policy: jobs older than retention_days go, and
// only the newest max_jobs rows survive.
func (s *Store) Prune(ctx context.Context) error {
	if s.cfg.RetentionDays > 0 {
		cutoff := s.clock().UTC().AddDate(0, 0, -s.cfg.RetentionDays)
		if _, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE updated_at < ?`, cutoff); err != nil {
			return fmt.Errorf("prune by age: %w", err)
		}
	}
	if s.cfg.MaxJobs > 0 {
		_, err := s.db.ExecContext(ctx,
			`DELETE FROM jobs WHERE job_id NOT IN (
			     SELECT job_id FROM jobs ORDER BY updated_at DESC LIMIT ?)`, s.cfg.MaxJobs)
		if err != nil {
			return fmt.Errorf("prune by count: %w", err)
		}
	}
	return nil
}
