package protocol

import "time"

// JobEvent is broadcast on the bus as a conversion job moves through its
// lifecycle.
type JobEvent struct {
	JobID     string    `json:"job_id"`
	Source    string    `json:"source"`
	Artifact  string    `json:"artifact,omitempty"`
	State     string    `json:"state"`
	Chunks    int       `json:"chunks,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// SegmentEvent reports one synthesized chunk of a job.
type SegmentEvent struct {
	JobID     string    `json:"job_id"`
	Index     int       `json:"index"`
	WordCount int       `json:"word_count"`
	Bytes     int64     `json:"bytes"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	SubjectJobAccepted  = "convert.job.accepted"
	SubjectJobCompleted = "convert.job.completed"
	SubjectJobFailed    = "convert.job.failed"
	SubjectSegmentDone  = "convert.segment.done"
)
