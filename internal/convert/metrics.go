package convert

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

type metrics struct {
	jobsStarted       metric.Int64Counter
	jobsCompleted     metric.Int64Counter
	jobsFailed        metric.Int64Counter
	chunksSynthesized metric.Int64Counter
	jobDuration       metric.Float64Histogram
}

func newMetrics() (*metrics, error) {
	meter := otel.GetMeterProvider().Meter("lehakshiv/convert")

	jobsStarted, err := meter.Int64Counter("convert_jobs_started_total",
		metric.WithDescription("Conversion jobs accepted"))
	if err != nil {
		return nil, err
	}
	jobsCompleted, err := meter.Int64Counter("convert_jobs_completed_total",
		metric.WithDescription("Conversion jobs finished successfully"))
	if err != nil {
		return nil, err
	}
	jobsFailed, err := meter.Int64Counter("convert_jobs_failed_total",
		metric.WithDescription("Conversion jobs that surfaced a terminal error"))
	if err != nil {
		return nil, err
	}
	chunksSynthesized, err := meter.Int64Counter("convert_chunks_synthesized_total",
		metric.WithDescription("Audio segments rendered"))
	if err != nil {
		return nil, err
	}
	jobDuration, err := meter.Float64Histogram("convert_job_duration_seconds",
		metric.WithDescription("Wall-clock duration of conversion jobs"))
	if err != nil {
		return nil, err
	}

	return &metrics{
		jobsStarted:       jobsStarted,
		jobsCompleted:     jobsCompleted,
		jobsFailed:        jobsFailed,
		chunksSynthesized: chunksSynthesized,
		jobDuration:       jobDuration,
	}, nil
}
