package models

import "time"

// SamplingRun records one execution of the periodic sampler.
type SamplingRun struct {
	ID          int64     `db:"id" json:"id"`
	StartedAt   time.Time `db:"started_at" json:"started_at"`
	DurationMs  int64     `db:"duration_ms" json:"duration_ms"`
	StreamCount int       `db:"stream_count" json:"stream_count"`
	ErrorCount  int       `db:"error_count" json:"error_count"`
}

// RunMetrics aggregates sampling runs over a window.
type RunMetrics struct {
	RunCount       int     `json:"run_count"`
	AvgConcurrent  float64 `json:"avg_concurrent"`
	PeakConcurrent int     `json:"peak_concurrent"`
	AvgExecMs      float64 `json:"avg_exec_ms"`
	MaxExecMs      int64   `json:"max_exec_ms"`
	ErrorRate      float64 `json:"error_rate"`
}
