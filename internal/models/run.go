package models

import "time"

// Pipeline names as recorded in the run history.
const (
	PipelineArticles = "articles"
	PipelineRepos    = "repos"
)

// Run status values.
const (
	RunOK     = "ok"
	RunFailed = "failed"
)

// Failure records a recoverable per-entity problem, such as a README that
// could not be fetched.
type Failure struct {
	Subject string `json:"subject"`
	Error   string `json:"error"`
}

// Run records an audit trail of one pipeline execution.
type Run struct {
	ID           int64     `json:"id"`
	Pipeline     string    `json:"pipeline"`
	Status       string    `json:"status"`
	Items        int       `json:"items"`
	Warnings     int       `json:"warnings"`
	FailuresJSON string    `json:"failures_json,omitempty"`
	Error        string    `json:"error,omitempty"`
	Output       string    `json:"output"`
	DurationMS   int64     `json:"duration_ms"`
	CreatedAt    time.Time `json:"created_at"`
}
