// Package async runs ingestion jobs on a bounded pool of workers.
package async

import (
	"context"
	"time"
)

// Job is one file waiting to go through the upload pipeline.
type Job struct {
	Path        string
	DocType     string
	SubmittedAt time.Time
	TraceID     string
}

// Handler processes a single job. Errors are logged by the queue; handlers
// that need the outcome record it themselves.
type Handler func(ctx context.Context, job Job) error

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
