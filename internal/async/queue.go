// Package async runs document batches through the pipeline on a bounded worker pool.
package async

import (
	"context"
	"errors"
	"time"

	"github.com/joseph-ayodele/subscriptions-tracker/internal/entity"
)

var ErrQueueClosed = errors.New("queue is shutting down")

// Job is one batch of at most MaxDocumentsPerRequest documents.
type Job struct {
	Index       int
	Documents   []entity.DocumentInput
	SubmittedAt time.Time
	TraceID     string
}

// Result is a finished Job. Err is set only for hard failures (validation, auth, transport).
type Result struct {
	Index    int
	Analysis entity.AnalysisResult
	Err      error
	Elapsed  time.Duration
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context) []Result
}
