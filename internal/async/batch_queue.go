package async

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/subscriptions-tracker/internal/common"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/core"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/entity"
)

// Analyzer is the slice of core.Processor the queue drives.
type Analyzer interface {
	AnalyzeDocuments(ctx context.Context, credential string, req core.AnalyzeRequest) (entity.AnalysisResult, error)
}

type BatchQueue struct {
	analyzer   Analyzer
	credential string
	logger     *slog.Logger
	workers    int
	timeout    time.Duration

	ch   chan Job
	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once

	// senders counts Enqueue calls past the closed check; ch is closed only after they return.
	mu      sync.Mutex
	closed  bool
	senders sync.WaitGroup

	resMu   sync.Mutex
	results []Result
}

type Option func(*BatchQueue)

func WithWorkers(n int) Option {
	return func(q *BatchQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *BatchQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

// WithJobTimeout bounds one batch end to end, on top of the pipeline's own extraction timeout.
func WithJobTimeout(d time.Duration) Option {
	return func(q *BatchQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// NewBatchQueue starts the workers. Every job runs under credential.
func NewBatchQueue(a Analyzer, credential string, logger *slog.Logger, opts ...Option) *BatchQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &BatchQueue{
		analyzer:   a,
		credential: credential,
		logger:     logger,
		workers:    2,
		timeout:    5 * time.Minute,
		ch:         make(chan Job, 64),
		stop:       make(chan struct{}),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *BatchQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("async.worker.started", "worker_id", workerID)
				for job := range q.ch {
					q.run(workerID, job)
				}
				q.logger.Debug("async.worker.stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *BatchQueue) run(workerID int, job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	ctx = common.WithRequestID(ctx, job.TraceID)

	start := time.Now()
	res, err := q.analyzer.AnalyzeDocuments(ctx, q.credential, core.AnalyzeRequest{Documents: job.Documents})
	elapsed := time.Since(start)
	if err != nil {
		q.logger.Error("async.batch.failed", "worker_id", workerID, "batch", job.Index, "req_id", job.TraceID, "error", err)
	} else {
		q.logger.Info("async.batch.done",
			"worker_id", workerID,
			"batch", job.Index,
			"req_id", job.TraceID,
			"services", len(res.Services),
			"elapsed_ms", elapsed.Milliseconds(),
		)
	}

	q.resMu.Lock()
	q.results = append(q.results, Result{Index: job.Index, Analysis: res, Err: err, Elapsed: elapsed})
	q.resMu.Unlock()
}

// Enqueue blocks while the buffer is full, until ctx is done or Shutdown starts.
func (q *BatchQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.logger.Warn("async.enqueue_rejected", "batch", job.Index)
		return ErrQueueClosed
	}
	q.senders.Add(1)
	q.mu.Unlock()
	defer q.senders.Done()

	if job.TraceID == "" {
		job.TraceID = uuid.NewString()
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	select {
	case q.ch <- job:
		return nil
	default:
	}

	q.logger.Warn("async.queue_full", "batch", job.Index)
	select {
	case q.ch <- job:
		return nil
	case <-q.stop:
		q.logger.Warn("async.enqueue_rejected", "batch", job.Index)
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops intake, waits for the workers (or ctx) and returns results ordered by Index.
func (q *BatchQueue) Shutdown(ctx context.Context) []Result {
	q.mu.Lock()
	first := !q.closed
	if first {
		q.closed = true
		close(q.stop)
	}
	q.mu.Unlock()
	if first {
		q.senders.Wait()
		close(q.ch)
	}

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("async.shutdown_interrupted")
	case <-done:
		q.logger.Info("async.drained")
	}

	q.resMu.Lock()
	defer q.resMu.Unlock()
	out := append([]Result(nil), q.results...)
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}
