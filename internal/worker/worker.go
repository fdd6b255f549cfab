package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/uppalcrm/crm/api/internal/logging"
	"github.com/uppalcrm/crm/api/internal/metrics"
	"github.com/uppalcrm/crm/api/internal/queue"
)

// JobSource is the queue the worker drains.
type JobSource interface {
	Pop(ctx context.Context, timeout time.Duration) (*queue.Job, error)
	Len(ctx context.Context) (int64, error)
	Bury(ctx context.Context, job *queue.Job) error
}

// JobProcessor turns a queued delivery into a lead.
type JobProcessor interface {
	Process(ctx context.Context, job *queue.Job) error
}

// Worker consumes queued webhook deliveries.
type Worker struct {
	source      JobSource
	processor   JobProcessor
	logger      zerolog.Logger
	metrics     *metrics.CRMMetrics
	count       int
	pollTimeout time.Duration
	jobTimeout  time.Duration
	buryTimeout time.Duration
	backoff     time.Duration

	wg sync.WaitGroup
}

// Option configures a Worker.
type Option func(*Worker)

// WithWorkerCount sets how many goroutines pop from the queue.
func WithWorkerCount(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.count = n
		}
	}
}

// WithPollTimeout bounds each blocking pop.
func WithPollTimeout(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.pollTimeout = d
		}
	}
}

// WithJobTimeout bounds how long one popped job may run. Cancelling the worker does not cut a
// running job short; it gets until this timeout to finish.
func WithJobTimeout(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.jobTimeout = d
		}
	}
}

// WithMetrics reports the queue depth after every pop.
func WithMetrics(m *metrics.CRMMetrics) Option {
	return func(w *Worker) { w.metrics = m }
}

// New builds a worker with one consumer, a five second poll timeout and a 25 second job timeout.
func New(source JobSource, processor JobProcessor, logger zerolog.Logger, opts ...Option) *Worker {
	w := &Worker{
		source:      source,
		processor:   processor,
		logger:      logger,
		count:       1,
		pollTimeout: 5 * time.Second,
		jobTimeout:  25 * time.Second,
		buryTimeout: 5 * time.Second,
		backoff:     time.Second,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start launches the consumers. They stop when ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	for i := 0; i < w.count; i++ {
		w.wg.Add(1)
		go w.run(ctx, i)
	}
}

// Wait blocks until every consumer has returned.
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context, id int) {
	defer w.wg.Done()
	logger := w.logger.With().Int("consumer", id).Logger()
	logger.Info().Msg("webhook consumer started")

	for {
		if ctx.Err() != nil {
			logger.Info().Msg("webhook consumer stopped")
			return
		}
		if _, err := w.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("poll webhook queue")
			select {
			case <-ctx.Done():
			case <-time.After(w.backoff):
			}
		}
	}
}

// RunOnce pops and processes at most one job. It reports whether a job was handled. A popped job
// runs on a context detached from ctx, so shutdown does not abort it; a job whose processing fails
// is moved to the dead-letter list.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.source.Pop(ctx, w.pollTimeout)
	if err != nil {
		return false, err
	}
	if w.metrics != nil {
		if depth, err := w.source.Len(ctx); err == nil {
			w.metrics.SetQueueDepth(depth)
		}
	}
	if job == nil {
		return false, nil
	}

	logger := w.logger.With().
		Str("job_id", job.ID.String()).
		Str("organization_id", job.OrganizationID.String()).
		Str("webhook_id", job.WebhookID.String()).
		Logger()

	detached := context.WithoutCancel(ctx)
	jobCtx, cancel := context.WithTimeout(logging.WithLogger(detached, logger), w.jobTimeout)
	defer cancel()
	if job.RequestID != "" {
		jobCtx, _ = logging.WithRequestID(jobCtx, job.RequestID)
	}

	if err := w.processor.Process(jobCtx, job); err != nil {
		logger.Error().Err(err).Msg("webhook job failed")
		buryCtx, buryCancel := context.WithTimeout(detached, w.buryTimeout)
		defer buryCancel()
		if buryErr := w.source.Bury(buryCtx, job); buryErr != nil {
			logger.Error().Err(buryErr).Msg("bury webhook job")
		}
		return true, nil
	}
	logger.Debug().Msg("webhook job processed")
	return true, nil
}
