package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"guesthouse/internal/mail"
	"guesthouse/internal/metrics"
	"guesthouse/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	OutcomeDelivered = "delivered"
	OutcomeRetry     = "retry"
	OutcomeAbandoned = "abandoned"
)

// Sender delivers one rendered notification.
type Sender interface {
	Send(ctx context.Context, kind mail.Kind, to string, data models.Payload) error
}

// EmailQueue decouples request handling from mail delivery. A single loop
// sends jobs in enqueue order; a failing job is retried in place until it is
// delivered or abandoned, so it blocks the jobs behind it.
type EmailQueue struct {
	queue       JobQueue
	local       *MemoryJobQueue
	sender      Sender
	retryPolicy RetryPolicy
	pollWait    time.Duration
	logger      *zerolog.Logger
	wait        func(ctx context.Context, d time.Duration) error
}

// NewEmailQueue builds a queue with sane defaults. When queue is not the
// in-memory implementation, a local queue absorbs pushes it rejects.
func NewEmailQueue(queue JobQueue, sender Sender, retry RetryPolicy, logger *zerolog.Logger) *EmailQueue {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = models.DefaultEmailAttempts
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 5 * time.Second
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 1
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if queue == nil {
		queue = NewMemoryJobQueue(models.EmailQueueBuffer)
	}

	q := &EmailQueue{
		queue:       queue,
		sender:      sender,
		retryPolicy: retry,
		pollWait:    time.Second,
		logger:      logger,
		wait:        sleepCtx,
	}
	if _, isMemory := queue.(*MemoryJobQueue); !isMemory {
		q.local = NewMemoryJobQueue(models.EmailQueueBuffer)
	}
	return q
}

// Enqueue schedules a notification and returns immediately. Failures to queue
// are logged, never returned: a notification must not fail the request.
func (q *EmailQueue) Enqueue(ctx context.Context, kind mail.Kind, to string, data models.Payload) {
	if to == "" {
		q.logger.Warn().Str("kind", string(kind)).Msg("email_queue: skip job without recipient")
		return
	}
	job := models.EmailJob{
		ID:         uuid.NewString(),
		Kind:       string(kind),
		To:         to,
		Data:       data,
		EnqueuedAt: time.Now(),
	}

	pushCtx := context.WithoutCancel(ctx)
	err := q.queue.Push(pushCtx, job)
	if err != nil && q.local != nil {
		q.logger.Warn().Err(err).Msg("email_queue: primary push failed, fallback to memory queue")
		err = q.local.Push(pushCtx, job)
	}
	if err != nil {
		q.logger.Error().Err(err).Str("kind", job.Kind).Str("to", job.To).Interface("data", job.Data).Msg("email_queue: job dropped")
		return
	}
	q.reportDepth(pushCtx)
}

// Run processes jobs until ctx is done.
func (q *EmailQueue) Run(ctx context.Context) error {
	q.logger.Info().Msg("email_queue: started")
	defer q.logger.Info().Msg("email_queue: stopped")

	for {
		if ctx.Err() != nil {
			return nil
		}

		job, ok, err := q.next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			q.logger.Error().Err(err).Msg("email_queue: pop failed")
			if q.wait(ctx, q.pollWait) != nil {
				return nil
			}
			continue
		}
		if !ok {
			continue
		}

		q.reportDepth(ctx)
		q.Process(ctx, job)
	}
}

func (q *EmailQueue) next(ctx context.Context) (models.EmailJob, bool, error) {
	if q.local != nil {
		if job, ok := q.local.tryPop(); ok {
			return job, true, nil
		}
	}
	return q.queue.Pop(ctx, q.pollWait)
}

// Process drives one job to a terminal outcome and returns it.
func (q *EmailQueue) Process(ctx context.Context, job models.EmailJob) string {
	for {
		job.Attempts++
		err := q.sender.Send(ctx, mail.Kind(job.Kind), job.To, job.Data)
		if err == nil {
			metrics.IncEmailJob(job.Kind, OutcomeDelivered)
			q.logger.Info().Str("job_id", job.ID).Str("kind", job.Kind).Str("to", job.To).Int("attempt", job.Attempts).Msg("email_queue: delivered")
			return OutcomeDelivered
		}
		job.LastError = err.Error()

		if q.retryPolicy.Exhausted(job.Attempts) {
			q.abandon(ctx, job)
			return OutcomeAbandoned
		}

		delay := q.retryPolicy.NextDelay(job.Attempts)
		metrics.IncEmailJob(job.Kind, OutcomeRetry)
		q.logger.Warn().Err(err).Str("job_id", job.ID).Str("kind", job.Kind).Int("attempt", job.Attempts).Dur("retry_in", delay).Msg("email_queue: delivery failed, will retry")

		if err := q.wait(ctx, delay); err != nil {
			// shutting down: hand the job back so a durable queue keeps it
			if pushErr := q.queue.Requeue(context.WithoutCancel(ctx), job); pushErr != nil {
				q.abandon(context.WithoutCancel(ctx), job)
				return OutcomeAbandoned
			}
			return OutcomeRetry
		}
	}
}

func (q *EmailQueue) abandon(ctx context.Context, job models.EmailJob) {
	metrics.IncEmailJob(job.Kind, OutcomeAbandoned)

	raw, _ := json.Marshal(job)
	q.logger.Error().
		Str("job_id", job.ID).
		Str("kind", job.Kind).
		Str("to", job.To).
		Int("attempts", job.Attempts).
		Str("last_error", job.LastError).
		RawJSON("job", raw).
		Msg("email_queue: job abandoned after max attempts")

	if err := q.queue.DeadLetter(ctx, job); err != nil {
		q.logger.Error().Err(err).Str("job_id", job.ID).Msg("email_queue: deadletter push failed")
	}
}

// Len returns jobs waiting in the queue.
func (q *EmailQueue) Len(ctx context.Context) int {
	n, err := q.queue.Len(ctx)
	if err != nil {
		n = 0
	}
	if q.local != nil {
		m, _ := q.local.Len(ctx)
		n += m
	}
	return n
}

func (q *EmailQueue) reportDepth(ctx context.Context) {
	metrics.SetEmailQueueDepth(q.Len(ctx))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
