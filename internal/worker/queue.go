package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"guesthouse/internal/models"

	"github.com/redis/go-redis/v9"
)

// JobQueue is a FIFO of pending email jobs.
type JobQueue interface {
	Push(ctx context.Context, job models.EmailJob) error
	// Requeue puts job back at the head so it is popped before newer jobs.
	Requeue(ctx context.Context, job models.EmailJob) error
	// Pop waits up to wait for a job; ok is false on timeout.
	Pop(ctx context.Context, wait time.Duration) (job models.EmailJob, ok bool, err error)
	Len(ctx context.Context) (int, error)
	DeadLetter(ctx context.Context, job models.EmailJob) error
}

// MemoryJobQueue is a process-local queue. Jobs are lost on restart.
type MemoryJobQueue struct {
	mu     sync.Mutex
	jobs   []models.EmailJob
	dead   []models.EmailJob
	limit  int
	notify chan struct{}
}

var ErrQueueFull = errors.New("email queue is full")

func NewMemoryJobQueue(limit int) *MemoryJobQueue {
	return &MemoryJobQueue{limit: limit, notify: make(chan struct{}, 1)}
}

func (q *MemoryJobQueue) Push(ctx context.Context, job models.EmailJob) error {
	q.mu.Lock()
	if q.limit > 0 && len(q.jobs) >= q.limit {
		q.mu.Unlock()
		return ErrQueueFull
	}
	q.jobs = append(q.jobs, job)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

// Requeue ignores the buffer limit: the job already held a slot.
func (q *MemoryJobQueue) Requeue(ctx context.Context, job models.EmailJob) error {
	q.mu.Lock()
	q.jobs = append([]models.EmailJob{job}, q.jobs...)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

func (q *MemoryJobQueue) tryPop() (models.EmailJob, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.jobs) == 0 {
		return models.EmailJob{}, false
	}
	job := q.jobs[0]
	q.jobs[0] = models.EmailJob{}
	q.jobs = q.jobs[1:]
	return job, true
}

func (q *MemoryJobQueue) Pop(ctx context.Context, wait time.Duration) (models.EmailJob, bool, error) {
	if job, ok := q.tryPop(); ok {
		return job, true, nil
	}
	if wait <= 0 {
		return models.EmailJob{}, false, nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return models.EmailJob{}, false, ctx.Err()
		case <-timer.C:
			job, ok := q.tryPop()
			return job, ok, nil
		case <-q.notify:
			if job, ok := q.tryPop(); ok {
				return job, true, nil
			}
		}
	}
}

func (q *MemoryJobQueue) Len(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs), nil
}

func (q *MemoryJobQueue) DeadLetter(ctx context.Context, job models.EmailJob) error {
	q.mu.Lock()
	q.dead = append(q.dead, job)
	q.mu.Unlock()
	return nil
}

// DeadLetters returns abandoned jobs kept for inspection.
func (q *MemoryJobQueue) DeadLetters() []models.EmailJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]models.EmailJob, len(q.dead))
	copy(out, q.dead)
	return out
}

// RedisJobQueue stores jobs in a Redis list (LPUSH/BRPOP) so they survive restarts.
type RedisJobQueue struct {
	client        *redis.Client
	queueKey      string
	deadLetterKey string
}

func NewRedisJobQueue(client *redis.Client) *RedisJobQueue {
	return &RedisJobQueue{
		client:        client,
		queueKey:      "email:queue",
		deadLetterKey: "email:deadletter",
	}
}

func (q *RedisJobQueue) Push(ctx context.Context, job models.EmailJob) error {
	if q.client == nil {
		return errors.New("redis client is nil")
	}
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	return q.client.LPush(ctx, q.queueKey, data).Err()
}

// Requeue uses RPUSH, the end BRPOP reads from.
func (q *RedisJobQueue) Requeue(ctx context.Context, job models.EmailJob) error {
	if q.client == nil {
		return errors.New("redis client is nil")
	}
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	return q.client.RPush(ctx, q.queueKey, data).Err()
}

func (q *RedisJobQueue) Pop(ctx context.Context, wait time.Duration) (models.EmailJob, bool, error) {
	if q.client == nil {
		return models.EmailJob{}, false, errors.New("redis client is nil")
	}
	if wait <= 0 {
		wait = time.Second
	}
	res, err := q.client.BRPop(ctx, wait, q.queueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.EmailJob{}, false, nil
		}
		return models.EmailJob{}, false, err
	}
	if len(res) != 2 {
		return models.EmailJob{}, false, nil
	}
	var job models.EmailJob
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return models.EmailJob{}, false, fmt.Errorf("decode job: %w", err)
	}
	return job, true, nil
}

func (q *RedisJobQueue) Len(ctx context.Context) (int, error) {
	if q.client == nil {
		return 0, errors.New("redis client is nil")
	}
	n, err := q.client.LLen(ctx, q.queueKey).Result()
	return int(n), err
}

func (q *RedisJobQueue) DeadLetter(ctx context.Context, job models.EmailJob) error {
	if q.client == nil {
		return errors.New("redis client is nil")
	}
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	return q.client.LPush(ctx, q.deadLetterKey, data).Err()
}
