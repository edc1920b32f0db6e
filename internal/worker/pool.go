package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueReceipt = "jobs:receipt"
	QueueEmail   = "jobs:email"

	JobReceipt = "receipt"
	JobEmail   = "email"

	// maxJobAttempts bounds handler retries before a job is dead-lettered.
	maxJobAttempts = 3
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// JobHandler processes one job payload. Returning a permanent error skips retries.
type JobHandler func(ctx context.Context, payload json.RawMessage) error

// Handlers maps job types to their handler.
type Handlers map[string]JobHandler

// permanentError marks failures that retrying cannot fix (bad payload, unknown sale).
type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

func permanent(err error) error { return permanentError{err: err} }

func isPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// ReceiptJobPayload asks for the invoice PDF of a committed sale.
type ReceiptJobPayload struct {
	SaleID      uuid.UUID `json:"sale_id"`
	ClientEmail *string   `json:"client_email,omitempty"`
}

// EnqueueReceipt pushes a receipt job for a committed sale.
func (d *Dispatcher) EnqueueReceipt(ctx context.Context, saleID uuid.UUID, clientEmail *string) error {
	return d.enqueue(ctx, QueueReceipt, JobReceipt, ReceiptJobPayload{SaleID: saleID, ClientEmail: clientEmail})
}

// EnqueueEmail pushes an email job to Redis.
func (d *Dispatcher) EnqueueEmail(ctx context.Context, payload EmailJobPayload) error {
	return d.enqueue(ctx, QueueEmail, JobEmail, payload)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(Job{Type: jobType, Payload: data})
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// runner executes jobs; deadLetter and backoff are swapped in tests.
type runner struct {
	handlers   Handlers
	backoff    time.Duration
	deadLetter func(ctx context.Context, queue, jobType string, payload json.RawMessage, reason string, attempts int)
}

// StartWorkerPool launches numWorkers goroutines consuming both queues.
// Each goroutine blocks on BRPOP, so idle workers cost nothing.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, handlers Handlers, numWorkers int) {
	r := &runner{
		handlers: handlers,
		backoff:  time.Second,
		deadLetter: func(ctx context.Context, queue, jobType string, payload json.RawMessage, reason string, attempts int) {
			SendToDLQ(ctx, rdb, queue, jobType, payload, reason, attempts)
		},
	}
	for i := 0; i < numWorkers; i++ {
		go r.loop(ctx, rdb, i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

func (r *runner) loop(ctx context.Context, rdb *redis.Client, id int) {
	queues := []string{QueueReceipt, QueueEmail}
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop; waits up to 5s then loops to check ctx
			result, err := rdb.BRPop(ctx, 5*time.Second, queues...).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					log.Warn().Err(err).Int("worker", id).Msg("worker: BRPOP failed")
					time.Sleep(time.Second)
				}
				continue
			}
			if len(result) < 2 {
				continue
			}
			r.process(ctx, result[0], result[1])
		}
	}
}

func (r *runner) process(ctx context.Context, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("worker: failed to unmarshal job")
		r.deadLetter(ctx, queue, "", json.RawMessage(raw), "malformed envelope: "+err.Error(), 0)
		return
	}
	handle, ok := r.handlers[job.Type]
	if !ok {
		r.deadLetter(ctx, queue, job.Type, job.Payload, "no handler for job type", 0)
		return
	}

	attempts := 0
	err := withRetry(ctx, maxJobAttempts, r.backoff, func(attempt int) error {
		attempts = attempt + 1
		err := handle(ctx, job.Payload)
		if err != nil && !isPermanent(err) {
			log.Warn().Err(err).Str("type", job.Type).Int("attempt", attempts).Msg("worker: job attempt failed")
		}
		return err
	})
	if err != nil {
		r.deadLetter(ctx, queue, job.Type, job.Payload, err.Error(), attempts)
		return
	}
	log.Debug().Str("type", job.Type).Str("queue", queue).Msg("worker: job done")
}

// withRetry calls fn up to maxAttempts times with exponential backoff
// (base, 2×base, …). Permanent errors stop immediately.
func withRetry(ctx context.Context, maxAttempts int, base time.Duration, fn func(attempt int) error) error {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		if i > 0 {
			wait := time.Duration(1<<uint(i-1)) * base
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		lastErr = fn(i)
		if lastErr == nil || isPermanent(lastErr) {
			return lastErr
		}
	}
	return lastErr
}
