package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"fastclick/internal/metrics"
	"fastclick/internal/model"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueReceiptEmail = "jobs:receipt_email"
	QueueStatements   = "jobs:statements"

	// MaxAttempts is how many times a job runs before it goes to the DLQ.
	MaxAttempts = 5

	pendingStatementPrefix = "jobs:statements:pending:"
	pendingStatementTTL    = 2 * time.Minute
)

// Job is the envelope stored in every queue.
type Job struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
}

type ReceiptEmailPayload struct {
	ReceiptID string `json:"receipt_id"`
}

// StatementPayload has no session id for the all-sessions scope.
type StatementPayload struct {
	SessionID *string `json:"session_id,omitempty"`
}

// Handler processes one job payload. A returned error schedules a retry.
type Handler func(ctx context.Context, payload json.RawMessage) error

// ── Dispatcher ────────────────────────────────────────────────────────────────

// Dispatcher pushes jobs onto Redis lists; the pool pops them with BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

func (d *Dispatcher) EnqueueReceiptEmail(ctx context.Context, receiptID uuid.UUID) error {
	return d.enqueue(ctx, QueueReceiptEmail, "receipt_email", ReceiptEmailPayload{ReceiptID: receiptID.String()})
}

// EnqueueStatementRecompute collapses bursts: while a recompute for the same
// scope is queued and not yet picked up, further requests are dropped.
func (d *Dispatcher) EnqueueStatementRecompute(ctx context.Context, sessionID *uuid.UUID) error {
	scope := model.ScopeFor(sessionID)
	queued, err := d.rdb.SetNX(ctx, pendingStatementPrefix+scope, 1, pendingStatementTTL).Result()
	if err != nil {
		return err
	}
	if !queued {
		return nil
	}
	payload := StatementPayload{}
	if sessionID != nil {
		s := sessionID.String()
		payload.SessionID = &s
	}
	return d.enqueue(ctx, QueueStatements, "statement_recompute", payload)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return d.push(ctx, queue, Job{Type: jobType, Payload: data})
}

func (d *Dispatcher) push(ctx context.Context, queue string, job Job) error {
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// ── Pool ──────────────────────────────────────────────────────────────────────

type Pool struct {
	rdb      *redis.Client
	handlers map[string]Handler
	// pause after a failed queue read, e.g. Redis unreachable
	errBackoff time.Duration
}

// NewPool routes each queue to its handler.
func NewPool(rdb *redis.Client, handlers map[string]Handler) *Pool {
	return &Pool{rdb: rdb, handlers: handlers, errBackoff: time.Second}
}

// Start launches n goroutines blocking on BRPOP across all queues.
func (p *Pool) Start(ctx context.Context, n int) {
	if n <= 0 {
		n = 1
	}
	queues := make([]string, 0, len(p.handlers))
	for q := range p.handlers {
		queues = append(queues, q)
	}
	for i := 0; i < n; i++ {
		go p.run(ctx, i, queues)
	}
	log.Info().Int("workers", n).Strs("queues", queues).Msg("worker pool started")
}

func (p *Pool) run(ctx context.Context, id int, queues []string) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Int("worker", id).Msg("worker shutting down")
			return
		default:
			// Waits up to 5s then loops to check ctx.
			result, err := p.rdb.BRPop(ctx, 5*time.Second, queues...).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					log.Error().Err(err).Int("worker", id).Msg("worker: queue read failed")
					select {
					case <-ctx.Done():
					case <-time.After(p.errBackoff):
					}
				}
				continue
			}
			if len(result) < 2 {
				continue
			}
			p.process(ctx, result[0], result[1])
		}
	}
}

func (p *Pool) process(ctx context.Context, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("worker: malformed job dropped")
		metrics.JobsTotal.WithLabelValues(queue, "malformed").Inc()
		return
	}
	handler, ok := p.handlers[queue]
	if !ok {
		log.Error().Str("queue", queue).Msg("worker: no handler for queue")
		return
	}

	job.Attempts++
	if err := handler(ctx, job.Payload); err != nil {
		if job.Attempts >= MaxAttempts {
			metrics.JobsTotal.WithLabelValues(queue, "dead").Inc()
			SendToDLQ(ctx, p.rdb, queue, job, err.Error())
			return
		}
		metrics.JobsTotal.WithLabelValues(queue, "retry").Inc()
		log.Warn().Err(err).Str("queue", queue).Str("type", job.Type).Int("attempt", job.Attempts).
			Msg("worker: job failed, requeued")
		p.requeue(ctx, queue, job)
		return
	}
	metrics.JobsTotal.WithLabelValues(queue, "ok").Inc()
}

// requeue pushes the job back after a linear backoff, off the worker goroutine.
func (p *Pool) requeue(ctx context.Context, queue string, job Job) {
	delay := time.Duration(job.Attempts) * 2 * time.Second
	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		encoded, err := json.Marshal(job)
		if err != nil {
			return
		}
		if err := p.rdb.LPush(ctx, queue, encoded).Err(); err != nil {
			log.Error().Err(err).Str("queue", queue).Msg("worker: requeue failed")
		}
	}()
}
