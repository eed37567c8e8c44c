package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"fastclick/internal/model"
	"fastclick/internal/service"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Recomputer is the part of service.FinancialService the worker drives.
type Recomputer interface {
	Recompute(ctx context.Context, sessionID *uuid.UUID) (*service.StatementSet, error)
}

// StatementWorker rebuilds statements for the scope named in the job.
type StatementWorker struct {
	statements Recomputer
	rdb        *redis.Client
}

func NewStatementWorker(statements Recomputer, rdb *redis.Client) *StatementWorker {
	return &StatementWorker{statements: statements, rdb: rdb}
}

func (w *StatementWorker) Handle(ctx context.Context, raw json.RawMessage) error {
	var payload StatementPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("statements: invalid payload dropped")
		return nil
	}

	var sessionID *uuid.UUID
	if payload.SessionID != nil {
		id, err := uuid.Parse(*payload.SessionID)
		if err != nil {
			log.Error().Str("session_id", *payload.SessionID).Msg("statements: invalid session id dropped")
			return nil
		}
		sessionID = &id
	}

	// Let new sales queue another pass once this one has started.
	if w.rdb != nil {
		_ = w.rdb.Del(ctx, pendingStatementPrefix+model.ScopeFor(sessionID)).Err()
	}

	_, err := w.statements.Recompute(ctx, sessionID)
	if errors.Is(err, service.ErrRecomputeInProgress) {
		log.Debug().Str("scope", model.ScopeFor(sessionID)).Msg("statements: recompute running elsewhere, retrying")
	}
	return err
}

// ── Cron ──────────────────────────────────────────────────────────────────────

// SessionReader exposes the open session id.
type SessionReader interface {
	CurrentSessionID() (uuid.UUID, bool)
}

type StatementCronConfig struct {
	Sessions SessionReader
	Jobs     service.JobQueue
	Interval time.Duration
}

// StartStatementCron queues a recompute of the open session and of the
// all-sessions scope every Interval, so statements converge even when a
// checkout's follow-up job was lost.
func StartStatementCron(ctx context.Context, cfg StatementCronConfig) {
	go func() {
		ticker := time.NewTicker(cfg.Interval)
		defer ticker.Stop()

		log.Info().Dur("interval", cfg.Interval).Msg("statement_cron: started")
		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("statement_cron: shutting down")
				return
			case <-ticker.C:
				enqueueScheduled(ctx, cfg)
			}
		}
	}()
}

func enqueueScheduled(ctx context.Context, cfg StatementCronConfig) {
	if id, ok := cfg.Sessions.CurrentSessionID(); ok {
		if err := cfg.Jobs.EnqueueStatementRecompute(ctx, &id); err != nil {
			log.Error().Err(err).Msg("statement_cron: enqueue session scope failed")
		}
	}
	if err := cfg.Jobs.EnqueueStatementRecompute(ctx, nil); err != nil {
		log.Error().Err(err).Msg("statement_cron: enqueue all scope failed")
	}
}
