package service

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"gorm.io/gorm"
)

// tracer is a no-op until the process installs a TracerProvider.
var tracer = otel.Tracer("fastclick/service")

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// JobQueue enqueues background work. Implemented by worker.Dispatcher.
type JobQueue interface {
	EnqueueReceiptEmail(ctx context.Context, receiptID uuid.UUID) error
	EnqueueStatementRecompute(ctx context.Context, sessionID *uuid.UUID) error
}
