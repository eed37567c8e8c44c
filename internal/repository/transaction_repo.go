package repository

import (
	"context"

	"fastclick/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TransactionRepository is append-only: there is no Update or Delete.
type TransactionRepository interface {
	CreateTx(tx *gorm.DB, t *model.Transaction) error
	// List returns every transaction, or only those of one session.
	List(ctx context.Context, sessionID *uuid.UUID) ([]model.Transaction, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]model.Transaction, error)
}

type transactionRepo struct{ db *gorm.DB }

func NewTransactionRepository(db *gorm.DB) TransactionRepository { return &transactionRepo{db: db} }

func (r *transactionRepo) CreateTx(tx *gorm.DB, t *model.Transaction) error {
	if tx == nil {
		tx = r.db
	}
	return tx.Create(t).Error
}

func (r *transactionRepo) List(ctx context.Context, sessionID *uuid.UUID) ([]model.Transaction, error) {
	var txs []model.Transaction
	q := r.db.WithContext(ctx).Order("sale_date ASC")
	if sessionID != nil {
		q = q.Where("session_id = ?", *sessionID)
	}
	err := q.Find(&txs).Error
	return txs, err
}

func (r *transactionRepo) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]model.Transaction, error) {
	var txs []model.Transaction
	err := r.db.WithContext(ctx).Where("seller_id = ?", sellerID).Order("sale_date ASC").Find(&txs).Error
	return txs, err
}
