package repository

import (
	"context"

	"fastclick/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StockMovementRepository interface {
	CreateTx(tx *gorm.DB, m *model.StockMovement) error
	ListByItem(ctx context.Context, itemID uuid.UUID) ([]model.StockMovement, error)
}

type stockMovementRepo struct{ db *gorm.DB }

func NewStockMovementRepository(db *gorm.DB) StockMovementRepository {
	return &stockMovementRepo{db: db}
}

func (r *stockMovementRepo) CreateTx(tx *gorm.DB, m *model.StockMovement) error {
	if tx == nil {
		tx = r.db
	}
	return tx.Create(m).Error
}

func (r *stockMovementRepo) ListByItem(ctx context.Context, itemID uuid.UUID) ([]model.StockMovement, error) {
	var out []model.StockMovement
	err := r.db.WithContext(ctx).Where("item_id = ?", itemID).Order("created_at ASC").Find(&out).Error
	return out, err
}
