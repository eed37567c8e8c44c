package repository

import (
	"context"

	"fastclick/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StatementRepository persists derived statements. Writes overwrite; nothing
// is merged with previous values.
type StatementRepository interface {
	// Replace swaps every seller row of the scope and the house row in one
	// transaction.
	Replace(ctx context.Context, scope string, sellers []model.SellerStatement, house *model.HouseStatement) error
	FindHouse(ctx context.Context, scope string) (*model.HouseStatement, error)
	ListSellers(ctx context.Context, scope string) ([]model.SellerStatement, error)
	FindSeller(ctx context.Context, scope string, sellerID uuid.UUID) (*model.SellerStatement, error)
}

type statementRepo struct{ db *gorm.DB }

func NewStatementRepository(db *gorm.DB) StatementRepository { return &statementRepo{db: db} }

func (r *statementRepo) Replace(ctx context.Context, scope string, sellers []model.SellerStatement, house *model.HouseStatement) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("scope = ?", scope).Delete(&model.SellerStatement{}).Error; err != nil {
			return err
		}
		if len(sellers) > 0 {
			if err := tx.Create(&sellers).Error; err != nil {
				return err
			}
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "scope"}},
			UpdateAll: true,
		}).Create(house).Error
	})
}

func (r *statementRepo) FindHouse(ctx context.Context, scope string) (*model.HouseStatement, error) {
	var h model.HouseStatement
	if err := r.db.WithContext(ctx).First(&h, "scope = ?", scope).Error; err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *statementRepo) ListSellers(ctx context.Context, scope string) ([]model.SellerStatement, error) {
	var out []model.SellerStatement
	err := r.db.WithContext(ctx).Where("scope = ?", scope).Order("seller_id ASC").Find(&out).Error
	return out, err
}

func (r *statementRepo) FindSeller(ctx context.Context, scope string, sellerID uuid.UUID) (*model.SellerStatement, error) {
	var s model.SellerStatement
	if err := r.db.WithContext(ctx).First(&s, "scope = ? AND seller_id = ?", scope, sellerID).Error; err != nil {
		return nil, err
	}
	return &s, nil
}
