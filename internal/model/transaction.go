package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AnonymousBuyer is recorded when checkout has no buyer email.
const AnonymousBuyer = "N/A"

// Transaction is the append-only record of one sold item. Rows are never
// updated or deleted.
type Transaction struct {
	ID                   uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CheckoutID           uuid.UUID       `gorm:"type:uuid;not null;index"`
	BuyerID              string          `gorm:"not null"`
	SellerID             uuid.UUID       `gorm:"type:uuid;not null;index"`
	ItemID               uuid.UUID       `gorm:"type:uuid;not null;index"`
	SessionID            uuid.UUID       `gorm:"type:uuid;not null;index"`
	SalePrice            decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CommissionPercentage decimal.Decimal `gorm:"type:decimal(5,2);not null"`
	DepositFee           decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	DepositFeeType       string          `gorm:"type:varchar(20);not null"`
	SaleDate             time.Time       `gorm:"not null"`
}

func (t *Transaction) BeforeCreate(_ *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
