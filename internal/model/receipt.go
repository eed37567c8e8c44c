package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ReceiptLine is one sold item on a receipt. Price is pre-formatted with two
// decimals.
type ReceiptLine struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price string `json:"price"`
}

// Receipt is a denormalised summary of one checkout. Transactions remain the
// source of truth.
type Receipt struct {
	ID             uuid.UUID                        `gorm:"type:uuid;primaryKey"`
	CheckoutID     uuid.UUID                        `gorm:"type:uuid;not null;uniqueIndex"`
	Email          string                           `gorm:"not null;index"`
	SessionID      uuid.UUID                        `gorm:"type:uuid;not null;index"`
	ItemsPurchased datatypes.JSONSlice[ReceiptLine] `gorm:"not null"`
	Total          decimal.Decimal                  `gorm:"type:decimal(12,2);not null"`
	SaleDate       time.Time                        `gorm:"not null"`
}

func (r *Receipt) BeforeCreate(_ *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
