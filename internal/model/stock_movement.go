package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StockMovement kinds.
const (
	MovementSale     = "sale"
	MovementRelease  = "release" // pending -> available
	MovementReturned = "returned"
	MovementDeposit  = "deposit"
)

// StockMovement records every change to an inventory item's stock.
type StockMovement struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	ItemID      uuid.UUID  `gorm:"type:uuid;not null;index"`
	Kind        string     `gorm:"type:varchar(20);not null"`
	QuantityOld int        `gorm:"not null"`
	QuantityNew int        `gorm:"not null"`
	ReferenceID *uuid.UUID `gorm:"type:uuid"` // checkout or session id
	CreatedAt   time.Time
}

func (StockMovement) TableName() string { return "stock_movements" }

func (m *StockMovement) BeforeCreate(_ *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
