package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Stock statuses of an InventoryItem.
const (
	StockPending   = "pending"
	StockAvailable = "available"
	StockSoldOut   = "soldout"
	StockReturned  = "returned"
)

// Deposit fee schedules.
const (
	FeeFixed      = "fixed"
	FeePercentage = "percentage"
)

// InventoryItem is one physical unit deposited by a seller.
// StockStatus is soldout if and only if Quantity is 0; the repository repairs
// drift on read.
type InventoryItem struct {
	ID                   uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Name                 string          `gorm:"not null;index"`
	Price                decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	SellerID             uuid.UUID       `gorm:"type:uuid;not null;index"`
	Quantity             int             `gorm:"not null;default:1"`
	StockStatus          string          `gorm:"type:varchar(20);not null;default:'pending';index"`
	DepositFee           decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	DepositFeeType       string          `gorm:"type:varchar(20);not null;default:'fixed'"`
	CommissionPercentage decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`
	// SessionID is the session during which the item was deposited
	SessionID *uuid.UUID `gorm:"type:uuid;index"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Seller *User `gorm:"foreignKey:SellerID"`
}

func (InventoryItem) TableName() string { return "inventory_items" }

func (i *InventoryItem) BeforeCreate(_ *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// DepositFeeFor returns the fee owed on a sale at the given price.
func (i *InventoryItem) DepositFeeFor(salePrice decimal.Decimal) decimal.Decimal {
	return DepositFeeAmount(i.DepositFeeType, i.DepositFee, salePrice)
}

// DepositFeeAmount applies a fee schedule: fixed fees are taken as-is,
// percentage fees are computed on the sale price.
func DepositFeeAmount(feeType string, fee, salePrice decimal.Decimal) decimal.Decimal {
	if feeType == FeePercentage {
		return salePrice.Mul(fee).Div(decimal.NewFromInt(100))
	}
	return fee
}
