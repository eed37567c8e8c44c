package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BasketEntry is one selected inventory item pending checkout. Entries are
// keyed by ItemID; Quantity is always 1.
type BasketEntry struct {
	ItemID         uuid.UUID       `json:"item_id"`
	Name           string          `json:"name"`
	Price          decimal.Decimal `json:"price"`
	Commission     decimal.Decimal `json:"commission"`
	DepositFee     decimal.Decimal `json:"deposit_fee"`
	DepositFeeType string          `json:"deposit_fee_type"`
	Quantity       int             `json:"quantity"`
	AddedAt        time.Time       `json:"added_at"`
}

// EntryFromItem snapshots the fields of an inventory item shown in a basket.
func EntryFromItem(item *InventoryItem, now time.Time) BasketEntry {
	return BasketEntry{
		ItemID:         item.ID,
		Name:           item.Name,
		Price:          item.Price,
		Commission:     item.CommissionPercentage,
		DepositFee:     item.DepositFee,
		DepositFeeType: item.DepositFeeType,
		Quantity:       1,
		AddedAt:        now,
	}
}
