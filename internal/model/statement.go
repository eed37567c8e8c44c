package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ScopeAll identifies statements computed over every session.
const ScopeAll = "all"

// SellerStatement is derived from the transaction log. A recompute replaces
// every row of its scope.
type SellerStatement struct {
	Scope           string          `gorm:"primaryKey;type:varchar(64)"`
	SellerID        uuid.UUID       `gorm:"primaryKey;type:uuid"`
	CommissionPaid  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	DepositFeesPaid decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	GamesRemaining  int             `gorm:"not null"`
	GamesSold       int             `gorm:"not null"`
	TotalDue        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	TotalEarnings   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	ComputedAt      time.Time
}

// HouseStatement sums every seller statement of a scope.
type HouseStatement struct {
	Scope                string          `gorm:"primaryKey;type:varchar(64)"`
	CommissionsCollected decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	DepositFeesCollected decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	GamesRemaining       int             `gorm:"not null"`
	GamesSold            int             `gorm:"not null"`
	TotalDue             decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	TotalEarnings        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Cash                 decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	NetProfit            decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	ComputedAt           time.Time
}

// ScopeFor returns the statement scope key of a session, or ScopeAll.
func ScopeFor(sessionID *uuid.UUID) string {
	if sessionID == nil {
		return ScopeAll
	}
	return sessionID.String()
}
