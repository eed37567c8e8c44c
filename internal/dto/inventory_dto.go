package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

// DepositRequest registers a physical unit for a seller. When SellerEmail is
// unknown a seller account is created and first/last name become required.
type DepositRequest struct {
	Name                 string          `json:"name"                  validate:"required,min=1,max=200"`
	Price                decimal.Decimal `json:"price"                 validate:"required,gt=0"`
	CommissionPercentage decimal.Decimal `json:"commission_percentage" validate:"min=0,max=100"`
	DepositFee           decimal.Decimal `json:"deposit_fee"           validate:"min=0"`
	DepositFeeType       string          `json:"deposit_fee_type"      validate:"required,oneof=fixed percentage"`
	SellerEmail          string          `json:"seller_email"          validate:"required,email"`
	SellerFirstName      string          `json:"seller_first_name"     validate:"max=100"`
	SellerLastName       string          `json:"seller_last_name"      validate:"max=100"`
	SellerPhone          string          `json:"seller_phone"          validate:"max=32"`
	SellerAddress        string          `json:"seller_address"        validate:"max=300"`
}

// ─── Filter / Pagination ─────────────────────────────────────────────────────

type InventoryFilter struct {
	Name     string `form:"name"`
	Status   string `form:"status"    validate:"omitempty,oneof=pending available soldout returned"`
	SellerID string `form:"seller_id" validate:"omitempty,uuid"`
	Sort     string `form:"sort"      validate:"omitempty,oneof=priceLowToHigh priceHighToLow sellerName"`
	Page     int    `form:"page,default=1"   validate:"min=1"`
	Limit    int    `form:"limit,default=20" validate:"min=1,max=100"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type InventoryItemResponse struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	Price                string    `json:"price"`
	SellerID             string    `json:"seller_id"`
	SellerName           string    `json:"seller_name,omitempty"`
	Quantity             int       `json:"quantity"`
	StockStatus          string    `json:"stock_status"`
	DepositFee           string    `json:"deposit_fee"`
	DepositFeeType       string    `json:"deposit_fee_type"`
	CommissionPercentage string    `json:"commission_percentage"`
	SessionID            *string   `json:"session_id"`
	CreatedAt            time.Time `json:"created_at"`
}

type InventoryListResponse struct {
	Data       []InventoryItemResponse `json:"data"`
	Total      int64                   `json:"total"`
	Page       int                     `json:"page"`
	Limit      int                     `json:"limit"`
	TotalPages int                     `json:"total_pages"`
}

type DepositResponse struct {
	Item          InventoryItemResponse `json:"item"`
	Seller        UserResponse          `json:"seller"`
	SellerCreated bool                  `json:"seller_created"`
}
