package dto

import "time"

type SellerStatementResponse struct {
	Scope           string    `json:"scope"`
	SellerID        string    `json:"seller_id"`
	SellerName      string    `json:"seller_name,omitempty"`
	CommissionPaid  string    `json:"commission_paid"`
	DepositFeesPaid string    `json:"deposit_fees_paid"`
	GamesRemaining  int       `json:"games_remaining"`
	GamesSold       int       `json:"games_sold"`
	TotalDue        string    `json:"total_due"`
	TotalEarnings   string    `json:"total_earnings"`
	ComputedAt      time.Time `json:"computed_at"`
}

type HouseStatementResponse struct {
	Scope                string    `json:"scope"`
	CommissionsCollected string    `json:"commissions_collected"`
	DepositFeesCollected string    `json:"deposit_fees_collected"`
	GamesRemaining       int       `json:"games_remaining"`
	GamesSold            int       `json:"games_sold"`
	TotalDue             string    `json:"total_due"`
	TotalEarnings        string    `json:"total_earnings"`
	Cash                 string    `json:"cash"`
	NetProfit            string    `json:"net_profit"`
	ComputedAt           time.Time `json:"computed_at"`
}

type StatementSetResponse struct {
	House   HouseStatementResponse    `json:"house"`
	Sellers []SellerStatementResponse `json:"sellers"`
}

type RecomputeRequest struct {
	SessionID string `json:"session_id" validate:"omitempty,uuid"`
}
