package dto

import "time"

// ─── Basket ──────────────────────────────────────────────────────────────────

type AddBasketItemRequest struct {
	ItemID string `json:"item_id" validate:"required,uuid"`
}

type BasketEntryResponse struct {
	ItemID   string    `json:"item_id"`
	Name     string    `json:"name"`
	Price    string    `json:"price"`
	Quantity int       `json:"quantity"`
	AddedAt  time.Time `json:"added_at"`
}

type BasketResponse struct {
	Items []BasketEntryResponse `json:"items"`
	Count int                   `json:"count"`
	Total string                `json:"total"`
}

// ─── Checkout ────────────────────────────────────────────────────────────────

type CheckoutRequest struct {
	BuyerEmail string `json:"buyer_email" validate:"omitempty,email"`
}

type CheckoutLineResponse struct {
	ItemID        string `json:"item_id"`
	TransactionID string `json:"transaction_id"`
	Name          string `json:"name"`
	Price         string `json:"price"`
}

type CheckoutFailureResponse struct {
	ItemID string `json:"item_id"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

type CheckoutResponse struct {
	CheckoutID    string                    `json:"checkout_id"`
	SessionID     string                    `json:"session_id"`
	Succeeded     []CheckoutLineResponse    `json:"succeeded"`
	Failed        []CheckoutFailureResponse `json:"failed"`
	Receipt       *ReceiptResponse          `json:"receipt"`
	ReceiptError  string                    `json:"receipt_error,omitempty"`
	BasketCleared bool                      `json:"basket_cleared"`
}

// ─── Receipts ────────────────────────────────────────────────────────────────

type ReceiptLineResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price string `json:"price"`
}

type ReceiptResponse struct {
	ID             string                `json:"id"`
	CheckoutID     string                `json:"checkout_id"`
	Email          string                `json:"email"`
	SessionID      string                `json:"session_id"`
	ItemsPurchased []ReceiptLineResponse `json:"items_purchased"`
	Total          string                `json:"total"`
	SaleDate       time.Time             `json:"sale_date"`
}
