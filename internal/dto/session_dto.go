package dto

import "time"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type OpenSessionRequest struct {
	Event  string    `json:"event"   validate:"required,min=1,max=200"`
	EndsAt time.Time `json:"ends_at" validate:"required"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

// SessionStatusResponse is also the payload pushed on /v1/session/ws.
type SessionStatusResponse struct {
	Open             bool       `json:"open"`
	State            string     `json:"state"`
	SessionID        *string    `json:"session_id"`
	Event            *string    `json:"event"`
	EndsAt           *time.Time `json:"ends_at"`
	RemainingSeconds int64      `json:"remaining_seconds"`
	Remaining        string     `json:"remaining"`
}

type SessionResponse struct {
	ID       string     `json:"id"`
	Event    string     `json:"event"`
	Status   string     `json:"status"`
	StartsAt time.Time  `json:"starts_at"`
	EndsAt   time.Time  `json:"ends_at"`
	ClosedAt *time.Time `json:"closed_at"`
}
