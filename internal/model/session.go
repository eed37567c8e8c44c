package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Session statuses.
const (
	SessionOpen   = "open"
	SessionClosed = "closed"
)

// Session is a time-boxed sale window. At most one row may be open; the
// partial unique index idx_sessions_single_open enforces it.
type Session struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Event     string    `gorm:"not null"`
	Status    string    `gorm:"type:varchar(20);not null;default:'open'"`
	StartsAt  time.Time `gorm:"not null"`
	EndsAt    time.Time `gorm:"not null"`
	ClosedAt  *time.Time
	OpenedBy  *uuid.UUID `gorm:"type:uuid"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (s *Session) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
