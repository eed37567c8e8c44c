package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Game is a catalog entry describing a title. Inventory items reference it
// by name only.
type Game struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name        string    `gorm:"uniqueIndex;not null"`
	Description string
	Publisher   string
	ReleaseDate *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (g *Game) BeforeCreate(_ *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}
