package dto

import "time"

type CreateGameRequest struct {
	Name        string     `json:"name"         validate:"required,min=1,max=200"`
	Description string     `json:"description"  validate:"max=2000"`
	Publisher   string     `json:"publisher"    validate:"max=200"`
	ReleaseDate *time.Time `json:"release_date"`
}

type GameResponse struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Publisher   string     `json:"publisher"`
	ReleaseDate *time.Time `json:"release_date"`
}

// GameDetailResponse is a catalog entry with its available listings.
type GameDetailResponse struct {
	GameResponse
	Listings []InventoryItemResponse `json:"listings"`
}
