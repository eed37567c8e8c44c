package service

import (
	"context"
	"errors"
	"strings"

	"fastclick/internal/dto"
	"fastclick/internal/model"
	"fastclick/internal/repository"

	"gorm.io/gorm"
)

var (
	ErrGameNotFound = errors.New("game not found")
	ErrGameExists   = errors.New("a game with this name already exists")
)

// CatalogService manages game entries. Inventory items link to a game by
// name only.
type CatalogService interface {
	CreateGame(ctx context.Context, req dto.CreateGameRequest) (*dto.GameResponse, error)
	// FindGame returns the entry and its available listings, cheapest first.
	FindGame(ctx context.Context, name string) (*dto.GameDetailResponse, error)
	ListGames(ctx context.Context) ([]dto.GameResponse, error)
}

type catalogService struct {
	games     repository.GameRepository
	inventory repository.InventoryRepository
}

func NewCatalogService(games repository.GameRepository, inventory repository.InventoryRepository) CatalogService {
	return &catalogService{games: games, inventory: inventory}
}

func (s *catalogService) CreateGame(ctx context.Context, req dto.CreateGameRequest) (*dto.GameResponse, error) {
	name := strings.TrimSpace(req.Name)
	if _, err := s.games.FindByName(ctx, name); err == nil {
		return nil, ErrGameExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	g := &model.Game{
		Name:        name,
		Description: req.Description,
		Publisher:   req.Publisher,
		ReleaseDate: req.ReleaseDate,
	}
	if err := s.games.Create(ctx, g); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrGameExists
		}
		return nil, err
	}
	resp := gameToResponse(g)
	return &resp, nil
}

func (s *catalogService) FindGame(ctx context.Context, name string) (*dto.GameDetailResponse, error) {
	g, err := s.games.FindByName(ctx, strings.TrimSpace(name))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, err
	}
	items, err := s.inventory.FindAvailableByName(ctx, g.Name)
	if err != nil {
		return nil, err
	}

	resp := &dto.GameDetailResponse{
		GameResponse: gameToResponse(g),
		Listings:     make([]dto.InventoryItemResponse, len(items)),
	}
	for i := range items {
		resp.Listings[i] = ItemToResponse(&items[i])
	}
	return resp, nil
}

func (s *catalogService) ListGames(ctx context.Context) ([]dto.GameResponse, error) {
	games, err := s.games.List(ctx)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.GameResponse, len(games))
	for i := range games {
		resp[i] = gameToResponse(&games[i])
	}
	return resp, nil
}

func gameToResponse(g *model.Game) dto.GameResponse {
	return dto.GameResponse{
		ID:          g.ID.String(),
		Name:        g.Name,
		Description: g.Description,
		Publisher:   g.Publisher,
		ReleaseDate: g.ReleaseDate,
	}
}
