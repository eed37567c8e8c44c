package repository

import (
	"context"

	"fastclick/internal/model"

	"gorm.io/gorm"
)

type GameRepository interface {
	Create(ctx context.Context, g *model.Game) error
	FindByName(ctx context.Context, name string) (*model.Game, error)
	List(ctx context.Context) ([]model.Game, error)
}

type gameRepo struct{ db *gorm.DB }

func NewGameRepository(db *gorm.DB) GameRepository { return &gameRepo{db: db} }

func (r *gameRepo) Create(ctx context.Context, g *model.Game) error {
	return r.db.WithContext(ctx).Create(g).Error
}

func (r *gameRepo) FindByName(ctx context.Context, name string) (*model.Game, error) {
	var g model.Game
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&g).Error; err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *gameRepo) List(ctx context.Context) ([]model.Game, error) {
	var games []model.Game
	err := r.db.WithContext(ctx).Order("name ASC").Find(&games).Error
	return games, err
}
