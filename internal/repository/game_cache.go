package repository

import (
	"context"
	"encoding/json"
	"time"

	"fastclick/internal/model"

	"github.com/redis/go-redis/v9"
)

const gameListKey = "games:all"

// cachedGameRepo wraps a GameRepository with a Redis read-through cache.
// Writes go to the primary and invalidate the list key; single-game reads
// check Redis first.
type cachedGameRepo struct {
	primary GameRepository
	rdb     *redis.Client
	ttl     time.Duration
}

func NewCachedGameRepository(primary GameRepository, rdb *redis.Client, ttl time.Duration) GameRepository {
	return &cachedGameRepo{primary: primary, rdb: rdb, ttl: ttl}
}

func gameKey(name string) string { return "game:" + name }

func (r *cachedGameRepo) Create(ctx context.Context, g *model.Game) error {
	if err := r.primary.Create(ctx, g); err != nil {
		return err
	}
	r.rdb.Del(ctx, gameListKey)
	r.store(ctx, gameKey(g.Name), g)
	return nil
}

func (r *cachedGameRepo) FindByName(ctx context.Context, name string) (*model.Game, error) {
	if data, err := r.rdb.Get(ctx, gameKey(name)).Bytes(); err == nil {
		var g model.Game
		if json.Unmarshal(data, &g) == nil {
			return &g, nil
		}
	}
	g, err := r.primary.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	r.store(ctx, gameKey(name), g)
	return g, nil
}

func (r *cachedGameRepo) List(ctx context.Context) ([]model.Game, error) {
	if data, err := r.rdb.Get(ctx, gameListKey).Bytes(); err == nil {
		var games []model.Game
		if json.Unmarshal(data, &games) == nil {
			return games, nil
		}
	}
	games, err := r.primary.List(ctx)
	if err != nil {
		return nil, err
	}
	r.store(ctx, gameListKey, games)
	return games, nil
}

// store is best effort, errors are ignored.
func (r *cachedGameRepo) store(ctx context.Context, key string, v interface{}) {
	if b, err := json.Marshal(v); err == nil {
		_ = r.rdb.Set(ctx, key, b, r.ttl).Err()
	}
}
