package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"fastclick/internal/model"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// BasketStore persists baskets keyed by owner. It is the only persistence
// channel for baskets.
type BasketStore interface {
	// Add stores the entry unless its item is already present; returns false
	// without mutation in that case.
	Add(ctx context.Context, owner string, entry model.BasketEntry) (bool, error)
	Remove(ctx context.Context, owner string, itemID uuid.UUID) error
	// RemoveItems drops the given entries and leaves any others in place.
	RemoveItems(ctx context.Context, owner string, itemIDs ...uuid.UUID) error
	Clear(ctx context.Context, owner string) error
	// Load returns the entries in insertion order.
	Load(ctx context.Context, owner string) ([]model.BasketEntry, error)
}

// redisBasketStore keeps one hash per owner: field = item id, value = JSON
// entry. HSETNX makes duplicate rejection atomic across replicas.
type redisBasketStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisBasketStore(rdb *redis.Client, ttl time.Duration) BasketStore {
	return &redisBasketStore{rdb: rdb, ttl: ttl}
}

func basketKey(owner string) string { return fmt.Sprintf("basket:%s", owner) }

func (s *redisBasketStore) Add(ctx context.Context, owner string, entry model.BasketEntry) (bool, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return false, fmt.Errorf("marshal basket entry: %w", err)
	}
	key := basketKey(owner)
	added, err := s.rdb.HSetNX(ctx, key, entry.ItemID.String(), data).Result()
	if err != nil {
		return false, err
	}
	if s.ttl > 0 {
		if err := s.rdb.Expire(ctx, key, s.ttl).Err(); err != nil {
			return added, err
		}
	}
	return added, nil
}

func (s *redisBasketStore) Remove(ctx context.Context, owner string, itemID uuid.UUID) error {
	return s.rdb.HDel(ctx, basketKey(owner), itemID.String()).Err()
}

func (s *redisBasketStore) RemoveItems(ctx context.Context, owner string, itemIDs ...uuid.UUID) error {
	if len(itemIDs) == 0 {
		return nil
	}
	fields := make([]string, len(itemIDs))
	for i, id := range itemIDs {
		fields[i] = id.String()
	}
	return s.rdb.HDel(ctx, basketKey(owner), fields...).Err()
}

func (s *redisBasketStore) Clear(ctx context.Context, owner string) error {
	return s.rdb.Del(ctx, basketKey(owner)).Err()
}

func (s *redisBasketStore) Load(ctx context.Context, owner string) ([]model.BasketEntry, error) {
	raw, err := s.rdb.HGetAll(ctx, basketKey(owner)).Result()
	if err != nil {
		return nil, err
	}
	entries := make([]model.BasketEntry, 0, len(raw))
	for field, value := range raw {
		var e model.BasketEntry
		if err := json.Unmarshal([]byte(value), &e); err != nil {
			return nil, fmt.Errorf("basket entry %s: %w", field, err)
		}
		entries = append(entries, e)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].AddedAt.Before(entries[j].AddedAt)
	})
	return entries, nil
}
