package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fastclick/internal/model"
	"fastclick/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrItemNotFound     = errors.New("inventory item not found")
	ErrItemNotAvailable = errors.New("inventory item is not available for sale")
	ErrAlreadyInBasket  = errors.New("item is already in the basket")
)

// Basket is a set of entries keyed by item id, kept in insertion order.
type Basket struct {
	entries []model.BasketEntry
}

// NewBasket builds a basket from stored entries, dropping duplicates.
func NewBasket(entries []model.BasketEntry) *Basket {
	b := &Basket{}
	for _, e := range entries {
		b.Add(e)
	}
	return b
}

// Add appends the entry and returns true, or returns false without mutation
// when the item is already present.
func (b *Basket) Add(e model.BasketEntry) bool {
	if b.Contains(e.ItemID) {
		return false
	}
	if e.Quantity <= 0 {
		e.Quantity = 1
	}
	b.entries = append(b.entries, e)
	return true
}

func (b *Basket) Remove(itemID uuid.UUID) {
	for i, e := range b.entries {
		if e.ItemID == itemID {
			b.entries = append(b.entries[:i], b.entries[i+1:]...)
			return
		}
	}
}

func (b *Basket) Clear() { b.entries = nil }

func (b *Basket) Contains(itemID uuid.UUID) bool {
	for _, e := range b.entries {
		if e.ItemID == itemID {
			return true
		}
	}
	return false
}

func (b *Basket) Len() int { return len(b.entries) }

// Entries returns a copy of the entries.
func (b *Basket) Entries() []model.BasketEntry {
	return append([]model.BasketEntry(nil), b.entries...)
}

// Total is the sum of price x quantity. Quantity is always 1, so this equals
// the sum of prices.
func (b *Basket) Total() decimal.Decimal {
	total := decimal.Zero
	for _, e := range b.entries {
		total = total.Add(e.Price.Mul(decimal.NewFromInt(int64(e.Quantity))))
	}
	return total
}

// ── BasketService ─────────────────────────────────────────────────────────────

// BasketService manages per-owner baskets persisted in the BasketStore.
type BasketService interface {
	Get(ctx context.Context, owner string) (*Basket, error)
	// Add looks the item up and stores it. Returns ErrAlreadyInBasket when the
	// item is present.
	Add(ctx context.Context, owner string, itemID uuid.UUID) (*Basket, error)
	Remove(ctx context.Context, owner string, itemID uuid.UUID) (*Basket, error)
	Clear(ctx context.Context, owner string) error
}

type basketService struct {
	store     repository.BasketStore
	inventory repository.InventoryRepository
	now       Clock
}

func NewBasketService(store repository.BasketStore, inventory repository.InventoryRepository, now Clock) BasketService {
	if now == nil {
		now = time.Now
	}
	return &basketService{store: store, inventory: inventory, now: now}
}

func (s *basketService) Get(ctx context.Context, owner string) (*Basket, error) {
	entries, err := s.store.Load(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("load basket: %w", err)
	}
	return NewBasket(entries), nil
}

func (s *basketService) Add(ctx context.Context, owner string, itemID uuid.UUID) (*Basket, error) {
	item, err := s.inventory.FindByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	if item.StockStatus != model.StockAvailable || item.Quantity <= 0 {
		return nil, ErrItemNotAvailable
	}

	added, err := s.store.Add(ctx, owner, model.EntryFromItem(item, s.now()))
	if err != nil {
		return nil, fmt.Errorf("store basket entry: %w", err)
	}
	if !added {
		return nil, ErrAlreadyInBasket
	}
	return s.Get(ctx, owner)
}

func (s *basketService) Remove(ctx context.Context, owner string, itemID uuid.UUID) (*Basket, error) {
	if err := s.store.Remove(ctx, owner, itemID); err != nil {
		return nil, err
	}
	return s.Get(ctx, owner)
}

func (s *basketService) Clear(ctx context.Context, owner string) error {
	return s.store.Clear(ctx, owner)
}
