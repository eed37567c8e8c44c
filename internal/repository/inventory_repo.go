package repository

import (
	"context"
	"errors"
	"strings"

	"fastclick/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrStockConflict is returned when a conditional stock update matched no
	// row: the item was sold, released or returned since it was read.
	ErrStockConflict = errors.New("stock changed since it was read")
)

// Listing sort orders.
const (
	SortPriceLowToHigh = "priceLowToHigh"
	SortPriceHighToLow = "priceHighToLow"
	SortSellerName     = "sellerName"
)

// InventoryFilter narrows List. Zero values disable a filter.
type InventoryFilter struct {
	Name     string
	Status   string
	SellerID *uuid.UUID
	Sort     string
	Page     int
	Limit    int
}

// InventoryRepository is the data access contract for inventory items.
type InventoryRepository interface {
	Create(ctx context.Context, item *model.InventoryItem) error
	CreateTx(tx *gorm.DB, item *model.InventoryItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.InventoryItem, error)
	FindAvailableByName(ctx context.Context, name string) ([]model.InventoryItem, error)
	List(ctx context.Context, filter InventoryFilter) ([]model.InventoryItem, int64, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]model.InventoryItem, error)
	// Snapshot returns every item; used by statement recomputation.
	Snapshot(ctx context.Context) ([]model.InventoryItem, error)

	// DecrementQuantity removes one unit only if the stored quantity still
	// equals expected. Returns ErrStockConflict otherwise.
	DecrementQuantity(tx *gorm.DB, id uuid.UUID, expected int) error
	// MarkAvailable moves a pending item to available.
	MarkAvailable(tx *gorm.DB, id uuid.UUID) error
	// MarkReturned hands an unsold pending/available item back to its seller.
	MarkReturned(tx *gorm.DB, id uuid.UUID) error

	DB() *gorm.DB
}

type inventoryRepo struct{ db *gorm.DB }

func NewInventoryRepository(db *gorm.DB) InventoryRepository { return &inventoryRepo{db: db} }

func (r *inventoryRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *inventoryRepo) Create(ctx context.Context, item *model.InventoryItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *inventoryRepo) CreateTx(tx *gorm.DB, item *model.InventoryItem) error {
	return r.conn(tx).Create(item).Error
}

func (r *inventoryRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.InventoryItem, error) {
	var item model.InventoryItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	if err := r.reconcileStatus(ctx, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// reconcileStatus repairs soldout/quantity drift left by writers that bypass
// DecrementQuantity. Both updates are conditional so concurrent readers agree.
func (r *inventoryRepo) reconcileStatus(ctx context.Context, item *model.InventoryItem) error {
	switch {
	case item.Quantity <= 0 && item.StockStatus != model.StockSoldOut:
		res := r.db.WithContext(ctx).Model(&model.InventoryItem{}).
			Where("id = ? AND quantity <= 0 AND stock_status <> ?", item.ID, model.StockSoldOut).
			Update("stock_status", model.StockSoldOut)
		if res.Error != nil {
			return res.Error
		}
		item.StockStatus = model.StockSoldOut
	case item.Quantity > 0 && item.StockStatus == model.StockSoldOut:
		res := r.db.WithContext(ctx).Model(&model.InventoryItem{}).
			Where("id = ? AND quantity > 0 AND stock_status = ?", item.ID, model.StockSoldOut).
			Update("stock_status", model.StockAvailable)
		if res.Error != nil {
			return res.Error
		}
		item.StockStatus = model.StockAvailable
	}
	return nil
}

func (r *inventoryRepo) FindAvailableByName(ctx context.Context, name string) ([]model.InventoryItem, error) {
	var items []model.InventoryItem
	err := r.db.WithContext(ctx).
		Where("name = ? AND stock_status = ?", name, model.StockAvailable).
		Order("price ASC").
		Find(&items).Error
	return items, err
}

func (r *inventoryRepo) List(ctx context.Context, filter InventoryFilter) ([]model.InventoryItem, int64, error) {
	var items []model.InventoryItem
	var total int64

	q := r.db.WithContext(ctx).Model(&model.InventoryItem{})
	if filter.Name != "" {
		q = q.Where("LOWER(inventory_items.name) LIKE ?", "%"+strings.ToLower(filter.Name)+"%")
	}
	if filter.Status != "" {
		q = q.Where("inventory_items.stock_status = ?", filter.Status)
	}
	if filter.SellerID != nil {
		q = q.Where("inventory_items.seller_id = ?", *filter.SellerID)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	switch filter.Sort {
	case SortPriceLowToHigh:
		q = q.Order("inventory_items.price ASC")
	case SortPriceHighToLow:
		q = q.Order("inventory_items.price DESC")
	case SortSellerName:
		q = q.Joins("LEFT JOIN users ON users.id = inventory_items.seller_id").
			Order("users.last_name ASC").Order("users.first_name ASC")
	default:
		q = q.Order("inventory_items.created_at DESC")
	}

	if filter.Limit > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		q = q.Limit(filter.Limit).Offset((page - 1) * filter.Limit)
	}
	err := q.Preload("Seller").Find(&items).Error
	return items, total, err
}

func (r *inventoryRepo) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]model.InventoryItem, error) {
	var items []model.InventoryItem
	err := r.db.WithContext(ctx).Where("seller_id = ?", sellerID).Order("created_at ASC").Find(&items).Error
	return items, err
}

func (r *inventoryRepo) Snapshot(ctx context.Context) ([]model.InventoryItem, error) {
	var items []model.InventoryItem
	err := r.db.WithContext(ctx).Find(&items).Error
	return items, err
}

func (r *inventoryRepo) DecrementQuantity(tx *gorm.DB, id uuid.UUID, expected int) error {
	// SET expressions see the pre-update quantity in both Postgres and SQLite.
	res := r.conn(tx).Model(&model.InventoryItem{}).
		Where("id = ? AND quantity = ? AND quantity > 0 AND stock_status = ?", id, expected, model.StockAvailable).
		Updates(map[string]interface{}{
			"quantity":     gorm.Expr("quantity - 1"),
			"stock_status": gorm.Expr("CASE WHEN quantity - 1 <= 0 THEN ? ELSE stock_status END", model.StockSoldOut),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStockConflict
	}
	return nil
}

func (r *inventoryRepo) MarkAvailable(tx *gorm.DB, id uuid.UUID) error {
	res := r.conn(tx).Model(&model.InventoryItem{}).
		Where("id = ? AND stock_status = ? AND quantity > 0", id, model.StockPending).
		Update("stock_status", model.StockAvailable)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStockConflict
	}
	return nil
}

func (r *inventoryRepo) MarkReturned(tx *gorm.DB, id uuid.UUID) error {
	res := r.conn(tx).Model(&model.InventoryItem{}).
		Where("id = ? AND stock_status IN ? AND quantity > 0", id, []string{model.StockPending, model.StockAvailable}).
		Update("stock_status", model.StockReturned)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStockConflict
	}
	return nil
}

func (r *inventoryRepo) DB() *gorm.DB { return r.db }
