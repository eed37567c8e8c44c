package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"fastclick/internal/infra"
	"fastclick/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), infra.GormConfig())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection keeps the in-memory database alive and shared.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, infra.RunMigrations(db))
	return db
}

func seedSeller(t *testing.T, db *gorm.DB, email, first, last string) *model.User {
	t.Helper()
	u := &model.User{Email: email, FirstName: first, LastName: last, Role: model.RoleSeller, Active: true}
	require.NoError(t, NewUserRepository(db).Create(context.Background(), u))
	return u
}

func seedItem(t *testing.T, repo InventoryRepository, seller uuid.UUID, name, price, status string) *model.InventoryItem {
	t.Helper()
	item := &model.InventoryItem{
		Name:                 name,
		Price:                decimal.RequireFromString(price),
		SellerID:             seller,
		Quantity:             1,
		StockStatus:          status,
		DepositFeeType:       model.FeeFixed,
		CommissionPercentage: decimal.NewFromInt(10),
	}
	require.NoError(t, repo.Create(context.Background(), item))
	return item
}

// ── Inventory ─────────────────────────────────────────────────────────────────

func TestInventory_DecrementIsConditional(t *testing.T) {
	db := newTestDB(t)
	repo := NewInventoryRepository(db)
	seller := seedSeller(t, db, "s@example.com", "Sam", "Lee")
	item := seedItem(t, repo, seller.ID, "Catan", "20", model.StockAvailable)

	require.NoError(t, repo.DecrementQuantity(nil, item.ID, 1))

	got, err := repo.FindByID(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Quantity)
	assert.Equal(t, model.StockSoldOut, got.StockStatus)

	// A second buyer holding the stale quantity loses.
	err = repo.DecrementQuantity(nil, item.ID, 1)
	assert.ErrorIs(t, err, ErrStockConflict)
	err = repo.DecrementQuantity(nil, item.ID, 0)
	assert.ErrorIs(t, err, ErrStockConflict)

	got, err = repo.FindByID(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Quantity)
}

func TestInventory_PendingCannotBeSold(t *testing.T) {
	db := newTestDB(t)
	repo := NewInventoryRepository(db)
	seller := seedSeller(t, db, "s@example.com", "Sam", "Lee")
	item := seedItem(t, repo, seller.ID, "Catan", "20", model.StockPending)

	assert.ErrorIs(t, repo.DecrementQuantity(nil, item.ID, 1), ErrStockConflict)

	require.NoError(t, repo.MarkAvailable(nil, item.ID))
	assert.ErrorIs(t, repo.MarkAvailable(nil, item.ID), ErrStockConflict)
	require.NoError(t, repo.MarkReturned(nil, item.ID))
	assert.ErrorIs(t, repo.MarkReturned(nil, item.ID), ErrStockConflict)
}

func TestInventory_ReadRepairsDrift(t *testing.T) {
	db := newTestDB(t)
	repo := NewInventoryRepository(db)
	seller := seedSeller(t, db, "s@example.com", "Sam", "Lee")
	item := seedItem(t, repo, seller.ID, "Catan", "20", model.StockAvailable)

	require.NoError(t, db.Model(&model.InventoryItem{}).Where("id = ?", item.ID).Update("quantity", 0).Error)

	got, err := repo.FindByID(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StockSoldOut, got.StockStatus)

	var stored model.InventoryItem
	require.NoError(t, db.First(&stored, "id = ?", item.ID).Error)
	assert.Equal(t, model.StockSoldOut, stored.StockStatus)
}

func TestInventory_ListFiltersAndSorts(t *testing.T) {
	db := newTestDB(t)
	repo := NewInventoryRepository(db)
	zed := seedSeller(t, db, "z@example.com", "Zed", "Young")
	amy := seedSeller(t, db, "a@example.com", "Amy", "Baker")
	seedItem(t, repo, zed.ID, "Catan", "20", model.StockAvailable)
	seedItem(t, repo, amy.ID, "Catan Junior", "12", model.StockAvailable)
	seedItem(t, repo, amy.ID, "Azul", "35", model.StockPending)
	ctx := context.Background()

	items, total, err := repo.List(ctx, InventoryFilter{Name: "catan", Sort: SortPriceLowToHigh})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, items, 2)
	assert.Equal(t, "Catan Junior", items[0].Name)
	require.NotNil(t, items[0].Seller)
	assert.Equal(t, "Amy", items[0].Seller.FirstName)

	items, _, err = repo.List(ctx, InventoryFilter{Sort: SortPriceHighToLow, Page: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Azul", items[0].Name)

	items, _, err = repo.List(ctx, InventoryFilter{Sort: SortSellerName, Status: model.StockAvailable})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, amy.ID, items[0].SellerID)

	items, total, err = repo.List(ctx, InventoryFilter{SellerID: &amy.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, items, 2)

	avail, err := repo.FindAvailableByName(ctx, "Catan")
	require.NoError(t, err)
	assert.Len(t, avail, 1)
}

// ── Sessions ──────────────────────────────────────────────────────────────────

func TestSessions_SingleOpenIndex(t *testing.T) {
	db := newTestDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	first := &model.Session{Event: "Fair", Status: model.SessionOpen, StartsAt: now, EndsAt: now.Add(time.Hour)}
	require.NoError(t, repo.Create(ctx, first))

	second := &model.Session{Event: "Other", Status: model.SessionOpen, StartsAt: now, EndsAt: now.Add(time.Hour)}
	err := repo.Create(ctx, second)
	require.Error(t, err)
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey), "got %v", err)

	closed, err := repo.Close(ctx, first.ID, now)
	require.NoError(t, err)
	assert.True(t, closed)

	closed, err = repo.Close(ctx, first.ID, now)
	require.NoError(t, err)
	assert.False(t, closed, "already closed")

	_, err = repo.FindOpen(ctx)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	third := &model.Session{Event: "Evening", Status: model.SessionOpen, StartsAt: now.Add(time.Minute), EndsAt: now.Add(2 * time.Hour)}
	require.NoError(t, repo.Create(ctx, third))

	open, err := repo.FindOpen(ctx)
	require.NoError(t, err)
	assert.Equal(t, third.ID, open.ID)

	list, err := repo.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, third.ID, list[0].ID)
}

// ── Statements ────────────────────────────────────────────────────────────────

func TestStatements_ReplaceOverwritesScope(t *testing.T) {
	db := newTestDB(t)
	repo := NewStatementRepository(db)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()

	row := func(id uuid.UUID, sold int) model.SellerStatement {
		return model.SellerStatement{
			Scope: model.ScopeAll, SellerID: id, GamesSold: sold,
			CommissionPaid: decimal.Zero, DepositFeesPaid: decimal.Zero,
			TotalDue: decimal.NewFromInt(int64(sold)), TotalEarnings: decimal.NewFromInt(int64(sold)),
		}
	}
	house := func(sold int) *model.HouseStatement {
		return &model.HouseStatement{
			Scope: model.ScopeAll, GamesSold: sold,
			CommissionsCollected: decimal.Zero, DepositFeesCollected: decimal.Zero,
			TotalDue: decimal.Zero, TotalEarnings: decimal.Zero, Cash: decimal.Zero, NetProfit: decimal.Zero,
		}
	}

	require.NoError(t, repo.Replace(ctx, model.ScopeAll, []model.SellerStatement{row(a, 1), row(b, 2)}, house(3)))
	require.NoError(t, repo.Replace(ctx, model.ScopeAll, []model.SellerStatement{row(a, 5)}, house(5)))

	sellers, err := repo.ListSellers(ctx, model.ScopeAll)
	require.NoError(t, err)
	require.Len(t, sellers, 1)
	assert.Equal(t, 5, sellers[0].GamesSold)

	h, err := repo.FindHouse(ctx, model.ScopeAll)
	require.NoError(t, err)
	assert.Equal(t, 5, h.GamesSold)

	_, err = repo.FindSeller(ctx, model.ScopeAll, b)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	_, err = repo.FindHouse(ctx, uuid.NewString())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

// ── Transactions / receipts / users ──────────────────────────────────────────

func TestTransactions_ListBySession(t *testing.T) {
	db := newTestDB(t)
	repo := NewTransactionRepository(db)
	s1, s2 := uuid.New(), uuid.New()
	seller := uuid.New()

	for _, sid := range []uuid.UUID{s1, s1, s2} {
		require.NoError(t, repo.CreateTx(nil, &model.Transaction{
			CheckoutID: uuid.New(), BuyerID: model.AnonymousBuyer, SellerID: seller, ItemID: uuid.New(),
			SessionID: sid, SalePrice: decimal.NewFromInt(10), CommissionPercentage: decimal.Zero,
			DepositFee: decimal.Zero, DepositFeeType: model.FeeFixed, SaleDate: time.Now(),
		}))
	}
	ctx := context.Background()

	txs, err := repo.List(ctx, &s1)
	require.NoError(t, err)
	assert.Len(t, txs, 2)

	txs, err = repo.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, txs, 3)

	txs, err = repo.ListBySeller(ctx, seller)
	require.NoError(t, err)
	assert.Len(t, txs, 3)
}

func TestReceipts_RoundTripLines(t *testing.T) {
	db := newTestDB(t)
	repo := NewReceiptRepository(db)
	ctx := context.Background()

	r := &model.Receipt{
		CheckoutID: uuid.New(),
		Email:      "buyer@example.com",
		SessionID:  uuid.New(),
		ItemsPurchased: datatypes.NewJSONSlice([]model.ReceiptLine{
			{ID: uuid.NewString(), Name: "Catan", Price: "20.00"},
			{ID: uuid.NewString(), Name: "Azul", Price: "35.00"},
		}),
		Total:    decimal.NewFromInt(55),
		SaleDate: time.Now().UTC(),
	}
	require.NoError(t, repo.Create(ctx, r))

	got, err := repo.FindByID(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, got.ItemsPurchased, 2)
	assert.Equal(t, "Azul", got.ItemsPurchased[1].Name)
	assert.Equal(t, "55.00", got.Total.StringFixed(2))

	mine, err := repo.ListByEmail(ctx, "buyer@example.com")
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestUsers_EmailUnique(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	seedSeller(t, db, "dup@example.com", "A", "B")

	err := repo.Create(ctx, &model.User{Email: "dup@example.com", FirstName: "C", LastName: "D", Role: model.RoleSeller})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	u, err := repo.FindByEmail(ctx, "dup@example.com")
	require.NoError(t, err)
	users, err := repo.FindByIDs(ctx, []uuid.UUID{u.ID, uuid.New()})
	require.NoError(t, err)
	assert.Len(t, users, 1)
}
