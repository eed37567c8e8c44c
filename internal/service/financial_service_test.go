package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"fastclick/internal/infra"
	"fastclick/internal/model"

	"github.com/google/uuid"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func saleOf(item model.InventoryItem, sessionID uuid.UUID) model.Transaction {
	return model.Transaction{
		ID:                   uuid.New(),
		SellerID:             item.SellerID,
		ItemID:               item.ID,
		SessionID:            sessionID,
		SalePrice:            item.Price,
		CommissionPercentage: item.CommissionPercentage,
		DepositFee:           item.DepositFee,
		DepositFeeType:       item.DepositFeeType,
	}
}

func TestComputeSellerStatement_SingleSale(t *testing.T) {
	seller := uuid.New()
	session := uuid.New()
	item := model.InventoryItem{
		ID: uuid.New(), SellerID: seller, Price: dec("20"), Quantity: 0, StockStatus: model.StockSoldOut,
		CommissionPercentage: dec("10"), DepositFee: dec("2"), DepositFeeType: model.FeeFixed,
	}
	txs := []model.Transaction{saleOf(item, session)}

	st := ComputeSellerStatement(txs, []model.InventoryItem{item}, seller, &session)
	assert.Equal(t, session.String(), st.Scope)
	assert.Equal(t, 1, st.GamesSold)
	assert.Equal(t, 0, st.GamesRemaining)
	assert.Equal(t, "20.00", st.TotalEarnings.StringFixed(2))
	assert.Equal(t, "2.00", st.CommissionPaid.StringFixed(2))
	assert.Equal(t, "2.00", st.DepositFeesPaid.StringFixed(2))
	assert.Equal(t, "16.00", st.TotalDue.StringFixed(2))
}

func TestComputeSellerStatement_PercentageFeeAndRemaining(t *testing.T) {
	seller := uuid.New()
	session := uuid.New()
	sold := model.InventoryItem{
		ID: uuid.New(), SellerID: seller, Price: dec("33.33"),
		CommissionPercentage: dec("15"), DepositFee: dec("5"), DepositFeeType: model.FeePercentage,
	}
	unsold := model.InventoryItem{ID: uuid.New(), SellerID: seller, Price: dec("10"), Quantity: 1}
	other := model.InventoryItem{ID: uuid.New(), SellerID: uuid.New(), Price: dec("99"), Quantity: 1}
	inv := []model.InventoryItem{sold, unsold, other}

	st := ComputeSellerStatement([]model.Transaction{saleOf(sold, session)}, inv, seller, nil)
	assert.Equal(t, model.ScopeAll, st.Scope)
	assert.Equal(t, 1, st.GamesSold)
	assert.Equal(t, 1, st.GamesRemaining)
	assert.Equal(t, "33.33", st.TotalEarnings.StringFixed(2))
	assert.Equal(t, "5.00", st.CommissionPaid.StringFixed(2))  // 4.9995
	assert.Equal(t, "1.67", st.DepositFeesPaid.StringFixed(2)) // 1.6665
	assert.Equal(t, "26.66", st.TotalDue.StringFixed(2))
}

func TestComputeSellerStatement_SessionFilter(t *testing.T) {
	seller := uuid.New()
	s1, s2 := uuid.New(), uuid.New()
	a := model.InventoryItem{ID: uuid.New(), SellerID: seller, Price: dec("10"), DepositFeeType: model.FeeFixed}
	b := model.InventoryItem{ID: uuid.New(), SellerID: seller, Price: dec("5"), DepositFeeType: model.FeeFixed}
	c := model.InventoryItem{ID: uuid.New(), SellerID: seller, Price: dec("8"), DepositFeeType: model.FeeFixed}
	txs := []model.Transaction{saleOf(a, s1), saleOf(b, s2)}
	inv := []model.InventoryItem{a, b, c}

	st1 := ComputeSellerStatement(txs, inv, seller, &s1)
	assert.Equal(t, 1, st1.GamesSold)
	assert.Equal(t, "10.00", st1.TotalEarnings.StringFixed(2))
	assert.Equal(t, 1, st1.GamesRemaining, "sales from other sessions are not remaining")

	all := ComputeSellerStatement(txs, inv, seller, nil)
	assert.Equal(t, 2, all.GamesSold)
	assert.Equal(t, "15.00", all.TotalEarnings.StringFixed(2))
	assert.Equal(t, 1, all.GamesRemaining)

	// A later session with no sales still sees only the unsold unit.
	s3 := uuid.New()
	st3 := ComputeSellerStatement(txs, inv, seller, &s3)
	assert.Equal(t, 0, st3.GamesSold)
	assert.Equal(t, 1, st3.GamesRemaining)
}

func TestComputeSellerStatement_Idempotent(t *testing.T) {
	seller := uuid.New()
	item := model.InventoryItem{
		ID: uuid.New(), SellerID: seller, Price: dec("12.34"),
		CommissionPercentage: dec("7.5"), DepositFee: dec("1"), DepositFeeType: model.FeeFixed,
	}
	txs := []model.Transaction{saleOf(item, uuid.New())}
	inv := []model.InventoryItem{item}

	first := ComputeSellerStatement(txs, inv, seller, nil)
	second := ComputeSellerStatement(txs, inv, seller, nil)
	assert.Equal(t, first, second)
}

func TestComputeHouseStatement_SumsSellers(t *testing.T) {
	sellers := []model.SellerStatement{
		{CommissionPaid: dec("2"), DepositFeesPaid: dec("2"), GamesSold: 1, GamesRemaining: 3, TotalEarnings: dec("20"), TotalDue: dec("16")},
		{CommissionPaid: dec("1.5"), DepositFeesPaid: dec("0.5"), GamesSold: 2, GamesRemaining: 0, TotalEarnings: dec("15"), TotalDue: dec("13")},
	}
	h := ComputeHouseStatement(model.ScopeAll, sellers, dec("0.5"))

	assert.Equal(t, model.ScopeAll, h.Scope)
	assert.Equal(t, 3, h.GamesSold)
	assert.Equal(t, 3, h.GamesRemaining)
	assert.Equal(t, "3.50", h.CommissionsCollected.StringFixed(2))
	assert.Equal(t, "2.50", h.DepositFeesCollected.StringFixed(2))
	assert.Equal(t, "35.00", h.TotalEarnings.StringFixed(2))
	assert.Equal(t, "29.00", h.TotalDue.StringFixed(2))
	assert.Equal(t, "14.50", h.Cash.StringFixed(2))
	assert.Equal(t, "6.00", h.NetProfit.StringFixed(2))
}

func TestComputeHouseStatement_Empty(t *testing.T) {
	h := ComputeHouseStatement("x", nil, dec("0.5"))
	assert.True(t, h.TotalEarnings.IsZero())
	assert.True(t, h.Cash.IsZero())
	assert.True(t, h.NetProfit.IsZero())
	assert.Zero(t, h.GamesSold)
}

// ── FinancialService ──────────────────────────────────────────────────────────

type financialFixture struct {
	txs        *stubTransactionRepo
	items      *stubInventoryRepo
	statements *stubStatementRepo
	users      *stubUserRepo
	locker     *stubLocker
	clock      *fakeClock
	svc        FinancialService
}

func newFinancialFixture() *financialFixture {
	f := &financialFixture{
		txs:        &stubTransactionRepo{},
		items:      newStubInventoryRepo(),
		statements: newStubStatementRepo(),
		users:      newStubUserRepo(),
		locker:     newStubLocker(),
		clock:      newFakeClock(),
	}
	f.svc = NewFinancialService(f.txs, f.items, f.statements, f.users, f.locker, dec("0.5"), f.clock.Now)
	return f
}

func (f *financialFixture) seller(first, last string) *model.User {
	u := &model.User{Email: first + "@example.com", FirstName: first, LastName: last, Role: model.RoleSeller}
	_ = f.users.Create(context.Background(), u)
	return u
}

func (f *financialFixture) sell(item *model.InventoryItem, sessionID uuid.UUID) {
	f.items.items[item.ID].Quantity = 0
	f.items.items[item.ID].StockStatus = model.StockSoldOut
	f.txs.txs = append(f.txs.txs, saleOf(*item, sessionID))
}

func TestFinancialService_Recompute(t *testing.T) {
	f := newFinancialFixture()
	ctx := context.Background()
	session := uuid.New()
	ana := f.seller("Ana", "Lopez")
	ben := f.seller("Ben", "Ortiz")

	catan := f.items.put(model.InventoryItem{SellerID: ana.ID, Name: "Catan", Price: dec("20"), Quantity: 1,
		StockStatus: model.StockAvailable, CommissionPercentage: dec("10"), DepositFee: dec("2"), DepositFeeType: model.FeeFixed})
	f.items.put(model.InventoryItem{SellerID: ben.ID, Name: "Azul", Price: dec("30"), Quantity: 1,
		StockStatus: model.StockAvailable, DepositFeeType: model.FeeFixed})
	f.sell(catan, session)

	set, err := f.svc.Recompute(ctx, &session)
	require.NoError(t, err)
	require.Len(t, set.Sellers, 2)
	assert.Equal(t, 1, f.statements.replaces)
	assert.Equal(t, []string{"lock:statements:" + session.String()}, f.locker.obtained)
	assert.Empty(t, f.locker.held, "lock released")

	assert.Equal(t, "20.00", set.House.TotalEarnings.StringFixed(2))
	assert.Equal(t, "16.00", set.House.TotalDue.StringFixed(2))
	assert.Equal(t, "8.00", set.House.Cash.StringFixed(2))
	assert.Equal(t, "4.00", set.House.NetProfit.StringFixed(2))
	assert.Equal(t, 1, set.House.GamesSold)
	assert.Equal(t, 1, set.House.GamesRemaining)
	assert.Equal(t, f.clock.Now(), set.House.ComputedAt)

	ana1, err := f.svc.SellerStatement(ctx, &session, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, "16.00", ana1.TotalDue.StringFixed(2))

	// Recomputing without new sales yields the same rows.
	again, err := f.svc.Recompute(ctx, &session)
	require.NoError(t, err)
	assert.Equal(t, set.House, again.House)
	assert.Equal(t, set.Sellers, again.Sellers)
}

func TestFinancialService_RecomputeSessionCountsEarlierSales(t *testing.T) {
	f := newFinancialFixture()
	ctx := context.Background()
	first, second := uuid.New(), uuid.New()
	ana := f.seller("Ana", "Lopez")

	catan := f.items.put(model.InventoryItem{SellerID: ana.ID, Name: "Catan", Price: dec("20"), Quantity: 1,
		StockStatus: model.StockAvailable, DepositFeeType: model.FeeFixed})
	f.items.put(model.InventoryItem{SellerID: ana.ID, Name: "Azul", Price: dec("30"), Quantity: 1,
		StockStatus: model.StockAvailable, DepositFeeType: model.FeeFixed})
	f.sell(catan, first)

	set, err := f.svc.Recompute(ctx, &second)
	require.NoError(t, err)
	require.Len(t, set.Sellers, 1)
	assert.Equal(t, 0, set.Sellers[0].GamesSold)
	assert.Equal(t, 1, set.Sellers[0].GamesRemaining)
	assert.Equal(t, 1, set.House.GamesRemaining)
	assert.Equal(t, "0.00", set.House.TotalEarnings.StringFixed(2))

	// Not persisted for the first session: computed on the fly.
	st, err := f.svc.SellerStatement(ctx, &first, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, st.GamesSold)
	assert.Equal(t, 1, st.GamesRemaining)
}

func TestFinancialService_RecomputeBusy(t *testing.T) {
	f := newFinancialFixture()
	f.locker.held["lock:statements:"+model.ScopeAll] = true

	_, err := f.svc.Recompute(context.Background(), nil)
	assert.ErrorIs(t, err, ErrRecomputeInProgress)
	assert.Zero(t, f.statements.replaces)
}

func TestFinancialService_RecomputeWithoutLocker(t *testing.T) {
	f := newFinancialFixture()
	svc := NewFinancialService(f.txs, f.items, f.statements, f.users, nil, dec("0.5"), f.clock.Now)

	set, err := svc.Recompute(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, set.Sellers)
	assert.Equal(t, model.ScopeAll, set.House.Scope)
}

func TestFinancialService_GetComputesOnFirstAccess(t *testing.T) {
	f := newFinancialFixture()
	ctx := context.Background()

	_, err := f.svc.Get(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, f.statements.replaces)

	_, err = f.svc.Get(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, f.statements.replaces, "second read uses the stored rows")
}

func TestFinancialService_SellerStatementNotPersisted(t *testing.T) {
	f := newFinancialFixture()
	ana := f.seller("Ana", "Lopez")
	item := f.items.put(model.InventoryItem{SellerID: ana.ID, Price: dec("10"), Quantity: 1,
		StockStatus: model.StockAvailable, DepositFeeType: model.FeeFixed})
	f.sell(item, uuid.New())

	st, err := f.svc.SellerStatement(context.Background(), nil, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, st.GamesSold)
	assert.Zero(t, f.statements.replaces)
}

func TestFinancialService_ExportXLSX(t *testing.T) {
	f := newFinancialFixture()
	ana := f.seller("Ana", "Lopez")
	item := f.items.put(model.InventoryItem{SellerID: ana.ID, Price: dec("10"), Quantity: 1,
		StockStatus: model.StockAvailable, DepositFeeType: model.FeeFixed})
	f.sell(item, uuid.New())

	var buf bytes.Buffer
	require.NoError(t, f.svc.ExportXLSX(context.Background(), nil, &buf))
	// xlsx files are zip archives.
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("PK")))
}

func TestWriteStatementReport_Golden(t *testing.T) {
	house := model.HouseStatement{
		Scope:                model.ScopeAll,
		CommissionsCollected: dec("3.5"),
		DepositFeesCollected: dec("2.5"),
		GamesRemaining:       3,
		GamesSold:            3,
		TotalDue:             dec("29"),
		TotalEarnings:        dec("35"),
		Cash:                 dec("14.5"),
		NetProfit:            dec("6"),
		ComputedAt:           time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC),
	}
	rows := []infra.SellerRow{
		{Name: "Ana Lopez", Statement: model.SellerStatement{
			CommissionPaid: dec("2"), DepositFeesPaid: dec("2"), GamesSold: 1, GamesRemaining: 3,
			TotalEarnings: dec("20"), TotalDue: dec("16"),
		}},
		{Name: "Ben Ortiz", Statement: model.SellerStatement{
			CommissionPaid: dec("1.5"), DepositFeesPaid: dec("0.5"), GamesSold: 2,
			TotalEarnings: dec("15"), TotalDue: dec("13"),
		}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteStatementReport(&buf, house, rows))

	g := goldie.New(t)
	g.Assert(t, "statement_report", buf.Bytes())
}

func TestFinancialService_WriteReportSortsByName(t *testing.T) {
	f := newFinancialFixture()
	zed := f.seller("Zed", "Young")
	amy := f.seller("Amy", "Baker")
	f.items.put(model.InventoryItem{SellerID: zed.ID, Price: dec("10"), Quantity: 1, StockStatus: model.StockAvailable, DepositFeeType: model.FeeFixed})
	f.items.put(model.InventoryItem{SellerID: amy.ID, Price: dec("10"), Quantity: 1, StockStatus: model.StockAvailable, DepositFeeType: model.FeeFixed})

	var buf bytes.Buffer
	require.NoError(t, f.svc.WriteReport(context.Background(), nil, &buf))
	out := buf.String()
	assert.Less(t, bytes.Index([]byte(out), []byte("Amy Baker")), bytes.Index([]byte(out), []byte("Zed Young")))
}
