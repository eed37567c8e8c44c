package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"fastclick/internal/infra"
	"fastclick/internal/metrics"
	"fastclick/internal/model"
	"fastclick/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

var ErrRecomputeInProgress = errors.New("statement recompute already running")

const recomputeLockTTL = 2 * time.Minute

var hundred = decimal.NewFromInt(100)

// ── Pure computation ──────────────────────────────────────────────────────────

// ComputeSellerStatement derives one seller's statement from the transaction
// log and the current inventory snapshot. When sessionID is set only that
// session's transactions count toward sales and money; games remaining always
// subtracts every sale, so it means units not yet sold. Output depends only on
// the inputs.
func ComputeSellerStatement(txs []model.Transaction, inventory []model.InventoryItem, sellerID uuid.UUID, sessionID *uuid.UUID) model.SellerStatement {
	items := make(map[uuid.UUID]*model.InventoryItem, len(inventory))
	owned := 0
	for i := range inventory {
		items[inventory[i].ID] = &inventory[i]
		if inventory[i].SellerID == sellerID {
			owned++
		}
	}

	earnings := decimal.Zero
	commission := decimal.Zero
	fees := decimal.Zero
	sold, soldEver := 0, 0
	for _, t := range txs {
		if t.SellerID != sellerID {
			continue
		}
		soldEver++
		if sessionID != nil && t.SessionID != *sessionID {
			continue
		}
		sold++
		earnings = earnings.Add(t.SalePrice)
		commission = commission.Add(t.SalePrice.Mul(t.CommissionPercentage).Div(hundred))
		if item, ok := items[t.ItemID]; ok {
			fees = fees.Add(item.DepositFeeFor(t.SalePrice))
		} else {
			fees = fees.Add(model.DepositFeeAmount(t.DepositFeeType, t.DepositFee, t.SalePrice))
		}
	}

	earnings = earnings.Round(2)
	commission = commission.Round(2)
	fees = fees.Round(2)
	return model.SellerStatement{
		Scope:           model.ScopeFor(sessionID),
		SellerID:        sellerID,
		CommissionPaid:  commission,
		DepositFeesPaid: fees,
		GamesSold:       sold,
		GamesRemaining:  owned - soldEver,
		TotalEarnings:   earnings,
		TotalDue:        earnings.Sub(commission).Sub(fees),
	}
}

// ComputeHouseStatement sums seller statements field by field and derives
// cash (totalDue x cashRatio) and net profit (earnings - due).
func ComputeHouseStatement(scope string, sellers []model.SellerStatement, cashRatio decimal.Decimal) model.HouseStatement {
	h := model.HouseStatement{
		Scope:                scope,
		CommissionsCollected: decimal.Zero,
		DepositFeesCollected: decimal.Zero,
		TotalDue:             decimal.Zero,
		TotalEarnings:        decimal.Zero,
	}
	for _, s := range sellers {
		h.CommissionsCollected = h.CommissionsCollected.Add(s.CommissionPaid)
		h.DepositFeesCollected = h.DepositFeesCollected.Add(s.DepositFeesPaid)
		h.GamesRemaining += s.GamesRemaining
		h.GamesSold += s.GamesSold
		h.TotalDue = h.TotalDue.Add(s.TotalDue)
		h.TotalEarnings = h.TotalEarnings.Add(s.TotalEarnings)
	}
	h.Cash = h.TotalDue.Mul(cashRatio).Round(2)
	h.NetProfit = h.TotalEarnings.Sub(h.TotalDue)
	return h
}

// sellerIDs collects every seller with inventory or sales, sorted.
func sellerIDs(txs []model.Transaction, inventory []model.InventoryItem) []uuid.UUID {
	seen := map[uuid.UUID]bool{}
	var ids []uuid.UUID
	add := func(id uuid.UUID) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, it := range inventory {
		add(it.SellerID)
	}
	for _, t := range txs {
		add(t.SellerID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// ── FinancialService ──────────────────────────────────────────────────────────

// StatementSet is one scope's house statement with its seller rows.
type StatementSet struct {
	House   model.HouseStatement
	Sellers []model.SellerStatement
}

// Locker serialises recomputes across replicas.
type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, err error)
}

type FinancialService interface {
	// Recompute rebuilds and overwrites the statements of a scope (nil = all
	// sessions).
	Recompute(ctx context.Context, sessionID *uuid.UUID) (*StatementSet, error)
	Get(ctx context.Context, sessionID *uuid.UUID) (*StatementSet, error)
	SellerStatement(ctx context.Context, sessionID *uuid.UUID, sellerID uuid.UUID) (*model.SellerStatement, error)
	ExportXLSX(ctx context.Context, sessionID *uuid.UUID, w io.Writer) error
	WriteReport(ctx context.Context, sessionID *uuid.UUID, w io.Writer) error
}

type financialService struct {
	transactions repository.TransactionRepository
	inventory    repository.InventoryRepository
	statements   repository.StatementRepository
	users        repository.UserRepository
	locker       Locker
	cashRatio    decimal.Decimal
	now          Clock
}

func NewFinancialService(
	transactions repository.TransactionRepository,
	inventory repository.InventoryRepository,
	statements repository.StatementRepository,
	users repository.UserRepository,
	locker Locker,
	cashRatio decimal.Decimal,
	now Clock,
) FinancialService {
	if now == nil {
		now = time.Now
	}
	return &financialService{
		transactions: transactions,
		inventory:    inventory,
		statements:   statements,
		users:        users,
		locker:       locker,
		cashRatio:    cashRatio,
		now:          now,
	}
}

func (s *financialService) Recompute(ctx context.Context, sessionID *uuid.UUID) (*StatementSet, error) {
	scope := model.ScopeFor(sessionID)
	start := time.Now()
	ctx, span := tracer.Start(ctx, "statements.recompute", trace.WithAttributes(attribute.String("scope", scope)))
	defer span.End()

	if s.locker != nil {
		release, err := s.locker.Obtain(ctx, "lock:statements:"+scope, recomputeLockTTL)
		if err != nil {
			if errors.Is(err, infra.ErrLockNotObtained) {
				return nil, ErrRecomputeInProgress
			}
			return nil, fmt.Errorf("obtain statement lock: %w", err)
		}
		defer func() {
			if err := release(context.Background()); err != nil {
				log.Warn().Err(err).Str("scope", scope).Msg("statements: failed to release lock")
			}
		}()
	}

	// The whole log: games remaining subtracts sales from every session.
	txs, err := s.transactions.List(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	inv, err := s.inventory.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("inventory snapshot: %w", err)
	}

	set := &StatementSet{}
	for _, id := range sellerIDs(txs, inv) {
		set.Sellers = append(set.Sellers, ComputeSellerStatement(txs, inv, id, sessionID))
	}
	set.House = ComputeHouseStatement(scope, set.Sellers, s.cashRatio)

	computedAt := s.now()
	for i := range set.Sellers {
		set.Sellers[i].ComputedAt = computedAt
	}
	set.House.ComputedAt = computedAt

	if err := s.statements.Replace(ctx, scope, set.Sellers, &set.House); err != nil {
		return nil, fmt.Errorf("persist statements: %w", err)
	}

	kind := "session"
	if sessionID == nil {
		kind = model.ScopeAll
	}
	metrics.StatementRecomputeDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	log.Info().Str("scope", scope).Int("sellers", len(set.Sellers)).Int("games_sold", set.House.GamesSold).
		Msg("statements recomputed")
	return set, nil
}

// Get returns the persisted statements, computing them on first access.
func (s *financialService) Get(ctx context.Context, sessionID *uuid.UUID) (*StatementSet, error) {
	scope := model.ScopeFor(sessionID)
	house, err := s.statements.FindHouse(ctx, scope)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.Recompute(ctx, sessionID)
		}
		return nil, err
	}
	sellers, err := s.statements.ListSellers(ctx, scope)
	if err != nil {
		return nil, err
	}
	return &StatementSet{House: *house, Sellers: sellers}, nil
}

func (s *financialService) SellerStatement(ctx context.Context, sessionID *uuid.UUID, sellerID uuid.UUID) (*model.SellerStatement, error) {
	st, err := s.statements.FindSeller(ctx, model.ScopeFor(sessionID), sellerID)
	if err == nil {
		return st, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	// Not persisted yet: compute without writing.
	txs, err := s.transactions.ListBySeller(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	inv, err := s.inventory.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	computed := ComputeSellerStatement(txs, inv, sellerID, sessionID)
	return &computed, nil
}

func (s *financialService) ExportXLSX(ctx context.Context, sessionID *uuid.UUID, w io.Writer) error {
	set, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	rows, err := s.reportRows(ctx, set)
	if err != nil {
		return err
	}
	return infra.WriteStatementsXLSX(w, set.House, rows)
}

func (s *financialService) WriteReport(ctx context.Context, sessionID *uuid.UUID, w io.Writer) error {
	set, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	rows, err := s.reportRows(ctx, set)
	if err != nil {
		return err
	}
	return WriteStatementReport(w, set.House, rows)
}

// reportRows attaches seller names to statements, sorted by name.
func (s *financialService) reportRows(ctx context.Context, set *StatementSet) ([]infra.SellerRow, error) {
	ids := make([]uuid.UUID, 0, len(set.Sellers))
	for _, st := range set.Sellers {
		ids = append(ids, st.SellerID)
	}
	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(users))
	for i := range users {
		names[users[i].ID] = users[i].FullName()
	}
	rows := make([]infra.SellerRow, 0, len(set.Sellers))
	for _, st := range set.Sellers {
		name := names[st.SellerID]
		if name == "" {
			name = st.SellerID.String()
		}
		rows = append(rows, infra.SellerRow{Name: name, Statement: st})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
	return rows, nil
}
