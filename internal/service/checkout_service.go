package service

import (
	"context"
	"errors"
	"strings"
	"time"

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

var (
	ErrEmptyBasket     = errors.New("basket is empty")
	ErrSessionMismatch = errors.New("session is not the open session")
)

// Reasons an entry can fail during checkout.
const (
	FailNotFound          = "not_found"
	FailInsufficientStock = "insufficient_stock"
	FailUnavailable       = "unavailable"
	FailStockConflict     = "stock_conflict"
	FailError             = "error"
)

// SessionGuard is the part of the session gate checkout depends on.
type SessionGuard interface {
	IsOpen() bool
	CurrentSessionID() (uuid.UUID, bool)
}

// SoldItem is a basket entry that produced a Transaction.
type SoldItem struct {
	ItemID        uuid.UUID
	TransactionID uuid.UUID
	SellerID      uuid.UUID
	Name          string
	Price         decimal.Decimal
}

// FailedItem is a basket entry that was skipped.
type FailedItem struct {
	ItemID uuid.UUID
	Name   string
	Reason string
}

// CheckoutResult reports every basket entry as either succeeded or failed.
// Receipt is nil when nothing was sold or the receipt write failed.
type CheckoutResult struct {
	CheckoutID    uuid.UUID
	SessionID     uuid.UUID
	Succeeded     []SoldItem
	Failed        []FailedItem
	Receipt       *model.Receipt
	ReceiptError  string
	BasketCleared bool
}

type CheckoutService interface {
	// Checkout sells the owner's stored basket and clears it.
	Checkout(ctx context.Context, owner, buyerEmail string) (*CheckoutResult, error)
	// CheckoutEntries sells the given entries within sessionID. Each entry is
	// committed on its own; a failed entry never rolls back another.
	CheckoutEntries(ctx context.Context, buyerEmail string, entries []model.BasketEntry, sessionID uuid.UUID) (*CheckoutResult, error)
}

type checkoutService struct {
	gate         SessionGuard
	baskets      repository.BasketStore
	inventory    repository.InventoryRepository
	transactions repository.TransactionRepository
	movements    repository.StockMovementRepository
	receipts     repository.ReceiptRepository
	jobs         JobQueue
	now          Clock
}

func NewCheckoutService(
	gate SessionGuard,
	baskets repository.BasketStore,
	inventory repository.InventoryRepository,
	transactions repository.TransactionRepository,
	movements repository.StockMovementRepository,
	receipts repository.ReceiptRepository,
	jobs JobQueue,
	now Clock,
) CheckoutService {
	if now == nil {
		now = time.Now
	}
	return &checkoutService{
		gate:         gate,
		baskets:      baskets,
		inventory:    inventory,
		transactions: transactions,
		movements:    movements,
		receipts:     receipts,
		jobs:         jobs,
		now:          now,
	}
}

// ── Checkout ──────────────────────────────────────────────────────────────────

func (s *checkoutService) Checkout(ctx context.Context, owner, buyerEmail string) (*CheckoutResult, error) {
	entries, err := s.baskets.Load(ctx, owner)
	if err != nil {
		return nil, err
	}
	sessionID, ok := s.gate.CurrentSessionID()
	if !ok {
		metrics.CheckoutsTotal.WithLabelValues("rejected").Inc()
		return nil, ErrSessionClosed
	}

	result, err := s.CheckoutEntries(ctx, buyerEmail, entries, sessionID)
	if err != nil {
		return nil, err
	}

	// Only the entries this checkout processed; anything added meanwhile stays.
	ids := make([]uuid.UUID, len(entries))
	for i, e := range entries {
		ids[i] = e.ItemID
	}
	if err := s.baskets.RemoveItems(ctx, owner, ids...); err != nil {
		log.Error().Err(err).Str("owner", owner).Msg("checkout: failed to clear basket")
	} else {
		result.BasketCleared = true
	}
	return result, nil
}

// ── CheckoutEntries ───────────────────────────────────────────────────────────
//   1. Reject an empty basket or a closed session before any write
//   2. Per entry: fetch, check stock, conditional decrement + Transaction in one tx
//   3. Write one Receipt over the sold entries
//   4. (async) receipt email and statement recompute

func (s *checkoutService) CheckoutEntries(ctx context.Context, buyerEmail string, entries []model.BasketEntry, sessionID uuid.UUID) (*CheckoutResult, error) {
	if len(entries) == 0 {
		metrics.CheckoutsTotal.WithLabelValues("rejected").Inc()
		return nil, ErrEmptyBasket
	}
	if !s.gate.IsOpen() {
		metrics.CheckoutsTotal.WithLabelValues("rejected").Inc()
		return nil, ErrSessionClosed
	}
	if current, ok := s.gate.CurrentSessionID(); !ok || current != sessionID {
		metrics.CheckoutsTotal.WithLabelValues("rejected").Inc()
		return nil, ErrSessionMismatch
	}

	ctx, span := tracer.Start(ctx, "checkout", trace.WithAttributes(
		attribute.String("session_id", sessionID.String()),
		attribute.Int("entries", len(entries)),
	))
	defer span.End()

	buyerID := strings.TrimSpace(buyerEmail)
	if buyerID == "" {
		buyerID = model.AnonymousBuyer
	}

	result := &CheckoutResult{CheckoutID: uuid.New(), SessionID: sessionID}
	var lines []model.ReceiptLine
	total := decimal.Zero

	for _, entry := range entries {
		sold, failed := s.sellEntry(ctx, result.CheckoutID, buyerID, sessionID, entry)
		if failed != nil {
			metrics.CheckoutItemsTotal.WithLabelValues(failed.Reason).Inc()
			result.Failed = append(result.Failed, *failed)
			continue
		}
		metrics.CheckoutItemsTotal.WithLabelValues("sold").Inc()
		result.Succeeded = append(result.Succeeded, *sold)
		lines = append(lines, model.ReceiptLine{
			ID:    sold.ItemID.String(),
			Name:  sold.Name,
			Price: sold.Price.StringFixed(2),
		})
		total = total.Add(sold.Price)
	}

	metrics.CheckoutsTotal.WithLabelValues("completed").Inc()
	span.SetAttributes(attribute.Int("sold", len(result.Succeeded)), attribute.Int("failed", len(result.Failed)))
	if len(result.Succeeded) == 0 {
		log.Warn().Str("checkout_id", result.CheckoutID.String()).Int("failed", len(result.Failed)).
			Msg("checkout: nothing sold, no receipt written")
		return result, nil
	}

	receipt := &model.Receipt{
		CheckoutID:     result.CheckoutID,
		Email:          buyerID,
		SessionID:      sessionID,
		ItemsPurchased: lines,
		Total:          total,
		SaleDate:       s.now(),
	}
	if err := s.receipts.Create(ctx, receipt); err != nil {
		// Transactions are already committed and stay committed.
		log.Error().Err(err).Str("checkout_id", result.CheckoutID.String()).Msg("checkout: failed to write receipt")
		result.ReceiptError = "receipt could not be written"
	} else {
		result.Receipt = receipt
	}

	s.enqueueFollowUps(ctx, result, buyerEmail)

	log.Info().
		Str("checkout_id", result.CheckoutID.String()).
		Str("session_id", sessionID.String()).
		Int("sold", len(result.Succeeded)).
		Int("failed", len(result.Failed)).
		Str("total", total.StringFixed(2)).
		Msg("checkout completed")
	return result, nil
}

// sellEntry returns exactly one of sold or failed.
func (s *checkoutService) sellEntry(ctx context.Context, checkoutID uuid.UUID, buyerID string, sessionID uuid.UUID, entry model.BasketEntry) (*SoldItem, *FailedItem) {
	fail := func(reason string) *FailedItem {
		return &FailedItem{ItemID: entry.ItemID, Name: entry.Name, Reason: reason}
	}

	item, err := s.inventory.FindByID(ctx, entry.ItemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn().Str("item_id", entry.ItemID.String()).Msg("checkout: item not found, skipping")
			return nil, fail(FailNotFound)
		}
		log.Error().Err(err).Str("item_id", entry.ItemID.String()).Msg("checkout: item lookup failed")
		return nil, fail(FailError)
	}
	if item.Quantity <= 0 {
		log.Warn().Str("item_id", item.ID.String()).Msg("checkout: insufficient stock, skipping")
		return nil, fail(FailInsufficientStock)
	}
	if item.StockStatus != model.StockAvailable {
		log.Warn().Str("item_id", item.ID.String()).Str("status", item.StockStatus).Msg("checkout: item not for sale, skipping")
		return nil, fail(FailUnavailable)
	}

	saleDate := s.now()
	t := &model.Transaction{
		CheckoutID:           checkoutID,
		BuyerID:              buyerID,
		SellerID:             item.SellerID,
		ItemID:               item.ID,
		SessionID:            sessionID,
		SalePrice:            item.Price,
		CommissionPercentage: item.CommissionPercentage,
		DepositFee:           item.DepositFee,
		DepositFeeType:       item.DepositFeeType,
		SaleDate:             saleDate,
	}

	txErr := runTx(ctx, s.inventory.DB(), func(tx *gorm.DB) error {
		if err := s.inventory.DecrementQuantity(tx, item.ID, item.Quantity); err != nil {
			return err
		}
		if err := s.transactions.CreateTx(tx, t); err != nil {
			return err
		}
		ref := checkoutID
		return s.movements.CreateTx(tx, &model.StockMovement{
			ItemID:      item.ID,
			Kind:        model.MovementSale,
			QuantityOld: item.Quantity,
			QuantityNew: item.Quantity - 1,
			ReferenceID: &ref,
		})
	})
	if txErr != nil {
		if errors.Is(txErr, repository.ErrStockConflict) {
			metrics.StockConflicts.Inc()
			log.Warn().Str("item_id", item.ID.String()).Msg("checkout: stock changed concurrently, skipping")
			return nil, fail(FailStockConflict)
		}
		log.Error().Err(txErr).Str("item_id", item.ID.String()).Msg("checkout: sale write failed")
		return nil, fail(FailError)
	}

	return &SoldItem{
		ItemID:        item.ID,
		TransactionID: t.ID,
		SellerID:      item.SellerID,
		Name:          item.Name,
		Price:         item.Price,
	}, nil
}

func (s *checkoutService) enqueueFollowUps(ctx context.Context, result *CheckoutResult, buyerEmail string) {
	if s.jobs == nil {
		return
	}
	if result.Receipt != nil && strings.TrimSpace(buyerEmail) != "" {
		if err := s.jobs.EnqueueReceiptEmail(ctx, result.Receipt.ID); err != nil {
			log.Error().Err(err).Str("receipt_id", result.Receipt.ID.String()).Msg("checkout: failed to enqueue receipt email")
		}
	}
	sessionID := result.SessionID
	if err := s.jobs.EnqueueStatementRecompute(ctx, &sessionID); err != nil {
		log.Error().Err(err).Msg("checkout: failed to enqueue statement recompute")
	}
	if err := s.jobs.EnqueueStatementRecompute(ctx, nil); err != nil {
		log.Error().Err(err).Msg("checkout: failed to enqueue statement recompute")
	}
}
