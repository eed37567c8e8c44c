package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"fastclick/internal/infra"
	"fastclick/internal/model"
	"fastclick/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ── Clock ─────────────────────────────────────────────────────────────────────

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// ── Inventory ─────────────────────────────────────────────────────────────────

type stubInventoryRepo struct {
	items map[uuid.UUID]*model.InventoryItem
	// beforeDecrement runs inside DecrementQuantity, simulating a concurrent
	// writer between read and write.
	beforeDecrement func(id uuid.UUID)
}

func newStubInventoryRepo() *stubInventoryRepo {
	return &stubInventoryRepo{items: make(map[uuid.UUID]*model.InventoryItem)}
}

func (r *stubInventoryRepo) put(item model.InventoryItem) *model.InventoryItem {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	r.items[item.ID] = &item
	return &item
}

func (r *stubInventoryRepo) Create(_ context.Context, item *model.InventoryItem) error {
	return r.CreateTx(nil, item)
}

func (r *stubInventoryRepo) CreateTx(_ *gorm.DB, item *model.InventoryItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	cp := *item
	r.items[item.ID] = &cp
	return nil
}

func (r *stubInventoryRepo) FindByID(_ context.Context, id uuid.UUID) (*model.InventoryItem, error) {
	item, ok := r.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *item
	return &cp, nil
}

func (r *stubInventoryRepo) FindAvailableByName(_ context.Context, name string) ([]model.InventoryItem, error) {
	var out []model.InventoryItem
	for _, it := range r.items {
		if it.Name == name && it.StockStatus == model.StockAvailable {
			out = append(out, *it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price.LessThan(out[j].Price) })
	return out, nil
}

func (r *stubInventoryRepo) List(_ context.Context, f repository.InventoryFilter) ([]model.InventoryItem, int64, error) {
	var out []model.InventoryItem
	for _, it := range r.items {
		if f.Name != "" && !strings.Contains(strings.ToLower(it.Name), strings.ToLower(f.Name)) {
			continue
		}
		if f.Status != "" && it.StockStatus != f.Status {
			continue
		}
		if f.SellerID != nil && it.SellerID != *f.SellerID {
			continue
		}
		out = append(out, *it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price.LessThan(out[j].Price) })
	return out, int64(len(out)), nil
}

func (r *stubInventoryRepo) ListBySeller(_ context.Context, sellerID uuid.UUID) ([]model.InventoryItem, error) {
	var out []model.InventoryItem
	for _, it := range r.items {
		if it.SellerID == sellerID {
			out = append(out, *it)
		}
	}
	return out, nil
}

func (r *stubInventoryRepo) Snapshot(_ context.Context) ([]model.InventoryItem, error) {
	out := make([]model.InventoryItem, 0, len(r.items))
	for _, it := range r.items {
		out = append(out, *it)
	}
	return out, nil
}

func (r *stubInventoryRepo) DecrementQuantity(_ *gorm.DB, id uuid.UUID, expected int) error {
	if r.beforeDecrement != nil {
		r.beforeDecrement(id)
	}
	item, ok := r.items[id]
	if !ok || item.Quantity != expected || item.Quantity <= 0 {
		return repository.ErrStockConflict
	}
	item.Quantity--
	if item.Quantity == 0 {
		item.StockStatus = model.StockSoldOut
	}
	return nil
}

func (r *stubInventoryRepo) MarkAvailable(_ *gorm.DB, id uuid.UUID) error {
	item, ok := r.items[id]
	if !ok || item.StockStatus != model.StockPending {
		return repository.ErrStockConflict
	}
	item.StockStatus = model.StockAvailable
	return nil
}

func (r *stubInventoryRepo) MarkReturned(_ *gorm.DB, id uuid.UUID) error {
	item, ok := r.items[id]
	if !ok || (item.StockStatus != model.StockPending && item.StockStatus != model.StockAvailable) {
		return repository.ErrStockConflict
	}
	item.StockStatus = model.StockReturned
	return nil
}

func (r *stubInventoryRepo) DB() *gorm.DB { return nil }

var _ repository.InventoryRepository = (*stubInventoryRepo)(nil)

// ── Transactions / movements / receipts ───────────────────────────────────────

type stubTransactionRepo struct {
	txs []model.Transaction
}

func (r *stubTransactionRepo) CreateTx(_ *gorm.DB, t *model.Transaction) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	r.txs = append(r.txs, *t)
	return nil
}

func (r *stubTransactionRepo) List(_ context.Context, sessionID *uuid.UUID) ([]model.Transaction, error) {
	var out []model.Transaction
	for _, t := range r.txs {
		if sessionID == nil || t.SessionID == *sessionID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *stubTransactionRepo) ListBySeller(_ context.Context, sellerID uuid.UUID) ([]model.Transaction, error) {
	var out []model.Transaction
	for _, t := range r.txs {
		if t.SellerID == sellerID {
			out = append(out, t)
		}
	}
	return out, nil
}

var _ repository.TransactionRepository = (*stubTransactionRepo)(nil)

type stubMovementRepo struct {
	moves []model.StockMovement
}

func (r *stubMovementRepo) CreateTx(_ *gorm.DB, m *model.StockMovement) error {
	r.moves = append(r.moves, *m)
	return nil
}

func (r *stubMovementRepo) ListByItem(_ context.Context, itemID uuid.UUID) ([]model.StockMovement, error) {
	var out []model.StockMovement
	for _, m := range r.moves {
		if m.ItemID == itemID {
			out = append(out, m)
		}
	}
	return out, nil
}

var _ repository.StockMovementRepository = (*stubMovementRepo)(nil)

type stubReceiptRepo struct {
	receipts  map[uuid.UUID]*model.Receipt
	createErr error
}

func newStubReceiptRepo() *stubReceiptRepo {
	return &stubReceiptRepo{receipts: make(map[uuid.UUID]*model.Receipt)}
}

func (r *stubReceiptRepo) Create(_ context.Context, rc *model.Receipt) error {
	if r.createErr != nil {
		return r.createErr
	}
	if rc.ID == uuid.Nil {
		rc.ID = uuid.New()
	}
	cp := *rc
	r.receipts[rc.ID] = &cp
	return nil
}

func (r *stubReceiptRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Receipt, error) {
	rc, ok := r.receipts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return rc, nil
}

func (r *stubReceiptRepo) ListByEmail(_ context.Context, email string) ([]model.Receipt, error) {
	var out []model.Receipt
	for _, rc := range r.receipts {
		if rc.Email == email {
			out = append(out, *rc)
		}
	}
	return out, nil
}

var _ repository.ReceiptRepository = (*stubReceiptRepo)(nil)

// ── Sessions ──────────────────────────────────────────────────────────────────

type stubSessionRepo struct {
	sessions []*model.Session
	// beforeClose runs at the start of Close, standing in for a slow store.
	beforeClose func()
}

func (r *stubSessionRepo) Create(_ context.Context, s *model.Session) error {
	for _, existing := range r.sessions {
		if existing.Status == model.SessionOpen {
			return gorm.ErrDuplicatedKey
		}
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	r.sessions = append(r.sessions, s)
	return nil
}

func (r *stubSessionRepo) FindOpen(_ context.Context) (*model.Session, error) {
	for _, s := range r.sessions {
		if s.Status == model.SessionOpen {
			cp := *s
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubSessionRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Session, error) {
	for _, s := range r.sessions {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubSessionRepo) List(_ context.Context, limit int) ([]model.Session, error) {
	var out []model.Session
	for i := len(r.sessions) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, *r.sessions[i])
	}
	return out, nil
}

func (r *stubSessionRepo) Close(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	if r.beforeClose != nil {
		r.beforeClose()
	}
	for _, s := range r.sessions {
		if s.ID == id && s.Status == model.SessionOpen {
			s.Status = model.SessionClosed
			s.ClosedAt = &at
			return true, nil
		}
	}
	return false, nil
}

var _ repository.SessionRepository = (*stubSessionRepo)(nil)

// ── Statements ────────────────────────────────────────────────────────────────

type stubStatementRepo struct {
	houses   map[string]model.HouseStatement
	sellers  map[string][]model.SellerStatement
	replaces int
}

func newStubStatementRepo() *stubStatementRepo {
	return &stubStatementRepo{
		houses:  make(map[string]model.HouseStatement),
		sellers: make(map[string][]model.SellerStatement),
	}
}

func (r *stubStatementRepo) Replace(_ context.Context, scope string, sellers []model.SellerStatement, house *model.HouseStatement) error {
	r.replaces++
	r.sellers[scope] = append([]model.SellerStatement(nil), sellers...)
	r.houses[scope] = *house
	return nil
}

func (r *stubStatementRepo) FindHouse(_ context.Context, scope string) (*model.HouseStatement, error) {
	h, ok := r.houses[scope]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &h, nil
}

func (r *stubStatementRepo) ListSellers(_ context.Context, scope string) ([]model.SellerStatement, error) {
	return r.sellers[scope], nil
}

func (r *stubStatementRepo) FindSeller(_ context.Context, scope string, sellerID uuid.UUID) (*model.SellerStatement, error) {
	for _, s := range r.sellers[scope] {
		if s.SellerID == sellerID {
			st := s
			return &st, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

var _ repository.StatementRepository = (*stubStatementRepo)(nil)

// ── Users ─────────────────────────────────────────────────────────────────────

type stubUserRepo struct {
	users map[string]*model.User
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*model.User)}
}

func (r *stubUserRepo) Create(_ context.Context, u *model.User) error {
	if _, ok := r.users[u.Email]; ok {
		return gorm.ErrDuplicatedKey
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	r.users[u.Email] = u
	return nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	u, ok := r.users[email]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubUserRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]model.User, error) {
	want := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []model.User
	for _, u := range r.users {
		if want[u.ID] {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *stubUserRepo) Update(_ context.Context, u *model.User) error {
	r.users[u.Email] = u
	return nil
}

func (r *stubUserRepo) ListByRole(_ context.Context, role string) ([]model.User, error) {
	var out []model.User
	for _, u := range r.users {
		if role == "" || u.Role == role {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

var _ repository.UserRepository = (*stubUserRepo)(nil)

// ── Basket store ──────────────────────────────────────────────────────────────

type stubBasketStore struct {
	baskets  map[string][]model.BasketEntry
	clearErr error
}

func newStubBasketStore() *stubBasketStore {
	return &stubBasketStore{baskets: make(map[string][]model.BasketEntry)}
}

func (s *stubBasketStore) Add(_ context.Context, owner string, entry model.BasketEntry) (bool, error) {
	for _, e := range s.baskets[owner] {
		if e.ItemID == entry.ItemID {
			return false, nil
		}
	}
	s.baskets[owner] = append(s.baskets[owner], entry)
	return true, nil
}

func (s *stubBasketStore) Remove(_ context.Context, owner string, itemID uuid.UUID) error {
	entries := s.baskets[owner]
	for i, e := range entries {
		if e.ItemID == itemID {
			s.baskets[owner] = append(entries[:i], entries[i+1:]...)
			break
		}
	}
	return nil
}

func (s *stubBasketStore) RemoveItems(ctx context.Context, owner string, itemIDs ...uuid.UUID) error {
	if s.clearErr != nil {
		return s.clearErr
	}
	for _, id := range itemIDs {
		_ = s.Remove(ctx, owner, id)
	}
	return nil
}

func (s *stubBasketStore) Clear(_ context.Context, owner string) error {
	if s.clearErr != nil {
		return s.clearErr
	}
	delete(s.baskets, owner)
	return nil
}

func (s *stubBasketStore) Load(_ context.Context, owner string) ([]model.BasketEntry, error) {
	return append([]model.BasketEntry(nil), s.baskets[owner]...), nil
}

var _ repository.BasketStore = (*stubBasketStore)(nil)

// ── Jobs / locks / gate ───────────────────────────────────────────────────────

type stubJobs struct {
	receiptEmails []uuid.UUID
	statements    []string
}

func (j *stubJobs) EnqueueReceiptEmail(_ context.Context, id uuid.UUID) error {
	j.receiptEmails = append(j.receiptEmails, id)
	return nil
}

func (j *stubJobs) EnqueueStatementRecompute(_ context.Context, sessionID *uuid.UUID) error {
	j.statements = append(j.statements, model.ScopeFor(sessionID))
	return nil
}

var _ JobQueue = (*stubJobs)(nil)

type stubLocker struct {
	held     map[string]bool
	obtained []string
}

func newStubLocker() *stubLocker { return &stubLocker{held: make(map[string]bool)} }

func (l *stubLocker) Obtain(_ context.Context, key string, _ time.Duration) (func(context.Context) error, error) {
	if l.held[key] {
		return nil, infra.ErrLockNotObtained
	}
	l.held[key] = true
	l.obtained = append(l.obtained, key)
	return func(context.Context) error {
		delete(l.held, key)
		return nil
	}, nil
}

var _ Locker = (*stubLocker)(nil)

// openGate returns a gate with an open session ending in one hour.
func openGate(clock *fakeClock) (*SessionGate, *stubSessionRepo) {
	repo := &stubSessionRepo{}
	gate := NewSessionGate(repo, clock.Now)
	if _, err := gate.Open(context.Background(), "Spring Fair", clock.Now().Add(time.Hour), nil); err != nil {
		panic(err)
	}
	return gate, repo
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var errBoom = errors.New("boom")
