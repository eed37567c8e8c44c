package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"fastclick/internal/model"
	"fastclick/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var (
	ErrSessionClosed        = errors.New("no session is open")
	ErrSessionAlreadyOpen   = errors.New("a session is already open")
	ErrInvalidSessionWindow = errors.New("session end must be in the future")
	ErrEventNameRequired    = errors.New("event name is required")
)

// GateState is the state of the session gate.
type GateState int

const (
	GateUnknown GateState = iota // not loaded yet
	GateOpen
	GateClosed
)

func (s GateState) String() string {
	switch s {
	case GateOpen:
		return "open"
	case GateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Clock returns the current time. Tests inject a fixed clock.
type Clock func() time.Time

// GateSnapshot is a read-only view of the gate, published to subscribers.
type GateSnapshot struct {
	State     GateState
	SessionID *uuid.UUID
	Event     string
	EndsAt    *time.Time
	Remaining time.Duration
}

// SessionGate decides whether sales and deposits may proceed. One value is
// built in the composition root and injected into every service that writes
// inventory or transactions.
//
// State machine: Unknown -> Open | Closed on Load; Open -> Closed on explicit
// Close or when Tick observes now >= end; Closed -> Open on Open.
type SessionGate struct {
	repo repository.SessionRepository
	now  Clock

	mu      sync.RWMutex
	state   GateState
	current *model.Session

	subMu       sync.Mutex
	subscribers []func(GateSnapshot)
}

func NewSessionGate(repo repository.SessionRepository, now Clock) *SessionGate {
	if now == nil {
		now = time.Now
	}
	return &SessionGate{repo: repo, now: now, state: GateUnknown}
}

// ── Load ──────────────────────────────────────────────────────────────────────

// Load queries the open session. Called at startup and periodically so that
// sessions opened by another replica become visible.
func (g *SessionGate) Load(ctx context.Context) error {
	s, err := g.repo.FindOpen(ctx)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("load open session: %w", err)
	}

	g.mu.Lock()
	prev := g.state
	if s == nil {
		g.state = GateClosed
		g.current = nil
	} else {
		g.state = GateOpen
		g.current = s
	}
	g.mu.Unlock()

	if s != nil && !g.now().Before(s.EndsAt) {
		return g.expire(ctx)
	}
	if prev != g.State() {
		g.publish()
	}
	return nil
}

// ── Queries ───────────────────────────────────────────────────────────────────

func (g *SessionGate) State() GateState {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// IsOpen reports whether a session is open and its end has not passed. The
// wall clock is checked on every call, not only on ticks.
func (g *SessionGate) IsOpen() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state == GateOpen && g.current != nil && g.now().Before(g.current.EndsAt)
}

func (g *SessionGate) CurrentEventName() (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.state != GateOpen || g.current == nil {
		return "", false
	}
	return g.current.Event, true
}

func (g *SessionGate) CurrentSessionID() (uuid.UUID, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.state != GateOpen || g.current == nil {
		return uuid.Nil, false
	}
	return g.current.ID, true
}

// TimeRemaining is zero once the end has passed, and absent when closed.
func (g *SessionGate) TimeRemaining() (time.Duration, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.state != GateOpen || g.current == nil {
		return 0, false
	}
	d := g.current.EndsAt.Sub(g.now())
	if d < 0 {
		d = 0
	}
	return d, true
}

func (g *SessionGate) Snapshot() GateSnapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()
	snap := GateSnapshot{State: g.state}
	if g.state == GateOpen && g.current != nil {
		id := g.current.ID
		end := g.current.EndsAt
		snap.SessionID = &id
		snap.Event = g.current.Event
		snap.EndsAt = &end
		if d := end.Sub(g.now()); d > 0 {
			snap.Remaining = d
		}
	}
	return snap
}

// ── Transitions ───────────────────────────────────────────────────────────────

// Open creates a new session. At most one session may be open; the database
// index rejects a concurrent second open from another replica.
func (g *SessionGate) Open(ctx context.Context, event string, endsAt time.Time, openedBy *uuid.UUID) (*model.Session, error) {
	event = strings.TrimSpace(event)
	if event == "" {
		return nil, ErrEventNameRequired
	}
	now := g.now()
	if !endsAt.After(now) {
		return nil, ErrInvalidSessionWindow
	}

	// Expire a stale session first so it does not block the new one.
	if err := g.Tick(ctx); err != nil {
		return nil, err
	}
	if g.IsOpen() {
		return nil, ErrSessionAlreadyOpen
	}

	s := &model.Session{
		Event:    event,
		Status:   model.SessionOpen,
		StartsAt: now,
		EndsAt:   endsAt,
		OpenedBy: openedBy,
	}
	if err := g.repo.Create(ctx, s); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrSessionAlreadyOpen
		}
		return nil, fmt.Errorf("create session: %w", err)
	}

	g.mu.Lock()
	g.state = GateOpen
	g.current = s
	g.mu.Unlock()

	log.Info().Str("session_id", s.ID.String()).Str("event", s.Event).Time("ends_at", s.EndsAt).Msg("session opened")
	g.publish()
	return s, nil
}

// Close ends the open session immediately.
func (g *SessionGate) Close(ctx context.Context) error {
	g.mu.RLock()
	open := g.state == GateOpen && g.current != nil
	g.mu.RUnlock()
	if !open {
		return ErrSessionClosed
	}
	return g.expire(ctx)
}

// Tick closes the session once its end has passed.
func (g *SessionGate) Tick(ctx context.Context) error {
	g.mu.RLock()
	expired := g.state == GateOpen && g.current != nil && !g.now().Before(g.current.EndsAt)
	g.mu.RUnlock()
	if !expired {
		return nil
	}
	return g.expire(ctx)
}

func (g *SessionGate) expire(ctx context.Context) error {
	g.mu.RLock()
	s := g.current
	open := g.state == GateOpen && s != nil
	g.mu.RUnlock()
	if !open {
		return nil
	}

	// The store round-trip runs unlocked so readers never wait on the
	// database. Close is conditional; losing the race to another closer is fine.
	closed, err := g.repo.Close(ctx, s.ID, g.now())
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}

	g.mu.Lock()
	if g.current == nil || g.current.ID != s.ID {
		// A reload or another expire moved the gate on meanwhile.
		g.mu.Unlock()
		return nil
	}
	g.state = GateClosed
	g.current = nil
	g.mu.Unlock()

	log.Info().Str("session_id", s.ID.String()).Bool("written", closed).Msg("session closed")
	g.publish()
	return nil
}

// ── Run loop ──────────────────────────────────────────────────────────────────

// Run ticks every tick interval until ctx is cancelled, re-reading the
// sessions table every refresh interval.
func (g *SessionGate) Run(ctx context.Context, tick, refresh time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	lastRefresh := g.now()

	log.Info().Dur("tick", tick).Dur("refresh", refresh).Msg("session_gate: started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("session_gate: shutting down")
			return
		case <-ticker.C:
			if refresh > 0 && g.now().Sub(lastRefresh) >= refresh {
				lastRefresh = g.now()
				if err := g.Load(ctx); err != nil {
					log.Error().Err(err).Msg("session_gate: refresh failed")
				}
			}
			if err := g.Tick(ctx); err != nil {
				log.Error().Err(err).Msg("session_gate: tick failed")
			}
			if g.State() == GateOpen {
				g.publish()
			}
		}
	}
}

// Subscribe registers fn to receive a snapshot on every transition and on
// every tick while open.
func (g *SessionGate) Subscribe(fn func(GateSnapshot)) {
	g.subMu.Lock()
	defer g.subMu.Unlock()
	g.subscribers = append(g.subscribers, fn)
}

func (g *SessionGate) publish() {
	snap := g.Snapshot()
	g.subMu.Lock()
	subs := append([]func(GateSnapshot){}, g.subscribers...)
	g.subMu.Unlock()
	for _, fn := range subs {
		fn(snap)
	}
}

// FormatRemaining renders a countdown as "1h 2m 3s".
func FormatRemaining(d time.Duration) string {
	if d <= 0 {
		return "Session has ended."
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%dh %dm %ds", total/3600, (total/60)%60, total%60)
}
