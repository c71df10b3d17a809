// Package repository provides storage adapters for items.
//
// Every change is recorded as a domain.Event stamped with the history context
// carried by the caller's context, so an event answers "who changed this and
// through which request".
package repository

import (
	"context"
	"log/slog"
	"maps"
	"sync"
	"time"

	appctx "github.com/jsamuelsen/go-history-context/internal/app/context"
	"github.com/jsamuelsen/go-history-context/internal/domain"
	"github.com/jsamuelsen/go-history-context/internal/platform/logging"
)

const entityItem = "item"

// Memory is an in-memory ItemRepository. It is safe for concurrent use.
type Memory struct {
	mu     sync.RWMutex
	items  map[string]domain.Item
	events map[string][]domain.Event
	seq    int64
	closed bool
	now    func() time.Time
}

// Option configures a Memory repository.
type Option func(*Memory)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Memory) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMemory creates an empty repository.
func NewMemory(opts ...Option) *Memory {
	m := &Memory{
		items:  make(map[string]domain.Item),
		events: make(map[string][]domain.Event),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns a copy of the stored item.
func (m *Memory) Get(ctx context.Context, id string) (*domain.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, errClosed()
	}

	item, ok := m.items[id]
	if !ok {
		return nil, domain.NewNotFoundError(entityItem, id)
	}
	return &item, nil
}

// Save creates or replaces item using optimistic concurrency on Version.
// On success item.Version and item.UpdatedAt are updated in place.
func (m *Memory) Save(ctx context.Context, item *domain.Item) (*domain.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := item.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, errClosed()
	}

	kind := domain.EventCreated
	stored, exists := m.items[item.ID]
	switch {
	case exists && stored.Version != item.Version:
		return nil, domain.NewConflictError(entityItem, item.ID, item.Version, stored.Version)
	case !exists && item.Version != 0:
		return nil, domain.NewConflictError(entityItem, item.ID, item.Version, 0)
	case exists:
		kind = domain.EventUpdated
	}

	now := m.now()
	item.Version++
	item.UpdatedAt = now
	m.items[item.ID] = *item

	ev := m.record(ctx, item.ID, kind, item.Version, now)
	return &ev, nil
}

// Delete removes the item and records a deleted event.
func (m *Memory) Delete(ctx context.Context, id string) (*domain.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, errClosed()
	}

	stored, ok := m.items[id]
	if !ok {
		return nil, domain.NewNotFoundError(entityItem, id)
	}
	delete(m.items, id)

	ev := m.record(ctx, id, domain.EventDeleted, stored.Version, m.now())
	return &ev, nil
}

// Events lists the events of one item, oldest first. Events survive deletion.
func (m *Memory) Events(ctx context.Context, itemID string) ([]domain.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, errClosed()
	}

	stored, ok := m.events[itemID]
	if !ok {
		return nil, domain.NewNotFoundError(entityItem, itemID)
	}

	out := make([]domain.Event, len(stored))
	for i, ev := range stored {
		ev.Context = maps.Clone(ev.Context)
		out[i] = ev
	}
	return out, nil
}

// Name implements ports.HealthChecker.
func (m *Memory) Name() string {
	return "items"
}

// Check implements ports.HealthChecker.
func (m *Memory) Check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return errClosed()
	}
	return nil
}

// Close makes every later call fail with domain.ErrUnavailable.
func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// record appends an event. Callers hold the write lock.
func (m *Memory) record(ctx context.Context, id string, kind domain.EventKind, version int, at time.Time) domain.Event {
	m.seq++

	ev := domain.Event{
		Seq:        m.seq,
		ItemID:     id,
		Kind:       kind,
		Version:    version,
		Context:    appctx.Effective(ctx),
		OccurredAt: at,
	}
	if cid, ok := appctx.ID(ctx); ok {
		ev.ContextID = cid.String()
	}

	m.events[id] = append(m.events[id], ev)

	logging.FromContext(ctx).DebugContext(ctx, "item event recorded",
		slog.String("item_id", id),
		slog.String("kind", string(kind)),
		slog.Int64("seq", ev.Seq),
	)

	out := ev
	out.Context = maps.Clone(ev.Context)
	return out
}

func errClosed() error {
	return domain.NewUnavailableError("items", "repository closed")
}
