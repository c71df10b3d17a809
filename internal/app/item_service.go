// Package app contains application services that orchestrate use cases.
// Services depend on ports, not adapters, and run every state change as an
// Operation so that stored events carry the operation name next to the
// request's history context.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	appctx "github.com/jsamuelsen/go-history-context/internal/app/context"
	"github.com/jsamuelsen/go-history-context/internal/domain"
	"github.com/jsamuelsen/go-history-context/internal/platform/logging"
	"github.com/jsamuelsen/go-history-context/internal/ports"
)

// Operation names recorded in the history context.
const (
	OpUpsertItem  = "upsert_item"
	OpDeleteItem  = "delete_item"
	OpImportItems = "import_items"
)

// HistoryKeyBatch is the history context key holding an import batch id.
const HistoryKeyBatch = "batch"

// DefaultImportConcurrency bounds the workers of ImportItems.
const DefaultImportConcurrency = 4

// ItemService implements the item use cases.
type ItemService struct {
	repo              ports.ItemRepository
	importConcurrency int
}

// ItemServiceConfig holds optional configuration for the service.
type ItemServiceConfig struct {
	ImportConcurrency int
}

// NewItemService creates an item service backed by repo.
func NewItemService(repo ports.ItemRepository, cfg *ItemServiceConfig) *ItemService {
	svc := &ItemService{repo: repo, importConcurrency: DefaultImportConcurrency}
	if cfg != nil && cfg.ImportConcurrency > 0 {
		svc.importConcurrency = cfg.ImportConcurrency
	}
	return svc
}

// UpsertInput describes the desired state of an item.
// A nil ExpectedVersion writes against the version read just before saving;
// a concurrent writer in between still yields domain.ErrConflict.
type UpsertInput struct {
	ID              string
	Name            string
	Quantity        int
	ExpectedVersion *int
}

// ItemChange is the result of a state change.
type ItemChange struct {
	Item  *domain.Item
	Event *domain.Event
}

// UpsertItem creates or replaces an item.
func (s *ItemService) UpsertItem(ctx context.Context, in UpsertInput) (*ItemChange, error) {
	op := Operation[UpsertInput, *domain.Item, *ItemChange]{
		Name: OpUpsertItem,
		Validate: func(_ context.Context, in UpsertInput) error {
			if in.ExpectedVersion != nil && *in.ExpectedVersion < 0 {
				return domain.NewValidationErrorWithValue("version", "cannot be negative", *in.ExpectedVersion)
			}
			return (&domain.Item{ID: in.ID, Name: in.Name, Quantity: in.Quantity}).Validate()
		},
		Perform: func(ctx context.Context, in UpsertInput) (*domain.Item, error) {
			next := &domain.Item{ID: in.ID, Name: in.Name, Quantity: in.Quantity}
			if in.ExpectedVersion != nil {
				next.Version = *in.ExpectedVersion
				return next, nil
			}

			current, err := s.repo.Get(ctx, in.ID)
			switch {
			case domain.IsNotFound(err):
			case err != nil:
				return nil, fmt.Errorf("loading item: %w", err)
			default:
				next.Version = current.Version
			}
			return next, nil
		},
		Archive: func(ctx context.Context, _ UpsertInput, next *domain.Item) (*ItemChange, error) {
			ev, err := s.repo.Save(ctx, next)
			if err != nil {
				return nil, fmt.Errorf("saving item: %w", err)
			}
			return &ItemChange{Item: next, Event: ev}, nil
		},
	}

	return Execute(ctx, op, in)
}

// DeleteItem removes an item.
func (s *ItemService) DeleteItem(ctx context.Context, id string) (*domain.Event, error) {
	op := Operation[string, struct{}, *domain.Event]{
		Name: OpDeleteItem,
		Validate: func(_ context.Context, id string) error {
			if id == "" {
				return domain.NewValidationError("id", "cannot be empty")
			}
			return nil
		},
		Archive: func(ctx context.Context, id string, _ struct{}) (*domain.Event, error) {
			ev, err := s.repo.Delete(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("deleting item: %w", err)
			}
			return ev, nil
		},
	}

	return Execute(ctx, op, id)
}

// GetItem retrieves an item by ID.
func (s *ItemService) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	item, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// ListEvents returns the change history of an item, oldest first.
func (s *ItemService) ListEvents(ctx context.Context, id string) ([]domain.Event, error) {
	events, err := s.repo.Events(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	return events, nil
}

// GetItemWithEvents loads an item and its history concurrently.
func (s *ItemService) GetItemWithEvents(ctx context.Context, id string) (*domain.Item, []domain.Event, error) {
	return Parallel2(ctx,
		func(ctx context.Context) (*domain.Item, error) { return s.GetItem(ctx, id) },
		func(ctx context.Context) ([]domain.Event, error) { return s.ListEvents(ctx, id) },
	)
}

// ImportResult is the outcome of one imported item.
type ImportResult struct {
	ID     string
	Change *ItemChange
	Err    error
}

// ImportItems upserts every input concurrently and reports each outcome in
// input order. All events of one import share a batch id.
func (s *ItemService) ImportItems(ctx context.Context, inputs []UpsertInput) (string, []ImportResult, error) {
	batch := uuid.NewString()
	results := make([]ImportResult, len(inputs))

	err := appctx.With(ctx, appctx.Entries{HistoryKeyOperation: OpImportItems, HistoryKeyBatch: batch}, func(ctx context.Context) error {
		outcomes := ParallelPartialLimit(ctx, s.importConcurrency, inputs, s.UpsertItem)
		for i, o := range outcomes {
			results[i] = ImportResult{ID: inputs[i].ID, Change: o.Value, Err: o.Err}
		}
		return nil
	})
	if err != nil {
		return "", nil, err
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	logging.FromContext(ctx).InfoContext(ctx, "items imported",
		slog.String("batch", batch),
		slog.Int("total", len(results)),
		slog.Int("failed", failed),
	)

	return batch, results, nil
}
