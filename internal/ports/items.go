package ports

import (
	"context"

	"github.com/jsamuelsen/go-history-context/internal/domain"
)

// ItemRepository stores items and records an event for every change.
// Implementations annotate each event with the history context carried by ctx.
type ItemRepository interface {
	// Get returns domain.ErrNotFound if the item does not exist.
	Get(ctx context.Context, id string) (*domain.Item, error)

	// Save creates or replaces the item. item.Version must equal the stored
	// version (0 for a new item), otherwise domain.ErrConflict is returned.
	// On success the version is incremented and the recorded event returned.
	Save(ctx context.Context, item *domain.Item) (*domain.Event, error)

	// Delete removes the item and records a deleted event.
	Delete(ctx context.Context, id string) (*domain.Event, error)

	// Events lists the events of one item, oldest first.
	Events(ctx context.Context, itemID string) ([]domain.Event, error)
}
