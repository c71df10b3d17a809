package domain

import (
	"strings"
	"time"
)

// MaxItemNameLength bounds Item.Name.
const MaxItemNameLength = 200

// Item is the entity whose changes are recorded as history events.
type Item struct {
	ID        string
	Name      string
	Quantity  int
	Version   int
	UpdatedAt time.Time
}

// Validate checks the business rules of an item.
func (i *Item) Validate() error {
	switch {
	case strings.TrimSpace(i.ID) == "":
		return NewValidationError("id", "cannot be empty")
	case strings.TrimSpace(i.Name) == "":
		return NewValidationError("name", "cannot be empty")
	case len(i.Name) > MaxItemNameLength:
		return NewValidationErrorWithValue("name", "too long", len(i.Name))
	case i.Quantity < 0:
		return NewValidationErrorWithValue("quantity", "cannot be negative", i.Quantity)
	}
	return nil
}

// EventKind names what happened to an item.
type EventKind string

// Event kinds.
const (
	EventCreated EventKind = "created"
	EventUpdated EventKind = "updated"
	EventDeleted EventKind = "deleted"
)

// Event is an audit record of one item change, annotated with the history
// context that was active when the change was stored.
type Event struct {
	Seq        int64
	ItemID     string
	Kind       EventKind
	Version    int
	ContextID  string
	Context    map[string]any
	OccurredAt time.Time
}

// User returns the acting user recorded on the event, or nil.
func (e *Event) User() any {
	return e.Context["user"]
}
