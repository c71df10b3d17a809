package dto

import (
	"time"

	"github.com/jsamuelsen/go-history-context/internal/domain"
)

// MaxImportItems bounds one import request.
const MaxImportItems = 100

// PutItemRequest is the body of PUT /api/v1/items/:id.
// Version is the expected stored version; omit it to overwrite.
type PutItemRequest struct {
	Name     string `json:"name" validate:"required,notempty,max=200"`
	Quantity int    `json:"quantity" validate:"gte=0"`
	Version  *int   `json:"version,omitempty" validate:"omitempty,gte=0"`
}

// ImportItem is one entry of an import request.
type ImportItem struct {
	ID       string `json:"id" validate:"required,notempty,max=64"`
	Name     string `json:"name" validate:"required,notempty,max=200"`
	Quantity int    `json:"quantity" validate:"gte=0"`
	Version  *int   `json:"version,omitempty" validate:"omitempty,gte=0"`
}

// ImportRequest is the body of POST /api/v1/items/import.
type ImportRequest struct {
	Items []ImportItem `json:"items" validate:"required,min=1,max=100,dive"`
}

// ItemResponse is the HTTP representation of an item.
type ItemResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Quantity  int       `json:"quantity"`
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// EventResponse is the HTTP representation of an item event.
type EventResponse struct {
	Seq        int64          `json:"seq"`
	ItemID     string         `json:"itemId"`
	Kind       string         `json:"kind"`
	Version    int            `json:"version"`
	ContextID  string         `json:"contextId,omitempty"`
	Context    map[string]any `json:"context"`
	OccurredAt time.Time      `json:"occurredAt"`
}

// ItemChangeResponse is returned by state-changing item endpoints.
type ItemChangeResponse struct {
	Item  *ItemResponse  `json:"item,omitempty"`
	Event *EventResponse `json:"event"`
}

// ItemWithEventsResponse is an item together with its full history.
type ItemWithEventsResponse struct {
	Item   *ItemResponse   `json:"item"`
	Events []EventResponse `json:"events"`
}

// ImportResultResponse is the outcome of one imported item.
type ImportResultResponse struct {
	ID      string       `json:"id"`
	Version int          `json:"version,omitempty"`
	Seq     int64        `json:"seq,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`
}

// ImportResponse is the body returned by POST /api/v1/items/import.
type ImportResponse struct {
	Batch     string                 `json:"batch"`
	Succeeded int                    `json:"succeeded"`
	Failed    int                    `json:"failed"`
	Results   []ImportResultResponse `json:"results"`
}

// NewItemResponse converts a domain item.
func NewItemResponse(item *domain.Item) *ItemResponse {
	if item == nil {
		return nil
	}
	return &ItemResponse{
		ID:        item.ID,
		Name:      item.Name,
		Quantity:  item.Quantity,
		Version:   item.Version,
		UpdatedAt: item.UpdatedAt,
	}
}

// NewEventResponse converts a domain event. Context is never nil.
func NewEventResponse(ev *domain.Event) *EventResponse {
	if ev == nil {
		return nil
	}

	ctx := ev.Context
	if ctx == nil {
		ctx = map[string]any{}
	}

	return &EventResponse{
		Seq:        ev.Seq,
		ItemID:     ev.ItemID,
		Kind:       string(ev.Kind),
		Version:    ev.Version,
		ContextID:  ev.ContextID,
		Context:    ctx,
		OccurredAt: ev.OccurredAt,
	}
}

// NewEventResponses converts a list of domain events.
func NewEventResponses(events []domain.Event) []EventResponse {
	out := make([]EventResponse, len(events))
	for i := range events {
		out[i] = *NewEventResponse(&events[i])
	}
	return out
}
