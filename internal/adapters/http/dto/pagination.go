package dto

import (
	"encoding/base64"
	"encoding/json"
	"errors"
)

// DefaultLimit is the default number of entries per page.
const DefaultLimit = 20

// MaxLimit is the maximum allowed entries per page.
const MaxLimit = 100

// ErrInvalidCursor is returned when cursor decoding fails.
var ErrInvalidCursor = errors.New("invalid cursor")

// PaginationRequest represents pagination parameters from the query string.
type PaginationRequest struct {
	// Cursor is an opaque string from a previous response's NextCursor.
	Cursor string `form:"cursor"`

	// Limit is the maximum number of entries to return (1-100, default 20).
	Limit int `form:"limit" json:"limit" validate:"omitempty,gte=1,lte=100"`
}

// GetLimit returns the limit with defaults applied.
func (p *PaginationRequest) GetLimit() int {
	switch {
	case p.Limit <= 0:
		return DefaultLimit
	case p.Limit > MaxLimit:
		return MaxLimit
	default:
		return p.Limit
	}
}

// After returns the sequence number the page starts after, 0 for the first page.
func (p *PaginationRequest) After() (int64, error) {
	if p.Cursor == "" {
		return 0, nil
	}
	return DecodeCursor(p.Cursor)
}

// PaginatedResponse is a generic paginated response structure.
type PaginatedResponse[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"nextCursor,omitempty"`
	HasMore    bool   `json:"hasMore"`
}

// Paginate returns the page of items, ordered by seq, that follows after.
func Paginate[T any](items []T, after int64, limit int, seq func(T) int64) *PaginatedResponse[T] {
	if limit < 1 {
		limit = DefaultLimit
	}

	page := make([]T, 0, limit)
	hasMore := false

	for _, item := range items {
		if seq(item) <= after {
			continue
		}
		if len(page) == limit {
			hasMore = true
			break
		}
		page = append(page, item)
	}

	resp := &PaginatedResponse[T]{Items: page, HasMore: hasMore}
	if hasMore {
		resp.NextCursor = EncodeCursor(seq(page[len(page)-1]))
	}
	return resp
}

type cursorData struct {
	Seq int64 `json:"s"`
}

// EncodeCursor encodes a sequence number as an opaque cursor.
func EncodeCursor(seq int64) string {
	b, err := json.Marshal(cursorData{Seq: seq})
	if err != nil {
		return ""
	}
	return base64.URLEncoding.EncodeToString(b)
}

// DecodeCursor decodes a cursor produced by EncodeCursor.
func DecodeCursor(encoded string) (int64, error) {
	b, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return 0, ErrInvalidCursor
	}

	var data cursorData
	if err := json.Unmarshal(b, &data); err != nil || data.Seq < 0 {
		return 0, ErrInvalidCursor
	}
	return data.Seq, nil
}
