package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/go-history-context/internal/adapters/http/dto"
	"github.com/jsamuelsen/go-history-context/internal/app"
	"github.com/jsamuelsen/go-history-context/internal/domain"
)

// ItemService is the application API the item handlers depend on.
type ItemService interface {
	UpsertItem(ctx context.Context, in app.UpsertInput) (*app.ItemChange, error)
	DeleteItem(ctx context.Context, id string) (*domain.Event, error)
	GetItem(ctx context.Context, id string) (*domain.Item, error)
	GetItemWithEvents(ctx context.Context, id string) (*domain.Item, []domain.Event, error)
	ListEvents(ctx context.Context, id string) ([]domain.Event, error)
	ImportItems(ctx context.Context, inputs []app.UpsertInput) (string, []app.ImportResult, error)
}

var _ ItemService = (*app.ItemService)(nil)

// ItemHandler handles item endpoints.
type ItemHandler struct {
	service ItemService
}

// NewItemHandler creates a new item handler.
func NewItemHandler(service ItemService) *ItemHandler {
	return &ItemHandler{service: service}
}

// PutItem handles PUT /api/v1/items/:id.
// Responds 201 when the item was created and 200 when it was replaced.
func (h *ItemHandler) PutItem(c *gin.Context) {
	var req dto.PutItemRequest
	if !bind(c, &req) {
		return
	}

	change, err := h.service.UpsertItem(c.Request.Context(), app.UpsertInput{
		ID:              c.Param("id"),
		Name:            req.Name,
		Quantity:        req.Quantity,
		ExpectedVersion: req.Version,
	})
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	status := http.StatusOK
	if change.Event != nil && change.Event.Kind == domain.EventCreated {
		status = http.StatusCreated
	}

	c.JSON(status, dto.ItemChangeResponse{
		Item:  dto.NewItemResponse(change.Item),
		Event: dto.NewEventResponse(change.Event),
	})
}

// GetItem handles GET /api/v1/items/:id.
// With ?include=events the item's history is loaded alongside it.
func (h *ItemHandler) GetItem(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	if c.Query("include") != "events" {
		item, err := h.service.GetItem(ctx, id)
		if err != nil {
			dto.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.NewItemResponse(item))
		return
	}

	item, events, err := h.service.GetItemWithEvents(ctx, id)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ItemWithEventsResponse{
		Item:   dto.NewItemResponse(item),
		Events: dto.NewEventResponses(events),
	})
}

// DeleteItem handles DELETE /api/v1/items/:id.
func (h *ItemHandler) DeleteItem(c *gin.Context) {
	ev, err := h.service.DeleteItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ItemChangeResponse{Event: dto.NewEventResponse(ev)})
}

// ListEvents handles GET /api/v1/items/:id/events with cursor pagination.
func (h *ItemHandler) ListEvents(c *gin.Context) {
	var page dto.PaginationRequest
	if err := dto.BindQueryAndValidate(c, &page); err != nil {
		respondBindError(c, err)
		return
	}

	after, err := page.After()
	if err != nil {
		dto.RespondWithCode(c, dto.ErrorCodeBadRequest, err.Error())
		return
	}

	events, err := h.service.ListEvents(c.Request.Context(), c.Param("id"))
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.Paginate(dto.NewEventResponses(events), after, page.GetLimit(),
		func(ev dto.EventResponse) int64 { return ev.Seq }))
}

// ImportItems handles POST /api/v1/items/import.
// The response is 200 even when some entries failed; each result says why.
func (h *ItemHandler) ImportItems(c *gin.Context) {
	var req dto.ImportRequest
	if !bind(c, &req) {
		return
	}

	inputs := make([]app.UpsertInput, len(req.Items))
	for i, it := range req.Items {
		inputs[i] = app.UpsertInput{ID: it.ID, Name: it.Name, Quantity: it.Quantity, ExpectedVersion: it.Version}
	}

	batch, results, err := h.service.ImportItems(c.Request.Context(), inputs)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	resp := dto.ImportResponse{Batch: batch, Results: make([]dto.ImportResultResponse, len(results))}
	for i, r := range results {
		out := dto.ImportResultResponse{ID: r.ID}
		if r.Err != nil {
			_, errResp := dto.MapError(r.Err)
			out.Error = &errResp.Error
			resp.Failed++
		} else {
			out.Version = r.Change.Item.Version
			if r.Change.Event != nil {
				out.Seq = r.Change.Event.Seq
			}
			resp.Succeeded++
		}
		resp.Results[i] = out
	}

	c.JSON(http.StatusOK, resp)
}

// RegisterItemRoutes registers item routes on the given router group.
func (h *ItemHandler) RegisterItemRoutes(rg *gin.RouterGroup) {
	items := rg.Group("/items")
	items.POST("/import", h.ImportItems)
	items.PUT("/:id", h.PutItem)
	items.GET("/:id", h.GetItem)
	items.DELETE("/:id", h.DeleteItem)
	items.GET("/:id/events", h.ListEvents)
}

// bind decodes and validates the JSON body, writing a 400 on failure.
func bind(c *gin.Context, v any) bool {
	if err := dto.BindAndValidate(c, v); err != nil {
		respondBindError(c, err)
		return false
	}
	return true
}

func respondBindError(c *gin.Context, err error) {
	if errors.Is(err, dto.ErrValidation) {
		dto.RespondWithValidationErrors(c, dto.ValidationErrors(err))
		return
	}
	dto.RespondWithCode(c, dto.ErrorCodeBadRequest, "malformed request")
}
