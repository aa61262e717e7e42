package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"stockflow/internal/core/id"
	"stockflow/internal/domain"
	"stockflow/internal/domain/documents/stock_movement"
	"stockflow/internal/infrastructure/http/v1/dto"
)

// StockMovementService is what the movement handler needs. stock_movement.Service implements it.
type StockMovementService interface {
	Create(ctx context.Context, m *stock_movement.StockMovement) error
	Update(ctx context.Context, m *stock_movement.StockMovement) error
	Delete(ctx context.Context, movementID id.ID) error
	GetByID(ctx context.Context, movementID id.ID) (*stock_movement.StockMovement, error)
	GetByCode(ctx context.Context, code string) (*stock_movement.StockMovement, error)
	List(ctx context.Context, filter stock_movement.ListFilter) (domain.ListResult[*stock_movement.StockMovement], error)
}

// StockMovementHandler handles HTTP requests for stock movements.
type StockMovementHandler struct {
	*BaseHandler
	service StockMovementService
}

// NewStockMovementHandler creates a new stock movement handler.
func NewStockMovementHandler(base *BaseHandler, service StockMovementService) *StockMovementHandler {
	return &StockMovementHandler{
		BaseHandler: base,
		service:     service,
	}
}

// List handles GET /stock-movements.
func (h *StockMovementHandler) List(c *gin.Context) {
	var q dto.StockMovementListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.NewListResponse(result, dto.FromStockMovement))
}

// Get handles GET /stock-movements/:id.
func (h *StockMovementHandler) Get(c *gin.Context) {
	movementID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	m, err := h.service.GetByID(c.Request.Context(), movementID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromStockMovement(m))
}

// GetByCode handles GET /stock-movements/by-code/:code.
func (h *StockMovementHandler) GetByCode(c *gin.Context) {
	m, err := h.service.GetByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromStockMovement(m))
}

// Create handles POST /stock-movements. Stock is updated in the same transaction.
func (h *StockMovementHandler) Create(c *gin.Context) {
	var req dto.CreateStockMovementRequest
	if !h.BindJSON(c, &req) {
		return
	}

	m, err := req.ToEntity()
	if err != nil {
		h.Error(c, err)
		return
	}
	if err := h.service.Create(c.Request.Context(), m); err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromStockMovement(m))
}

// Update handles PUT /stock-movements/:id.
func (h *StockMovementHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()

	movementID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateStockMovementRequest
	if !h.BindJSON(c, &req) {
		return
	}

	m, err := h.service.GetByID(ctx, movementID)
	if err != nil {
		h.Error(c, err)
		return
	}
	if err := req.ApplyTo(m); err != nil {
		h.Error(c, err)
		return
	}
	if err := h.service.Update(ctx, m); err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromStockMovement(m))
}

// Delete handles DELETE /stock-movements/:id. The movement's effect on stock is reverted.
func (h *StockMovementHandler) Delete(c *gin.Context) {
	movementID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), movementID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}
