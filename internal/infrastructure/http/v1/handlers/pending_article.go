package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"stockflow/internal/core/id"
	"stockflow/internal/domain"
	"stockflow/internal/domain/documents/pending_article"
	"stockflow/internal/infrastructure/http/v1/dto"
)

// PendingArticleService is what the pending article handler needs.
// pending_article.Service implements it.
type PendingArticleService interface {
	Create(ctx context.Context, p *pending_article.PendingArticle) error
	Update(ctx context.Context, p *pending_article.PendingArticle) error
	Delete(ctx context.Context, pendingID id.ID) error
	GetByID(ctx context.Context, pendingID id.ID) (*pending_article.PendingArticle, error)
	List(ctx context.Context, filter pending_article.ListFilter) (domain.ListResult[*pending_article.PendingArticle], error)
	Receive(ctx context.Context, pendingID id.ID, receipt pending_article.Receipt) (*pending_article.ReceiveResult, error)
}

// PendingArticleHandler handles HTTP requests for pending articles.
type PendingArticleHandler struct {
	*BaseHandler
	service PendingArticleService
}

// NewPendingArticleHandler creates a new pending article handler.
func NewPendingArticleHandler(base *BaseHandler, service PendingArticleService) *PendingArticleHandler {
	return &PendingArticleHandler{
		BaseHandler: base,
		service:     service,
	}
}

// List handles GET /pending-articles.
func (h *PendingArticleHandler) List(c *gin.Context) {
	var q dto.PendingArticleListQuery
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

	h.OK(c, dto.NewListResponse(result, dto.FromPendingArticle))
}

// Get handles GET /pending-articles/:id.
func (h *PendingArticleHandler) Get(c *gin.Context) {
	pendingID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	p, err := h.service.GetByID(c.Request.Context(), pendingID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromPendingArticle(p))
}

// Create handles POST /pending-articles.
func (h *PendingArticleHandler) Create(c *gin.Context) {
	var req dto.CreatePendingArticleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p, err := req.ToEntity()
	if err != nil {
		h.Error(c, err)
		return
	}
	if err := h.service.Create(c.Request.Context(), p); err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromPendingArticle(p))
}

// Update handles PUT /pending-articles/:id.
func (h *PendingArticleHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()

	pendingID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdatePendingArticleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p, err := h.service.GetByID(ctx, pendingID)
	if err != nil {
		h.Error(c, err)
		return
	}
	if err := req.ApplyTo(p); err != nil {
		h.Error(c, err)
		return
	}
	if err := h.service.Update(ctx, p); err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromPendingArticle(p))
}

// Delete handles DELETE /pending-articles/:id.
func (h *PendingArticleHandler) Delete(c *gin.Context) {
	pendingID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), pendingID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// Receive handles POST /pending-articles/:id/receive. The pending article and
// the IN movement are written in one transaction.
func (h *PendingArticleHandler) Receive(c *gin.Context) {
	pendingID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.ReceivePendingArticleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.service.Receive(c.Request.Context(), pendingID, req.ToReceipt())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromReceiveResult(result))
}
