package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/id"
	"stockflow/internal/domain"
	"stockflow/internal/infrastructure/storage/postgres"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// AuditHistory reads audit entries. *postgres.AuditService implements it.
type AuditHistory interface {
	GetEntityHistory(ctx context.Context, entityType string, entityID id.ID, limit int) ([]postgres.AuditEntry, error)
}

var auditedEntities = map[string]bool{
	domain.AggregateArticle:        true,
	domain.AggregateClient:         true,
	domain.AggregateStockMovement:  true,
	domain.AggregateInvoice:        true,
	domain.AggregatePendingArticle: true,
}

// AuditHandler serves the change history of an entity.
type AuditHandler struct {
	*BaseHandler
	history AuditHistory
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(base *BaseHandler, history AuditHistory) *AuditHandler {
	return &AuditHandler{BaseHandler: base, history: history}
}

// GetHistory handles GET /audit/:entityType/:id, newest first.
func (h *AuditHandler) GetHistory(c *gin.Context) {
	entityType := c.Param("entityType")
	if !auditedEntities[entityType] {
		h.Error(c, apperror.NewFieldValidation("entityType", "unknown entity type").
			WithDetail("value", entityType))
		return
	}

	entityID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	limit := h.ParseIntQuery(c, "limit", defaultHistoryLimit)
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	entries, err := h.history.GetEntityHistory(c.Request.Context(), entityType, entityID, limit)
	if err != nil {
		h.Error(c, err)
		return
	}
	if entries == nil {
		entries = []postgres.AuditEntry{}
	}

	h.OK(c, gin.H{"items": entries})
}
