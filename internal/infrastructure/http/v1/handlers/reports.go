package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"stockflow/internal/domain/reports"
	"stockflow/internal/infrastructure/http/v1/dto"
)

// ReportsService is what the reports handler needs. reports.Service implements it.
type ReportsService interface {
	GetInvoiceStats(ctx context.Context, filter reports.InvoiceStatsFilter) (*reports.InvoiceStats, error)
	GetStockSummary(ctx context.Context) (*reports.StockSummary, error)
}

// ReportsHandler handles HTTP requests for reports.
type ReportsHandler struct {
	*BaseHandler
	service ReportsService
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(base *BaseHandler, service ReportsService) *ReportsHandler {
	return &ReportsHandler{
		BaseHandler: base,
		service:     service,
	}
}

// GetInvoiceStats handles GET /reports/invoice-stats
func (h *ReportsHandler) GetInvoiceStats(c *gin.Context) {
	var q dto.InvoiceStatsQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	stats, err := h.service.GetInvoiceStats(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromInvoiceStats(stats))
}

// GetStockSummary handles GET /reports/stock-summary
func (h *ReportsHandler) GetStockSummary(c *gin.Context) {
	summary, err := h.service.GetStockSummary(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromStockSummary(summary))
}
