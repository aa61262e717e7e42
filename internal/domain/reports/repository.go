package reports

import (
	"context"

	"stockflow/internal/domain/documents/invoice"
)

// Repository defines report data access interface.
type Repository interface {
	// GetStockTotals aggregates article stock; levels use threshold.
	GetStockTotals(ctx context.Context, threshold int64) (StockTotals, error)

	// ListStockAlerts returns articles whose total is below threshold, lowest first.
	ListStockAlerts(ctx context.Context, threshold int64, limit int) ([]StockAlert, error)
}

// InvoiceSource loads invoices with everything ComputeBalance needs.
type InvoiceSource interface {
	ListDetailed(ctx context.Context, filter invoice.DetailFilter) ([]*invoice.Invoice, error)
}
