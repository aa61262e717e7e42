// Package reports provides the invoice statistics and stock summary reports.
package reports

import (
	"time"

	"stockflow/internal/core/id"
	"stockflow/internal/core/types"
	"stockflow/internal/domain/catalogs/article"
)

// --- Invoice Statistics ---

// InvoiceStatsFilter narrows the invoices the statistics are computed over.
type InvoiceStatsFilter struct {
	// Period on invoice creation time, inclusive. Nil bounds are open.
	FromDate *time.Time
	ToDate   *time.Time

	ClientID *id.ID
}

// ClientDebt is the outstanding amount of one client over its UNPAID invoices.
type ClientDebt struct {
	ClientID     id.ID       `json:"clientId"`
	ClientName   string      `json:"clientName"`
	InvoiceCount int         `json:"invoiceCount"`
	Outstanding  types.Money `json:"outstanding"`
}

// InvoiceStats summarizes billing and settlement.
type InvoiceStats struct {
	InvoiceCount int `json:"invoiceCount"`
	PaidCount    int `json:"paidCount"`
	UnpaidCount  int `json:"unpaidCount"`

	// TotalBilled sums the totals of all invoices.
	TotalBilled types.Money `json:"totalBilled"`
	// PaidTotal sums the totals of PAID invoices.
	PaidTotal types.Money `json:"paidTotal"`
	// Outstanding sums the remaining amount of UNPAID invoices.
	Outstanding types.Money `json:"outstanding"`
	// Collected sums what was paid across all invoices.
	Collected types.Money `json:"collected"`

	AverageTotal types.Money `json:"averageTotal"`

	// ClientDebts lists clients with an outstanding amount, largest first.
	ClientDebts []ClientDebt `json:"clientDebts"`
}

// --- Stock Summary ---

// StockAlert is an article that is low or out of stock.
type StockAlert struct {
	ArticleID     id.ID              `db:"id" json:"articleId"`
	Name          string             `db:"name" json:"name"`
	QuantityStore types.Quantity     `db:"quantity_store" json:"quantityStore"`
	QuantityDepot types.Quantity     `db:"quantity_depot" json:"quantityDepot"`
	Level         article.StockLevel `db:"-" json:"level"`
}

// Total is store plus depot.
func (a StockAlert) Total() types.Quantity {
	return a.QuantityStore + a.QuantityDepot
}

// StockTotals are the aggregates computed by the database.
type StockTotals struct {
	ArticleCount    int64       `db:"article_count" json:"articleCount"`
	UnitsInStore    int64       `db:"units_store" json:"unitsInStore"`
	UnitsInDepot    int64       `db:"units_depot" json:"unitsInDepot"`
	LowStockCount   int64       `db:"low_stock_count" json:"lowStockCount"`
	OutOfStockCount int64       `db:"out_of_stock_count" json:"outOfStockCount"`
	Valuation       types.Money `db:"valuation" json:"valuation"`
}

// StockSummary is the inventory overview.
type StockSummary struct {
	StockTotals

	TotalUnits        int64        `json:"totalUnits"`
	LowStockThreshold int64        `json:"lowStockThreshold"`
	Alerts            []StockAlert `json:"alerts"`
	GeneratedAt       time.Time    `json:"generatedAt"`
}
