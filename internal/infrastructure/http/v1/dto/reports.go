package dto

import (
	"time"

	"stockflow/internal/domain/catalogs/article"
	"stockflow/internal/domain/reports"
)

// InvoiceStatsQuery narrows the invoice statistics.
type InvoiceStatsQuery struct {
	FromDate *time.Time `form:"fromDate" time_format:"2006-01-02"`
	ToDate   *time.Time `form:"toDate" time_format:"2006-01-02"`
	ClientID string     `form:"clientId" binding:"omitempty,uuid"`
}

// ToFilter converts the query. ToDate covers the whole day.
func (q InvoiceStatsQuery) ToFilter() (reports.InvoiceStatsFilter, error) {
	clientID, err := ParseOptionalID("clientId", &q.ClientID)
	if err != nil {
		return reports.InvoiceStatsFilter{}, err
	}
	f := reports.InvoiceStatsFilter{FromDate: q.FromDate, ClientID: clientID}
	if q.ToDate != nil {
		end := q.ToDate.Add(24*time.Hour - time.Nanosecond)
		f.ToDate = &end
	}
	return f, nil
}

// ClientDebtResponse is the outstanding amount of one client.
type ClientDebtResponse struct {
	ClientID     string `json:"clientId"`
	ClientName   string `json:"clientName"`
	InvoiceCount int    `json:"invoiceCount"`
	Outstanding  string `json:"outstanding"`
}

// InvoiceStatsResponse is the invoice statistics report.
type InvoiceStatsResponse struct {
	InvoiceCount int                  `json:"invoiceCount"`
	PaidCount    int                  `json:"paidCount"`
	UnpaidCount  int                  `json:"unpaidCount"`
	TotalBilled  string               `json:"totalBilled"`
	PaidTotal    string               `json:"paidTotal"`
	Outstanding  string               `json:"outstanding"`
	Collected    string               `json:"collected"`
	AverageTotal string               `json:"averageTotal"`
	ClientDebts  []ClientDebtResponse `json:"clientDebts"`
}

// FromInvoiceStats converts the statistics.
func FromInvoiceStats(s *reports.InvoiceStats) InvoiceStatsResponse {
	resp := InvoiceStatsResponse{
		InvoiceCount: s.InvoiceCount,
		PaidCount:    s.PaidCount,
		UnpaidCount:  s.UnpaidCount,
		TotalBilled:  Money(s.TotalBilled),
		PaidTotal:    Money(s.PaidTotal),
		Outstanding:  Money(s.Outstanding),
		Collected:    Money(s.Collected),
		AverageTotal: Money(s.AverageTotal),
		ClientDebts:  make([]ClientDebtResponse, len(s.ClientDebts)),
	}
	for i, d := range s.ClientDebts {
		resp.ClientDebts[i] = ClientDebtResponse{
			ClientID:     d.ClientID.String(),
			ClientName:   d.ClientName,
			InvoiceCount: d.InvoiceCount,
			Outstanding:  Money(d.Outstanding),
		}
	}
	return resp
}

// StockAlertResponse is an article needing attention.
type StockAlertResponse struct {
	ArticleID     string             `json:"articleId"`
	Name          string             `json:"name"`
	QuantityStore int64              `json:"quantityStore"`
	QuantityDepot int64              `json:"quantityDepot"`
	TotalStock    int64              `json:"totalStock"`
	Level         article.StockLevel `json:"level"`
}

// StockSummaryResponse is the inventory overview.
type StockSummaryResponse struct {
	ArticleCount      int64                `json:"articleCount"`
	UnitsInStore      int64                `json:"unitsInStore"`
	UnitsInDepot      int64                `json:"unitsInDepot"`
	TotalUnits        int64                `json:"totalUnits"`
	LowStockCount     int64                `json:"lowStockCount"`
	OutOfStockCount   int64                `json:"outOfStockCount"`
	Valuation         string               `json:"valuation"`
	LowStockThreshold int64                `json:"lowStockThreshold"`
	Alerts            []StockAlertResponse `json:"alerts"`
	GeneratedAt       time.Time            `json:"generatedAt"`
}

// FromStockSummary converts the stock summary.
func FromStockSummary(s *reports.StockSummary) StockSummaryResponse {
	resp := StockSummaryResponse{
		ArticleCount:      s.ArticleCount,
		UnitsInStore:      s.UnitsInStore,
		UnitsInDepot:      s.UnitsInDepot,
		TotalUnits:        s.TotalUnits,
		LowStockCount:     s.LowStockCount,
		OutOfStockCount:   s.OutOfStockCount,
		Valuation:         Money(s.Valuation),
		LowStockThreshold: s.LowStockThreshold,
		Alerts:            make([]StockAlertResponse, len(s.Alerts)),
		GeneratedAt:       s.GeneratedAt,
	}
	for i, a := range s.Alerts {
		resp.Alerts[i] = StockAlertResponse{
			ArticleID:     a.ArticleID.String(),
			Name:          a.Name,
			QuantityStore: a.QuantityStore.Int64(),
			QuantityDepot: a.QuantityDepot.Int64(),
			TotalStock:    a.Total().Int64(),
			Level:         a.Level,
		}
	}
	return resp
}
