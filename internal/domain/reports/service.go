package reports

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/id"
	"stockflow/internal/core/tx"
	"stockflow/internal/core/types"
	"stockflow/internal/domain/catalogs/article"
	"stockflow/internal/domain/documents/invoice"
)

// maxAlerts caps the alert list of the stock summary.
const maxAlerts = 100

// Service provides report generation operations.
// Each report reads inside one read-only transaction.
type Service struct {
	repo              Repository
	invoices          InvoiceSource
	txManager         tx.ReadOnlyManager
	lowStockThreshold int64
}

// NewService creates a new reports service.
func NewService(repo Repository, invoices InvoiceSource, txManager tx.ReadOnlyManager, lowStockThreshold int64) *Service {
	if lowStockThreshold <= 0 {
		lowStockThreshold = article.DefaultLowStockThreshold.Int64()
	}
	return &Service{repo: repo, invoices: invoices, txManager: txManager, lowStockThreshold: lowStockThreshold}
}

// GetInvoiceStats computes billing statistics over the invoices matching filter.
func (s *Service) GetInvoiceStats(ctx context.Context, filter InvoiceStatsFilter) (*InvoiceStats, error) {
	if filter.FromDate != nil && filter.ToDate != nil && filter.FromDate.After(*filter.ToDate) {
		return nil, apperror.NewFieldValidation("fromDate", "fromDate must be before toDate")
	}

	var selected []*invoice.Invoice
	err := s.txManager.ReadOnly(ctx, func(ctx context.Context) error {
		var err error
		selected, err = s.invoices.ListDetailed(ctx, filter.detail())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("load invoices: %w", err)
	}

	stats := ComputeInvoiceStats(selected)
	return &stats, nil
}

// GetStockSummary aggregates stock and lists the articles needing attention.
func (s *Service) GetStockSummary(ctx context.Context) (*StockSummary, error) {
	var (
		totals StockTotals
		alerts []StockAlert
	)
	err := s.txManager.ReadOnly(ctx, func(ctx context.Context) error {
		var err error
		if totals, err = s.repo.GetStockTotals(ctx, s.lowStockThreshold); err != nil {
			return fmt.Errorf("get stock totals: %w", err)
		}
		if alerts, err = s.repo.ListStockAlerts(ctx, s.lowStockThreshold, maxAlerts); err != nil {
			return fmt.Errorf("list stock alerts: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	threshold := types.Quantity(s.lowStockThreshold)
	for i := range alerts {
		alerts[i].Level = article.LevelOf(alerts[i].Total(), threshold)
	}

	return &StockSummary{
		StockTotals:       totals,
		TotalUnits:        totals.UnitsInStore + totals.UnitsInDepot,
		LowStockThreshold: s.lowStockThreshold,
		Alerts:            alerts,
		GeneratedAt:       time.Now().UTC(),
	}, nil
}

func (f InvoiceStatsFilter) detail() invoice.DetailFilter {
	return invoice.DetailFilter{
		ClientID:    f.ClientID,
		CreatedFrom: f.FromDate,
		CreatedTo:   f.ToDate,
	}
}

// ComputeInvoiceStats derives the statistics from fully loaded invoices.
// Outstanding and client debts only count UNPAID invoices; PaidTotal sums the
// totals of PAID ones, whatever their payments say.
func ComputeInvoiceStats(invoices []*invoice.Invoice) InvoiceStats {
	stats := InvoiceStats{
		TotalBilled: types.Zero(),
		PaidTotal:   types.Zero(),
		Outstanding: types.Zero(),
		Collected:   types.Zero(),
	}
	debts := make(map[id.ID]*ClientDebt)

	for _, inv := range invoices {
		b := invoice.ComputeBalance(inv)
		stats.InvoiceCount++
		stats.TotalBilled = types.AddMoney(stats.TotalBilled, b.Total)
		stats.Collected = types.AddMoney(stats.Collected, b.Paid)

		if inv.Status == invoice.StatusPaid {
			stats.PaidCount++
			stats.PaidTotal = types.AddMoney(stats.PaidTotal, b.Total)
			continue
		}

		stats.UnpaidCount++
		stats.Outstanding = types.AddMoney(stats.Outstanding, b.Remaining)

		if inv.ClientID == nil || !b.Remaining.IsPositive() {
			continue
		}
		debt, ok := debts[*inv.ClientID]
		if !ok {
			debt = &ClientDebt{ClientID: *inv.ClientID, Outstanding: types.Zero()}
			if inv.Client != nil {
				debt.ClientName = inv.Client.Name
			}
			debts[*inv.ClientID] = debt
		}
		debt.InvoiceCount++
		debt.Outstanding = types.AddMoney(debt.Outstanding, b.Remaining)
	}

	stats.AverageTotal = types.Zero()
	if stats.InvoiceCount > 0 {
		stats.AverageTotal = types.RoundMoney(stats.TotalBilled.Div(decimal.NewFromInt(int64(stats.InvoiceCount))))
	}

	stats.ClientDebts = make([]ClientDebt, 0, len(debts))
	for _, d := range debts {
		stats.ClientDebts = append(stats.ClientDebts, *d)
	}
	sort.Slice(stats.ClientDebts, func(i, j int) bool {
		a, b := stats.ClientDebts[i], stats.ClientDebts[j]
		if !a.Outstanding.Equal(b.Outstanding) {
			return a.Outstanding.GreaterThan(b.Outstanding)
		}
		return a.ClientName < b.ClientName
	})

	return stats
}
