package reports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/id"
	"stockflow/internal/core/tx"
	"stockflow/internal/core/types"
	"stockflow/internal/domain/catalogs/article"
	"stockflow/internal/domain/documents/invoice"
)

func billed(number string, total string, status invoice.Status, clientID *id.ID, payments ...string) *invoice.Invoice {
	inv := invoice.NewInvoice(number)
	inv.Status = status
	inv.ClientID = clientID
	inv.Items = []invoice.Item{{Name: "line", UnitPrice: types.MustMoney(total), Quantity: 1}}
	for _, p := range payments {
		inv.Payments = append(inv.Payments, invoice.Payment{Amount: types.MustMoney(p)})
	}
	return inv
}

func TestComputeInvoiceStats(t *testing.T) {
	acme, bolt := id.New(), id.New()

	invoices := []*invoice.Invoice{
		billed("1", "30.00", invoice.StatusUnpaid, &acme, "12.50"),
		billed("2", "10.00", invoice.StatusUnpaid, &acme),
		billed("3", "50.00", invoice.StatusPaid, &bolt, "20.00"),
		billed("4", "5.00", invoice.StatusUnpaid, &bolt, "5.00"),
		billed("5", "8.00", invoice.StatusUnpaid, nil),
	}
	invoices[0].Client = &invoice.ClientSummary{ID: acme, Name: "ACME"}

	stats := ComputeInvoiceStats(invoices)

	assert.Equal(t, 5, stats.InvoiceCount)
	assert.Equal(t, 1, stats.PaidCount)
	assert.Equal(t, 4, stats.UnpaidCount)
	assert.Equal(t, "103.00", types.FormatMoney(stats.TotalBilled))
	assert.Equal(t, "50.00", types.FormatMoney(stats.PaidTotal))
	assert.Equal(t, "35.50", types.FormatMoney(stats.Outstanding))
	assert.Equal(t, "37.50", types.FormatMoney(stats.Collected))
	assert.Equal(t, "20.60", types.FormatMoney(stats.AverageTotal))

	require.Len(t, stats.ClientDebts, 1, "settled and anonymous invoices carry no client debt")
	assert.Equal(t, acme, stats.ClientDebts[0].ClientID)
	assert.Equal(t, "ACME", stats.ClientDebts[0].ClientName)
	assert.Equal(t, 2, stats.ClientDebts[0].InvoiceCount)
	assert.Equal(t, "27.50", types.FormatMoney(stats.ClientDebts[0].Outstanding))
}

func TestComputeInvoiceStats_Empty(t *testing.T) {
	stats := ComputeInvoiceStats(nil)
	assert.Zero(t, stats.InvoiceCount)
	assert.True(t, stats.AverageTotal.IsZero())
	assert.NotNil(t, stats.ClientDebts)
}

type stubInvoices struct {
	invoices []*invoice.Invoice
	filter   invoice.DetailFilter
}

func (s *stubInvoices) ListDetailed(_ context.Context, filter invoice.DetailFilter) ([]*invoice.Invoice, error) {
	s.filter = filter
	return s.invoices, nil
}

type readOnlyTx struct {
	tx.Passthrough
	readOnly int
}

func (r *readOnlyTx) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	r.readOnly++
	return fn(ctx)
}

type stubRepo struct {
	totals    StockTotals
	alerts    []StockAlert
	threshold int64
}

func (r *stubRepo) GetStockTotals(_ context.Context, threshold int64) (StockTotals, error) {
	r.threshold = threshold
	return r.totals, nil
}

func (r *stubRepo) ListStockAlerts(context.Context, int64, int) ([]StockAlert, error) {
	return r.alerts, nil
}

func TestService_GetInvoiceStats_Filters(t *testing.T) {
	acme := id.New()
	recent := billed("new", "40.00", invoice.StatusUnpaid, &acme)
	source := &stubInvoices{invoices: []*invoice.Invoice{recent}}
	txm := &readOnlyTx{}

	svc := NewService(&stubRepo{}, source, txm, 0)
	from := time.Now().Add(-time.Hour)

	stats, err := svc.GetInvoiceStats(context.Background(), InvoiceStatsFilter{FromDate: &from, ClientID: &acme})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.InvoiceCount)
	assert.Equal(t, "40.00", types.FormatMoney(stats.Outstanding))

	assert.Equal(t, invoice.DetailFilter{ClientID: &acme, CreatedFrom: &from}, source.filter)
	assert.Equal(t, 1, txm.readOnly)

	to := from.Add(-time.Hour)
	_, err = svc.GetInvoiceStats(context.Background(), InvoiceStatsFilter{FromDate: &from, ToDate: &to})
	assert.True(t, apperror.IsValidation(err))
	assert.Equal(t, 1, txm.readOnly)
}

func TestService_GetStockSummary(t *testing.T) {
	repo := &stubRepo{
		totals: StockTotals{ArticleCount: 3, UnitsInStore: 5, UnitsInDepot: 3, LowStockCount: 1, OutOfStockCount: 1, Valuation: types.MustMoney("12.00")},
		alerts: []StockAlert{
			{ArticleID: id.New(), Name: "Ink", QuantityStore: 0, QuantityDepot: 0},
			{ArticleID: id.New(), Name: "Pen", QuantityStore: 5, QuantityDepot: 3},
		},
	}
	txm := &readOnlyTx{}
	svc := NewService(repo, &stubInvoices{}, txm, 0)

	summary, err := svc.GetStockSummary(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, txm.readOnly)
	assert.Equal(t, int64(10), repo.threshold)
	assert.Equal(t, int64(8), summary.TotalUnits)
	assert.Equal(t, article.StockOut, summary.Alerts[0].Level)
	assert.Equal(t, article.StockLow, summary.Alerts[1].Level)
}
