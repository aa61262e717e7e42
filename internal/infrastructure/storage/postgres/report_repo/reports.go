// Package report_repo provides PostgreSQL implementations for report repositories.
package report_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockflow/internal/domain/reports"
	"stockflow/internal/infrastructure/storage/postgres"
)

const totalStock = "(quantity_store + quantity_depot)"

// ReportRepo implements reports.Repository.
type ReportRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewReportRepo creates a new report repository.
func NewReportRepo(txManager *postgres.TxManager) *ReportRepo {
	return &ReportRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetStockTotals aggregates stock over all articles in one scan.
func (r *ReportRepo) GetStockTotals(ctx context.Context, threshold int64) (reports.StockTotals, error) {
	var totals reports.StockTotals

	q := r.builder.
		Select(
			"COUNT(*) AS article_count",
			"COALESCE(SUM(quantity_store), 0) AS units_store",
			"COALESCE(SUM(quantity_depot), 0) AS units_depot",
		).
		Column(squirrel.Expr("COUNT(*) FILTER (WHERE "+totalStock+" > 0 AND "+totalStock+" < ?) AS low_stock_count", threshold)).
		Column("COUNT(*) FILTER (WHERE " + totalStock + " <= 0) AS out_of_stock_count").
		Column("COALESCE(SUM(" + totalStock + " * sale_price), 0) AS valuation").
		From("articles")

	sql, args, err := q.ToSql()
	if err != nil {
		return totals, fmt.Errorf("build stock totals query: %w", err)
	}

	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &totals, sql, args...); err != nil {
		return totals, fmt.Errorf("stock totals: %w", err)
	}
	return totals, nil
}

// ListStockAlerts returns articles below threshold, lowest total first.
func (r *ReportRepo) ListStockAlerts(ctx context.Context, threshold int64, limit int) ([]reports.StockAlert, error) {
	q := r.builder.
		Select("id", "name", "quantity_store", "quantity_depot").
		From("articles").
		Where(squirrel.Expr(totalStock+" < ?", threshold)).
		OrderBy(totalStock+" ASC", "name ASC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build stock alerts query: %w", err)
	}

	alerts := []reports.StockAlert{}
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &alerts, sql, args...); err != nil {
		return nil, fmt.Errorf("stock alerts: %w", err)
	}
	return alerts, nil
}

var _ reports.Repository = (*ReportRepo)(nil)
