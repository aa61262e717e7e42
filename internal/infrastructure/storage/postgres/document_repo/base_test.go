package document_repo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/id"
	"stockflow/internal/domain/documents/invoice"
)

func TestPendingArticleRepo_ArticleNameIsReadOnly(t *testing.T) {
	repo := NewPendingArticleRepo(nil)

	assert.Contains(t, repo.selectCols, "article_name")
	assert.NotContains(t, repo.writeCols, "article_name")
	assert.Contains(t, repo.writeCols, "quantity_received")

	sql, _, err := repo.baseSelect().ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, articleNameExpr+" AS article_name")
	assert.Contains(t, sql, "FROM pending_articles")
}

func TestStockMovementRepo_HeaderColumns(t *testing.T) {
	repo := NewStockMovementRepo(nil)

	assert.ElementsMatch(t,
		[]string{"id", "version", "created_at", "updated_at", "code", "type", "reason"},
		repo.writeCols,
	)
}

func TestInvoiceRepo_HeaderColumnsSkipProjections(t *testing.T) {
	repo := NewInvoiceRepo(nil)

	assert.Contains(t, repo.writeCols, "stored_total")
	assert.Contains(t, repo.writeCols, "legacy_amount_paid")
	assert.NotContains(t, repo.writeCols, "stock_movement_code")
}

func TestBaseDocumentRepo_ParseOrderBy(t *testing.T) {
	repo := NewInvoiceRepo(nil)

	got, err := repo.parseOrderBy("")
	require.NoError(t, err)
	assert.Equal(t, "created_at DESC", got)

	got, err = repo.parseOrderBy("-number")
	require.NoError(t, err)
	assert.Equal(t, "number DESC", got)

	_, err = repo.parseOrderBy("items")
	assert.True(t, apperror.IsValidation(err))
}

func TestInvoiceRepo_DetailedQueryFilters(t *testing.T) {
	repo := NewInvoiceRepo(nil)
	clientID := id.New()
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	sql, args, err := repo.detailedQuery(invoice.DetailFilter{
		Status:      invoice.StatusUnpaid,
		ClientID:    &clientID,
		CreatedFrom: &from,
		CreatedTo:   &to,
	}).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "status = $1")
	assert.Contains(t, sql, "client_id = $2")
	assert.Contains(t, sql, "created_at >= $3")
	assert.Contains(t, sql, "created_at <= $4")
	assert.Contains(t, sql, "ORDER BY created_at, id")
	assert.Equal(t, []any{invoice.StatusUnpaid, clientID, from, to}, args)

	sql, args, err = repo.detailedQuery(invoice.DetailFilter{}).ToSql()
	require.NoError(t, err)
	assert.NotContains(t, sql, "WHERE")
	assert.Empty(t, args)
}
