//go:build integration

package document_repo_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/types"
	"stockflow/internal/domain"
	"stockflow/internal/domain/catalogs/article"
	"stockflow/internal/domain/documents/invoice"
	"stockflow/internal/domain/documents/pending_article"
	"stockflow/internal/domain/documents/stock_movement"
	v1 "stockflow/internal/infrastructure/http/v1"
	"stockflow/internal/infrastructure/numerator"
	"stockflow/internal/infrastructure/storage/postgres"
	"stockflow/internal/infrastructure/storage/postgres/migrations"
)

// failingPublisher forwards to the outbox, except for one event type.
type failingPublisher struct {
	next   domain.EventPublisher
	failOn string
}

func (p *failingPublisher) Publish(ctx context.Context, event domain.Event) error {
	if p.failOn != "" && event.EventType == p.failOn {
		return errors.New("broker unavailable")
	}
	return p.next.Publish(ctx, event)
}

type testEnv struct {
	pool     *postgres.Pool
	services v1.Services
	events   *failingPublisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("stockflow_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	m, err := migrations.New(dsn)
	require.NoError(t, err)
	require.NoError(t, m.Up(ctx))
	require.NoError(t, m.Close())

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dsn))
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	txManager := postgres.NewTxManager(pool)
	audit, err := postgres.NewAuditService(txManager)
	require.NoError(t, err)

	events := &failingPublisher{next: postgres.NewOutboxPublisher(txManager)}
	services := v1.BuildServices(txManager, numerator.NewWithTxManager(txManager), events, audit, 10)

	return &testEnv{pool: pool, services: services, events: events}
}

func (e *testEnv) count(t *testing.T, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, e.pool.QueryRow(context.Background(), query, args...).Scan(&n))
	return n
}

func (e *testEnv) newArticle(t *testing.T, name, price string, store, depot types.Quantity) *article.Article {
	t.Helper()
	a := article.NewArticle(name, types.MustMoney(price))
	a.QuantityStore = store
	a.QuantityDepot = depot
	require.NoError(t, e.services.Articles.Create(context.Background(), a))
	return a
}

func TestReceivePendingArticle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := env.newArticle(t, "Steel bracket", "2.50", 5, 0)
	pending := pending_article.NewPendingArticle(a.ID, 10)
	require.NoError(t, env.services.PendingArticles.Create(ctx, pending))

	t.Run("partial receipt books stock and movement", func(t *testing.T) {
		result, err := env.services.PendingArticles.Receive(ctx, pending.ID, pending_article.Receipt{Quantity: 4})
		require.NoError(t, err)

		assert.Equal(t, pending_article.StatusPartiallyReceived, result.PendingArticle.Status)
		assert.Equal(t, types.Quantity(4), result.PendingArticle.QuantityReceived)
		assert.Equal(t, stock_movement.TypeIn, result.StockMovement.Type)
		assert.Regexp(t, `^MVT-\d{4}-\d{5}$`, result.StockMovement.Code)

		stored, err := env.services.Articles.GetByID(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, types.Quantity(9), stored.QuantityStore)

		assert.Equal(t, 1, env.count(t, `SELECT COUNT(*) FROM sys_outbox WHERE event_type = $1`, pending_article.EventReceived))
	})

	t.Run("over remaining is rejected", func(t *testing.T) {
		_, err := env.services.PendingArticles.Receive(ctx, pending.ID, pending_article.Receipt{Quantity: 7})

		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeValidation, appErr.Code)
		assert.EqualValues(t, 6, appErr.Details["maxAllowed"])
	})

	t.Run("failure after advancing rolls everything back", func(t *testing.T) {
		movementsBefore := env.count(t, `SELECT COUNT(*) FROM stock_movements`)
		env.events.failOn = pending_article.EventReceived
		defer func() { env.events.failOn = "" }()

		_, err := env.services.PendingArticles.Receive(ctx, pending.ID, pending_article.Receipt{Quantity: 6})

		require.True(t, apperror.IsTransaction(err))
		appErr, _ := apperror.AsAppError(err)
		assert.Equal(t, pending_article.StagePublishEvent, appErr.Details["stage"])

		assert.Equal(t, movementsBefore, env.count(t, `SELECT COUNT(*) FROM stock_movements`))
		stored, err := env.services.Articles.GetByID(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, types.Quantity(9), stored.QuantityStore)

		p, err := env.services.PendingArticles.GetByID(ctx, pending.ID)
		require.NoError(t, err)
		assert.Equal(t, types.Quantity(4), p.QuantityReceived)
	})

	t.Run("final receipt completes", func(t *testing.T) {
		result, err := env.services.PendingArticles.Receive(ctx, pending.ID, pending_article.Receipt{
			Quantity: 6,
			Location: article.LocationDepot,
		})
		require.NoError(t, err)

		assert.Equal(t, pending_article.StatusReceived, result.PendingArticle.Status)
		assert.NotNil(t, result.PendingArticle.ReceptionDate)

		stored, err := env.services.Articles.GetByID(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, types.Quantity(6), stored.QuantityDepot)
	})
}

func TestPendingArticleNoteLength(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := env.newArticle(t, "Hinge", "1.20", 0, 0)
	pending := pending_article.NewPendingArticle(a.ID, 3)
	pending.Note = strings.Repeat("n", 1000)
	require.NoError(t, env.services.PendingArticles.Create(ctx, pending))

	stored, err := env.services.PendingArticles.GetByID(ctx, pending.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Note, 1000)

	tooLong := pending_article.NewPendingArticle(a.ID, 3)
	tooLong.Note = strings.Repeat("n", 1001)
	err = env.services.PendingArticles.Create(ctx, tooLong)
	assert.True(t, apperror.IsValidation(err))
}

func TestInvoicePayments(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := env.newArticle(t, "Oak shelf", "12.50", 10, 0)
	sale := stock_movement.NewStockMovement(stock_movement.TypeOut, "sale",
		stock_movement.Line{ArticleID: a.ID, Quantity: 4, Location: article.LocationStore})
	require.NoError(t, env.services.StockMovements.Create(ctx, sale))

	inv := invoice.NewInvoice("INV-100")
	inv.StockMovementCode = sale.Code
	require.NoError(t, env.services.Invoices.Create(ctx, inv))

	_, updated, err := env.services.Invoices.AddPayment(ctx, inv.ID, types.MustMoney("30"), "")
	require.NoError(t, err)
	balance := invoice.ComputeBalance(updated)
	assert.Equal(t, "50.00", types.FormatMoney(balance.Total))
	assert.Equal(t, "20.00", types.FormatMoney(balance.Remaining))

	_, _, err = env.services.Invoices.AddPayment(ctx, inv.ID, types.MustMoney("25"), "")
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "20.00", appErr.Details["maxAllowed"])
	assert.Equal(t, 1, env.count(t, `SELECT COUNT(*) FROM payments WHERE invoice_id = $1`, inv.ID))

	stored, err := env.services.Articles.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, types.Quantity(6), stored.QuantityStore)
}
