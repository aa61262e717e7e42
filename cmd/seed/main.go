// Package main provides a CLI tool for seeding the database with demo data.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"stockflow/internal/config"
	"stockflow/internal/core/types"
	"stockflow/internal/domain/catalogs/article"
	"stockflow/internal/domain/catalogs/client"
	"stockflow/internal/domain/documents/invoice"
	"stockflow/internal/domain/documents/pending_article"
	"stockflow/internal/domain/documents/stock_movement"
	v1 "stockflow/internal/infrastructure/http/v1"
	"stockflow/internal/infrastructure/numerator"
	"stockflow/internal/infrastructure/storage/postgres"
	"stockflow/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalw("failed to load config", "error", err)
	}

	ctx := context.Background()

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.Database.DSN))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	var articles int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM articles`).Scan(&articles); err != nil {
		log.Fatalw("failed to count articles", "error", err)
	}
	if articles > 0 && os.Getenv("SEED_FORCE") != "true" {
		log.Infow("database already has data, skipping", "articles", articles)
		return
	}

	txManager := postgres.NewTxManager(pool)
	audit, err := postgres.NewAuditService(txManager)
	if err != nil {
		log.Fatalw("failed to create audit service", "error", err)
	}
	services := v1.BuildServices(
		txManager,
		numerator.NewWithTxManager(txManager),
		postgres.NewOutboxPublisher(txManager),
		audit,
		cfg.Inventory.LowStockThreshold,
	)

	if err := seedDemoData(ctx, services, log); err != nil {
		log.Fatalw("failed to seed demo data", "error", err)
	}

	log.Info("seeding completed successfully")
}

func seedDemoData(ctx context.Context, s v1.Services, log *logger.Logger) error {
	// --- Articles ---
	catalog := []struct {
		name         string
		price        string
		store, depot types.Quantity
	}{
		{"Oak shelf 80cm", "45.00", 12, 30},
		{"Steel bracket", "2.50", 3, 4},
		{"Wood screws (box of 100)", "6.90", 40, 120},
		{"Wall anchor set", "4.20", 0, 0},
	}

	created := make([]*article.Article, 0, len(catalog))
	for _, c := range catalog {
		a := article.NewArticle(c.name, types.MustMoney(c.price))
		a.QuantityStore = c.store
		a.QuantityDepot = c.depot
		if err := s.Articles.Create(ctx, a); err != nil {
			return fmt.Errorf("create article %q: %w", c.name, err)
		}
		created = append(created, a)
	}
	log.Infow("seeded articles", "count", len(created))

	// --- Clients ---
	individual := client.NewClient(client.TypeIndividual, "Jane Miller", "+1 555 0100", "")
	if err := s.Clients.Create(ctx, individual); err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	company := client.NewClient(client.TypeOrganization, "Northwind Interiors", "+1 555 0199", "Tom Baker")
	if err := s.Clients.Create(ctx, company); err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	log.Info("seeded clients")

	// --- Sale: movement, invoice, partial payment ---
	sale := stock_movement.NewStockMovement(stock_movement.TypeOut, "Sale to Northwind",
		stock_movement.Line{ArticleID: created[0].ID, Quantity: 2, Location: article.LocationStore},
		stock_movement.Line{ArticleID: created[2].ID, Quantity: 5, Location: article.LocationDepot},
	)
	if err := s.StockMovements.Create(ctx, sale); err != nil {
		return fmt.Errorf("create movement: %w", err)
	}

	inv := invoice.NewInvoice(fmt.Sprintf("INV-%d-0001", time.Now().Year()))
	inv.ClientID = &company.ID
	inv.StockMovementCode = sale.Code
	inv.Items = []invoice.Item{{Name: "Delivery", UnitPrice: types.MustMoney("15.00"), Quantity: 1}}
	if err := s.Invoices.Create(ctx, inv); err != nil {
		return fmt.Errorf("create invoice: %w", err)
	}
	if _, _, err := s.Invoices.AddPayment(ctx, inv.ID, types.MustMoney("50.00"), "deposit"); err != nil {
		return fmt.Errorf("add payment: %w", err)
	}
	log.Infow("seeded sale", "movement", sale.Code, "invoice", inv.Number)

	// --- Pending delivery, partially received ---
	expected := time.Now().UTC().AddDate(0, 0, 7)
	pending := pending_article.NewPendingArticle(created[3].ID, 50)
	pending.ExpectedDate = &expected
	pending.Note = "Supplier order"
	if err := s.PendingArticles.Create(ctx, pending); err != nil {
		return fmt.Errorf("create pending article: %w", err)
	}
	if _, err := s.PendingArticles.Receive(ctx, pending.ID, pending_article.Receipt{
		Quantity: 20,
		Location: article.LocationDepot,
		Reason:   "First delivery",
	}); err != nil {
		return fmt.Errorf("receive pending article: %w", err)
	}
	log.Info("seeded pending delivery")

	return nil
}
