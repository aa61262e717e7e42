// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"stockflow/internal/core/numerator"
	"stockflow/internal/domain"
	"stockflow/internal/domain/catalogs/article"
	"stockflow/internal/domain/catalogs/client"
	"stockflow/internal/domain/documents/invoice"
	"stockflow/internal/domain/documents/pending_article"
	"stockflow/internal/domain/documents/stock_movement"
	"stockflow/internal/domain/reports"
	"stockflow/internal/infrastructure/http/v1/handlers"
	"stockflow/internal/infrastructure/http/v1/middleware"
	"stockflow/internal/infrastructure/metrics"
	"stockflow/internal/infrastructure/storage/postgres"
	"stockflow/internal/infrastructure/storage/postgres/catalog_repo"
	"stockflow/internal/infrastructure/storage/postgres/document_repo"
	"stockflow/internal/infrastructure/storage/postgres/report_repo"
	"stockflow/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	// Database backs the health endpoints
	Database handlers.Database

	// TxManager is shared by every repository
	TxManager *postgres.TxManager

	// Logger for request logging
	Logger *logger.Logger

	// Metrics, when set, records requests and serves /metrics
	Metrics *metrics.Metrics

	// Numerator for movement code generation
	Numerator numerator.Generator

	// Events receives domain events (the outbox)
	Events domain.EventPublisher

	// Audit records and reads change history
	Audit *postgres.AuditService

	// Idempotency, when set, enables X-Idempotency-Key handling
	Idempotency middleware.IdempotencyStore

	// RateLimiter, when set, limits requests per client IP
	RateLimiter *middleware.RateLimiter

	CORSAllowOrigins  []string
	LowStockThreshold int64
	Version           string
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	if cfg.Metrics != nil {
		router.Use(middleware.Metrics(cfg.Metrics))
	}
	if len(cfg.CORSAllowOrigins) > 0 {
		router.Use(middleware.CORS(cfg.CORSAllowOrigins))
	}
	if cfg.RateLimiter != nil {
		router.Use(cfg.RateLimiter.Middleware())
	}
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.Database, cfg.Version)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	v1 := router.Group("/api/v1")
	if cfg.Idempotency != nil {
		v1.Use(middleware.Idempotency(cfg.Idempotency))
	}

	services := buildServices(cfg)
	registerRoutes(v1, services, cfg)

	return router
}

// Services are the domain services behind the API.
type Services struct {
	Articles        *article.Service
	Clients         *client.Service
	StockMovements  *stock_movement.Service
	Invoices        *invoice.Service
	PendingArticles *pending_article.Service
	Reports         *reports.Service
}

// BuildServices wires repositories and services on txManager.
func BuildServices(txManager *postgres.TxManager, gen numerator.Generator, events domain.EventPublisher, audit domain.AuditRecorder, lowStockThreshold int64) Services {
	articleRepo := catalog_repo.NewArticleRepo(txManager)
	clientRepo := catalog_repo.NewClientRepo(txManager)
	movementRepo := document_repo.NewStockMovementRepo(txManager)
	invoiceRepo := document_repo.NewInvoiceRepo(txManager)
	pendingRepo := document_repo.NewPendingArticleRepo(txManager)

	articles := article.NewService(articleRepo, txManager, audit, lowStockThreshold)
	movements := stock_movement.NewService(stock_movement.ServiceConfig{
		Repo:      movementRepo,
		Stock:     articleRepo,
		TxManager: txManager,
		Numerator: gen,
		Events:    events,
	})

	invoices := invoice.NewService(invoice.ServiceConfig{
		Repo:      invoiceRepo,
		Movements: movementRepo,
		Clients:   clientRepo,
		TxManager: txManager,
		Events:    events,
		Audit:     audit,
	})
	pending := pending_article.NewService(pending_article.ServiceConfig{
		Repo:      pendingRepo,
		Movements: movements,
		Articles:  articles,
		TxManager: txManager,
		Events:    events,
		Audit:     audit,
	})

	return Services{
		Articles:        articles,
		Clients:         client.NewService(clientRepo, txManager, audit),
		StockMovements:  movements,
		Invoices:        invoices,
		PendingArticles: pending,
		Reports:         reports.NewService(report_repo.NewReportRepo(txManager), invoiceRepo, txManager, lowStockThreshold),
	}
}

func buildServices(cfg RouterConfig) Services {
	var audit domain.AuditRecorder = domain.NopAudit{}
	if cfg.Audit != nil {
		audit = cfg.Audit
	}
	return BuildServices(cfg.TxManager, cfg.Numerator, cfg.Events, audit, cfg.LowStockThreshold)
}

func registerRoutes(rg *gin.RouterGroup, s Services, cfg RouterConfig) {
	base := handlers.NewBaseHandler()

	// --- ARTICLES ---
	{
		handler := handlers.NewArticleHandler(base, s.Articles)
		RegisterCatalogRoutes(rg.Group("/articles"), handler)
	}

	// --- CLIENTS ---
	{
		handler := handlers.NewClientHandler(base, s.Clients)
		RegisterCatalogRoutes(rg.Group("/clients"), handler)
	}

	// --- STOCK MOVEMENTS ---
	{
		handler := handlers.NewStockMovementHandler(base, s.StockMovements)
		group := rg.Group("/stock-movements")
		RegisterCRUDRoutes(group, handler)
		group.GET("/by-code/:code", handler.GetByCode)
	}

	// --- INVOICES ---
	{
		handler := handlers.NewInvoiceHandler(base, s.Invoices)
		group := rg.Group("/invoices")
		group.GET("", handler.List)
		group.POST("", handler.Create)
		group.GET("/:id", handler.Get)
		group.PATCH("/:id", handler.Update)
		group.DELETE("/:id", handler.Delete)
		group.GET("/:id/balance", handler.GetBalance)
		group.POST("/:id/status", handler.SetStatus)
		group.POST("/:id/payments", handler.AddPayment)
		rg.DELETE("/payments/:paymentId", handler.RemovePayment)
	}

	// --- PENDING ARTICLES ---
	{
		handler := handlers.NewPendingArticleHandler(base, s.PendingArticles)
		group := rg.Group("/pending-articles")
		RegisterCRUDRoutes(group, handler)
		group.POST("/:id/receive", handler.Receive)
	}

	// --- REPORTS ---
	{
		handler := handlers.NewReportsHandler(base, s.Reports)
		group := rg.Group("/reports")
		group.GET("/invoice-stats", handler.GetInvoiceStats)
		group.GET("/stock-summary", handler.GetStockSummary)
	}

	// --- AUDIT ---
	if cfg.Audit != nil {
		handler := handlers.NewAuditHandler(base, cfg.Audit)
		rg.GET("/audit/:entityType/:id", handler.GetHistory)
	}
}
