package article

import (
	"context"
	"strings"

	"stockflow/internal/core/tx"
	"stockflow/internal/core/types"
	"stockflow/internal/domain"
)

// Service provides business logic for the Article catalog.
type Service struct {
	*domain.CatalogService[*Article]
	repo              Repository
	lowStockThreshold types.Quantity
}

// NewService creates a new Article service. A non-positive threshold means the default of 10.
// audit may be nil.
func NewService(repo Repository, txManager tx.Manager, audit domain.AuditRecorder, lowStockThreshold int64) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Article]{
		Repo:       repo,
		TxManager:  txManager,
		EntityName: "article",
		Audit:      audit,
		AuditType:  domain.AggregateArticle,
	})

	threshold := types.Quantity(lowStockThreshold)
	if threshold <= 0 {
		threshold = DefaultLowStockThreshold
	}

	svc := &Service{
		CatalogService:    base,
		repo:              repo,
		lowStockThreshold: threshold,
	}

	base.Hooks().OnBeforeCreate(svc.normalize)
	base.Hooks().OnBeforeUpdate(svc.normalize)

	return svc
}

// LowStockThreshold is the configured threshold.
func (s *Service) LowStockThreshold() types.Quantity {
	return s.lowStockThreshold
}

// StockLevel classifies a using the configured threshold.
func (s *Service) StockLevel(a *Article) StockLevel {
	return a.StockLevel(s.lowStockThreshold)
}

// ListArticles lists articles, optionally restricted to one stock level.
func (s *Service) ListArticles(ctx context.Context, filter ListFilter) (domain.ListResult[*Article], error) {
	filter.Normalize()
	filter.LowStockThreshold = s.lowStockThreshold.Int64()
	return s.repo.ListArticles(ctx, filter)
}

func (s *Service) normalize(_ context.Context, a *Article) error {
	a.Name = strings.TrimSpace(a.Name)
	a.Description = strings.TrimSpace(a.Description)
	return nil
}
