package article

import (
	"context"

	"stockflow/internal/core/id"
	"stockflow/internal/domain"
)

// ListFilter narrows article lists.
type ListFilter struct {
	domain.ListFilter

	// StockLevel keeps only articles in that class (computed with LowStockThreshold).
	StockLevel        StockLevel
	LowStockThreshold int64
}

// StockChange is the new store/depot quantity pair of one article.
type StockChange struct {
	ArticleID     id.ID
	QuantityStore int64
	QuantityDepot int64
}

// Repository defines the interface for Article persistence.
type Repository interface {
	domain.CatalogRepository[*Article]

	// ListArticles lists with article-specific filters.
	ListArticles(ctx context.Context, filter ListFilter) (domain.ListResult[*Article], error)

	// LockForStock reads and row-locks the given articles (in id order, to avoid deadlocks).
	// Missing ids are absent from the result.
	LockForStock(ctx context.Context, ids []id.ID) (map[id.ID]*Article, error)

	// SaveStock writes new stock quantities. Must run in the transaction that locked the rows.
	SaveStock(ctx context.Context, changes []StockChange) error
}
