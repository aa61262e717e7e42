package pending_article

import (
	"context"

	"stockflow/internal/core/id"
	"stockflow/internal/domain"
)

// ListFilter narrows pending article lists. Search matches the article name and note.
type ListFilter struct {
	domain.ListFilter

	Status    Status
	ArticleID *id.ID
}

// Repository defines the interface for PendingArticle persistence.
type Repository interface {
	Create(ctx context.Context, p *PendingArticle) error
	GetByID(ctx context.Context, pendingID id.ID) (*PendingArticle, error)

	// GetForUpdate reads the row locked until the transaction ends.
	GetForUpdate(ctx context.Context, pendingID id.ID) (*PendingArticle, error)

	// Update writes all columns with an optimistic lock on Version.
	Update(ctx context.Context, p *PendingArticle) error

	Delete(ctx context.Context, pendingID id.ID) error
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*PendingArticle], error)
}
