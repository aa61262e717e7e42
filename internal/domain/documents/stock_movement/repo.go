package stock_movement

import (
	"context"

	"stockflow/internal/core/id"
	"stockflow/internal/domain"
)

// ListFilter narrows movement lists.
type ListFilter struct {
	domain.ListFilter

	Type Type
	// ArticleID keeps movements having at least one line for the article.
	ArticleID *id.ID
}

// Repository defines the interface for StockMovement persistence.
// Reads return movements with their lines.
type Repository interface {
	// Create inserts the header and its lines.
	Create(ctx context.Context, m *StockMovement) error

	GetByID(ctx context.Context, movementID id.ID) (*StockMovement, error)
	GetByCode(ctx context.Context, code string) (*StockMovement, error)
	GetForUpdate(ctx context.Context, movementID id.ID) (*StockMovement, error)

	ExistsByCode(ctx context.Context, code string) (bool, error)

	// Update writes the header (optimistic lock on Version) and replaces the lines.
	Update(ctx context.Context, m *StockMovement) error

	// Delete removes the movement; a movement still linked to an invoice is a conflict.
	Delete(ctx context.Context, movementID id.ID) error

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*StockMovement], error)
}
