package invoice

import (
	"context"
	"time"

	"stockflow/internal/core/id"
	"stockflow/internal/domain"
)

// ListFilter narrows invoice lists. Search matches the invoice number.
type ListFilter struct {
	domain.ListFilter

	Status   Status
	ClientID *id.ID
}

// DetailFilter narrows ListDetailed. Zero fields do not filter; date bounds are
// inclusive and apply to the creation time.
type DetailFilter struct {
	Status      Status
	ClientID    *id.ID
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// Repository defines the interface for Invoice persistence.
// Reads return the invoice with items, payments, priced movement lines and client summary.
type Repository interface {
	// Create inserts the header and its free items.
	Create(ctx context.Context, inv *Invoice) error

	GetByID(ctx context.Context, invoiceID id.ID) (*Invoice, error)

	// GetForUpdate reads the invoice with its header row locked.
	GetForUpdate(ctx context.Context, invoiceID id.ID) (*Invoice, error)

	// ExistsByNumber reports whether another invoice (not excludeID) carries number.
	ExistsByNumber(ctx context.Context, number string, excludeID *id.ID) (bool, error)

	// Update writes the header (optimistic lock on Version) and replaces the free items.
	Update(ctx context.Context, inv *Invoice) error

	// Delete removes the invoice with its items and payments.
	Delete(ctx context.Context, invoiceID id.ID) error

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Invoice], error)

	// ListDetailed returns every invoice matching filter, fully loaded, oldest first.
	ListDetailed(ctx context.Context, filter DetailFilter) ([]*Invoice, error)

	AddPayment(ctx context.Context, p *Payment) error
	GetPayment(ctx context.Context, paymentID id.ID) (*Payment, error)
	DeletePayment(ctx context.Context, paymentID id.ID) error
}

// MovementDirectory resolves linked stock movements.
type MovementDirectory interface {
	// FindIDByCode returns the id of the movement with code, NOT_FOUND otherwise.
	FindIDByCode(ctx context.Context, code string) (id.ID, error)

	// PricedLines returns the movement's lines priced at current article sale prices.
	PricedLines(ctx context.Context, movementID id.ID) ([]MovementLine, error)
}

// ClientDirectory resolves linked clients.
type ClientDirectory interface {
	GetSummary(ctx context.Context, clientID id.ID) (*ClientSummary, error)
}
