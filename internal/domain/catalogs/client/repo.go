package client

import (
	"context"

	"stockflow/internal/domain"
)

// ListFilter narrows client lists.
type ListFilter struct {
	domain.ListFilter

	Type Type
}

// Repository defines the interface for Client persistence.
type Repository interface {
	domain.CatalogRepository[*Client]

	ListClients(ctx context.Context, filter ListFilter) (domain.ListResult[*Client], error)
}
