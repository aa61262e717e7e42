package catalog_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"stockflow/internal/core/id"
	"stockflow/internal/domain"
	"stockflow/internal/domain/catalogs/client"
	"stockflow/internal/domain/documents/invoice"
	"stockflow/internal/infrastructure/storage/postgres"
)

const clientTable = "clients"

// ClientRepo implements client.Repository.
type ClientRepo struct {
	*BaseCatalogRepo[*client.Client]
}

// NewClientRepo creates a new client repository.
func NewClientRepo(txManager *postgres.TxManager) *ClientRepo {
	return &ClientRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(
			txManager,
			clientTable,
			"client",
			postgres.ExtractDBColumns[client.Client](),
			func() *client.Client { return &client.Client{} },
		).WithSearch("name", "phone", "reference_person"),
	}
}

// ListClients lists clients, optionally of one type.
func (r *ClientRepo) ListClients(ctx context.Context, filter client.ListFilter) (domain.ListResult[*client.Client], error) {
	var where []squirrel.Sqlizer
	if filter.Type != "" {
		where = append(where, squirrel.Eq{"type": filter.Type})
	}
	return r.ListWhere(ctx, filter.ListFilter, where...)
}

// GetSummary implements invoice.ClientDirectory.
func (r *ClientRepo) GetSummary(ctx context.Context, clientID id.ID) (*invoice.ClientSummary, error) {
	c, err := r.GetByID(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return &invoice.ClientSummary{ID: c.ID, Name: c.Name, Type: c.Type}, nil
}

var (
	_ client.Repository       = (*ClientRepo)(nil)
	_ invoice.ClientDirectory = (*ClientRepo)(nil)
)
