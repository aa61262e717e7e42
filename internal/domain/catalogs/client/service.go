package client

import (
	"context"
	"strings"

	"stockflow/internal/core/tx"
	"stockflow/internal/domain"
)

// Service provides business logic for the Client catalog.
type Service struct {
	*domain.CatalogService[*Client]
	repo Repository
}

// NewService creates a new Client service. audit may be nil.
func NewService(repo Repository, txManager tx.Manager, audit domain.AuditRecorder) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Client]{
		Repo:       repo,
		TxManager:  txManager,
		EntityName: "client",
		Audit:      audit,
		AuditType:  domain.AggregateClient,
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
	}

	base.Hooks().OnBeforeCreate(svc.normalize)
	base.Hooks().OnBeforeUpdate(svc.normalize)

	return svc
}

// ListClients lists clients, optionally restricted to one type.
func (s *Service) ListClients(ctx context.Context, filter ListFilter) (domain.ListResult[*Client], error) {
	filter.Normalize()
	return s.repo.ListClients(ctx, filter)
}

// normalize trims input and drops the reference person of individuals.
func (s *Service) normalize(_ context.Context, c *Client) error {
	c.Name = strings.TrimSpace(c.Name)
	c.Phone = strings.TrimSpace(c.Phone)
	c.ReferencePerson = strings.TrimSpace(c.ReferencePerson)
	if c.Type == TypeIndividual {
		c.ReferencePerson = ""
	}
	return nil
}
