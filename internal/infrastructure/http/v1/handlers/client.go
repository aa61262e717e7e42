package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"stockflow/internal/domain"
	"stockflow/internal/domain/catalogs/client"
	"stockflow/internal/infrastructure/http/v1/dto"
)

// ClientService is what the client handler needs. client.Service implements it.
type ClientService interface {
	CatalogService[*client.Client]
	ListClients(ctx context.Context, filter client.ListFilter) (domain.ListResult[*client.Client], error)
}

// ClientHandler handles HTTP requests for clients.
type ClientHandler struct {
	*CatalogHandler[*client.Client, dto.CreateClientRequest, dto.UpdateClientRequest]
	service ClientService
}

// NewClientHandler creates a new client handler.
func NewClientHandler(base *BaseHandler, service ClientService) *ClientHandler {
	return &ClientHandler{
		CatalogHandler: NewCatalogHandler(base, CatalogHandlerConfig[*client.Client, dto.CreateClientRequest, dto.UpdateClientRequest]{
			Service:      service,
			MapCreateDTO: (*dto.CreateClientRequest).ToEntity,
			ApplyUpdate:  (*dto.UpdateClientRequest).ApplyTo,
			MapToDTO:     func(c *client.Client) any { return dto.FromClient(c) },
		}),
		service: service,
	}
}

// List handles GET /clients.
func (h *ClientHandler) List(c *gin.Context) {
	var q dto.ClientListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.service.ListClients(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.NewListResponse(result, dto.FromClient))
}
