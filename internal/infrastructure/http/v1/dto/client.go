package dto

import (
	"stockflow/internal/domain/catalogs/client"
)

// CreateClientRequest is the request body for creating a client.
// The reference person is required for organizations; the domain checks it.
type CreateClientRequest struct {
	Type            client.Type `json:"type" binding:"required,clienttype"`
	Name            string      `json:"name" binding:"required,max=255"`
	Phone           string      `json:"phone" binding:"required,max=20"`
	ReferencePerson string      `json:"referencePerson" binding:"max=255"`
}

// ToEntity converts DTO to domain entity.
func (r *CreateClientRequest) ToEntity() *client.Client {
	return client.NewClient(r.Type, r.Name, r.Phone, r.ReferencePerson)
}

// UpdateClientRequest is the request body for updating a client.
type UpdateClientRequest struct {
	CreateClientRequest
	Version int `json:"version" binding:"required,min=1"`
}

// ApplyTo updates existing entity from DTO.
func (r *UpdateClientRequest) ApplyTo(c *client.Client) {
	c.Type = r.Type
	c.Name = r.Name
	c.Phone = r.Phone
	c.ReferencePerson = r.ReferencePerson
	c.Version = r.Version
}

// ClientListQuery adds the type filter to the list parameters.
type ClientListQuery struct {
	ListQuery
	Type string `form:"type" binding:"omitempty,clienttype"`
}

// ToFilter converts the query into a client.ListFilter.
func (q ClientListQuery) ToFilter() (client.ListFilter, error) {
	base, err := q.ListQuery.ToFilter("name")
	if err != nil {
		return client.ListFilter{}, err
	}
	return client.ListFilter{ListFilter: base, Type: client.Type(q.Type)}, nil
}

// ClientResponse is the response for a client.
type ClientResponse struct {
	BaseResponse
	Type            client.Type `json:"type"`
	Name            string      `json:"name"`
	Phone           string      `json:"phone"`
	ReferencePerson string      `json:"referencePerson,omitempty"`
}

// FromClient converts domain entity to response DTO.
func FromClient(c *client.Client) ClientResponse {
	return ClientResponse{
		BaseResponse:    FromBase(c.BaseEntity),
		Type:            c.Type,
		Name:            c.Name,
		Phone:           c.Phone,
		ReferencePerson: c.ReferencePerson,
	}
}
