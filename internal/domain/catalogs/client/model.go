// Package client provides the Client catalog: individuals and organizations that are invoiced.
package client

import (
	"context"
	"strings"
	"unicode/utf8"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/entity"
)

// Type distinguishes private persons from organizations.
type Type string

const (
	TypeIndividual   Type = "INDIVIDUAL"
	TypeOrganization Type = "ORGANIZATION"
)

// Valid reports whether t is a known client type.
func (t Type) Valid() bool {
	return t == TypeIndividual || t == TypeOrganization
}

// Client is an invoiced party.
type Client struct {
	entity.BaseEntity

	Type  Type   `db:"type" json:"type"`
	Name  string `db:"name" json:"name"`
	Phone string `db:"phone" json:"phone"`

	// ReferencePerson is the contact at an organization. Required exactly for organizations.
	ReferencePerson string `db:"reference_person" json:"referencePerson"`
}

// NewClient creates a Client.
func NewClient(clientType Type, name, phone, referencePerson string) *Client {
	return &Client{
		BaseEntity:      entity.NewBaseEntity(),
		Type:            clientType,
		Name:            name,
		Phone:           phone,
		ReferencePerson: referencePerson,
	}
}

// Validate implements entity.Validatable interface.
func (c *Client) Validate(ctx context.Context) error {
	if !c.Type.Valid() {
		return apperror.NewFieldValidation("type", "client type must be INDIVIDUAL or ORGANIZATION").
			WithDetail("value", string(c.Type))
	}

	name := strings.TrimSpace(c.Name)
	if name == "" {
		return apperror.NewFieldValidation("name", "name is required")
	}
	if utf8.RuneCountInString(name) > 255 {
		return apperror.NewFieldValidation("name", "name must be at most 255 characters")
	}

	phone := strings.TrimSpace(c.Phone)
	if phone == "" {
		return apperror.NewFieldValidation("phone", "phone is required")
	}
	if utf8.RuneCountInString(phone) > 20 {
		return apperror.NewFieldValidation("phone", "phone must be at most 20 characters")
	}

	ref := strings.TrimSpace(c.ReferencePerson)
	if c.Type == TypeOrganization && ref == "" {
		return apperror.NewFieldValidation("referencePerson", "reference person is required for organizations")
	}
	if utf8.RuneCountInString(ref) > 255 {
		return apperror.NewFieldValidation("referencePerson", "reference person must be at most 255 characters")
	}

	return nil
}

// IsOrganization returns true for organization clients.
func (c *Client) IsOrganization() bool {
	return c.Type == TypeOrganization
}
