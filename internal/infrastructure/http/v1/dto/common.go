// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"encoding/json"
	"strings"
	"time"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/entity"
	"stockflow/internal/core/id"
	"stockflow/internal/core/types"
	"stockflow/internal/domain"
	"stockflow/internal/domain/filter"
)

// --- List Query ---

// ListQuery carries the common list parameters.
type ListQuery struct {
	Search  string `form:"search" binding:"max=255"`
	Limit   int    `form:"limit" binding:"gte=0"`
	Offset  int    `form:"offset" binding:"gte=0"`
	OrderBy string `form:"orderBy"`

	// Filter is a JSON array of {field, operator, value} conditions.
	Filter string `form:"filter"`
}

// ToFilter converts the query into a domain.ListFilter.
func (q ListQuery) ToFilter(defaultOrder string) (domain.ListFilter, error) {
	f := domain.DefaultListFilter()
	f.Search = strings.TrimSpace(q.Search)
	if q.Limit > 0 {
		f.Limit = q.Limit
	}
	f.Offset = q.Offset
	f.OrderBy = defaultOrder
	if q.OrderBy != "" {
		f.OrderBy = q.OrderBy
	}

	if q.Filter != "" {
		var items []filter.Item
		if err := json.Unmarshal([]byte(q.Filter), &items); err != nil {
			return f, apperror.NewFieldValidation("filter", "invalid filter format (json expected)")
		}
		for i, item := range items {
			if !item.Operator.Valid() {
				return f, apperror.NewFieldValidation("filter", "unknown filter operator").
					WithDetail("index", i).
					WithDetail("value", string(item.Operator))
			}
		}
		f.AdvancedFilters = items
	}

	f.Normalize()
	return f, nil
}

// --- List Response ---

// ListResponse wraps list results with pagination.
type ListResponse[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// NewListResponse maps a domain page to its response form.
func NewListResponse[E any, T any](page domain.ListResult[E], mapFn func(E) T) ListResponse[T] {
	items := make([]T, len(page.Items))
	for i, e := range page.Items {
		items[i] = mapFn(e)
	}
	return ListResponse[T]{
		Items:      items,
		TotalCount: page.TotalCount,
		Limit:      page.Limit,
		Offset:     page.Offset,
	}
}

// --- Base DTOs ---

// BaseResponse contains common response fields.
type BaseResponse struct {
	ID        string    `json:"id"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FromBase creates BaseResponse from entity.BaseEntity.
func FromBase(b entity.BaseEntity) BaseResponse {
	return BaseResponse{
		ID:        b.ID.String(),
		Version:   b.Version,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

// --- ID Response ---

// IDResponse for create operations.
type IDResponse struct {
	ID string `json:"id"`
}

// NewIDResponse creates ID response.
func NewIDResponse(i id.ID) IDResponse {
	return IDResponse{ID: i.String()}
}

// --- Success Response ---

// SuccessResponse for operations without data.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// --- Error Response ---

// ErrorResponse for error details.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// --- Helpers ---

// Money renders an amount with two decimals.
func Money(m types.Money) string {
	return types.FormatMoney(m)
}

// ParseID parses a textual id, reporting field on failure.
func ParseID(field, value string) (id.ID, error) {
	parsed, err := id.Parse(strings.TrimSpace(value))
	if err != nil {
		return id.Nil(), apperror.NewFieldValidation(field, "invalid id format").
			WithDetail("value", value)
	}
	return parsed, nil
}

// ParseOptionalID parses value when it is not empty.
func ParseOptionalID(field string, value *string) (*id.ID, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	parsed, err := ParseID(field, *value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func optionalIDString(v *id.ID) *string {
	if v == nil {
		return nil
	}
	s := v.String()
	return &s
}
