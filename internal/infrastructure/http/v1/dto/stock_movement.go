package dto

import (
	"fmt"

	"stockflow/internal/core/types"
	"stockflow/internal/domain/catalogs/article"
	"stockflow/internal/domain/documents/stock_movement"
)

// --- Request DTOs ---

// StockMovementLineRequest is one line of a movement request.
type StockMovementLineRequest struct {
	ArticleID string           `json:"articleId" binding:"required,uuid"`
	Quantity  types.Quantity   `json:"quantity" binding:"required,min=1"`
	Location  article.Location `json:"location" binding:"required,location"`
}

// CreateStockMovementRequest is the request body for recording a movement.
// An empty code is generated.
type CreateStockMovementRequest struct {
	Code   string                     `json:"code" binding:"max=50"`
	Type   stock_movement.Type        `json:"type" binding:"required,movementtype"`
	Reason string                     `json:"reason" binding:"max=255"`
	Lines  []StockMovementLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// ToEntity converts DTO to domain entity.
func (r *CreateStockMovementRequest) ToEntity() (*stock_movement.StockMovement, error) {
	lines, err := toMovementLines(r.Lines)
	if err != nil {
		return nil, err
	}
	m := stock_movement.NewStockMovement(r.Type, r.Reason, lines...)
	m.Code = r.Code
	return m, nil
}

// UpdateStockMovementRequest is the request body for editing a movement.
// Lines keep their articles; quantities and locations may change.
type UpdateStockMovementRequest struct {
	CreateStockMovementRequest
	Version int `json:"version" binding:"required,min=1"`
}

// ApplyTo updates existing entity from DTO.
func (r *UpdateStockMovementRequest) ApplyTo(m *stock_movement.StockMovement) error {
	lines, err := toMovementLines(r.Lines)
	if err != nil {
		return err
	}
	m.Code = r.Code
	m.Type = r.Type
	m.Reason = r.Reason
	m.Lines = lines
	m.Version = r.Version
	return nil
}

func toMovementLines(in []StockMovementLineRequest) ([]stock_movement.Line, error) {
	lines := make([]stock_movement.Line, len(in))
	for i, l := range in {
		articleID, err := ParseID(fmt.Sprintf("lines[%d].articleId", i), l.ArticleID)
		if err != nil {
			return nil, err
		}
		lines[i] = stock_movement.Line{
			ArticleID: articleID,
			Quantity:  l.Quantity,
			Location:  l.Location,
		}
	}
	return lines, nil
}

// StockMovementListQuery adds movement filters to the list parameters.
type StockMovementListQuery struct {
	ListQuery
	Type      string `form:"type" binding:"omitempty,movementtype"`
	ArticleID string `form:"articleId" binding:"omitempty,uuid"`
}

// ToFilter converts the query into a stock_movement.ListFilter.
func (q StockMovementListQuery) ToFilter() (stock_movement.ListFilter, error) {
	base, err := q.ListQuery.ToFilter("-created_at")
	if err != nil {
		return stock_movement.ListFilter{}, err
	}
	articleID, err := ParseOptionalID("articleId", &q.ArticleID)
	if err != nil {
		return stock_movement.ListFilter{}, err
	}
	return stock_movement.ListFilter{
		ListFilter: base,
		Type:       stock_movement.Type(q.Type),
		ArticleID:  articleID,
	}, nil
}

// --- Response DTOs ---

// StockMovementLineResponse is a movement line.
type StockMovementLineResponse struct {
	ID          string           `json:"id"`
	LineNo      int              `json:"lineNo"`
	ArticleID   string           `json:"articleId"`
	ArticleName string           `json:"articleName,omitempty"`
	Quantity    types.Quantity   `json:"quantity"`
	Location    article.Location `json:"location"`
}

// StockMovementResponse is the response for a movement.
type StockMovementResponse struct {
	BaseResponse
	Code          string                      `json:"code"`
	Type          stock_movement.Type         `json:"type"`
	Reason        string                      `json:"reason"`
	TotalQuantity types.Quantity              `json:"totalQuantity"`
	Lines         []StockMovementLineResponse `json:"lines"`
}

// FromStockMovement converts domain entity to response DTO.
func FromStockMovement(m *stock_movement.StockMovement) StockMovementResponse {
	lines := make([]StockMovementLineResponse, len(m.Lines))
	for i, l := range m.Lines {
		lines[i] = StockMovementLineResponse{
			ID:          l.ID.String(),
			LineNo:      l.LineNo,
			ArticleID:   l.ArticleID.String(),
			ArticleName: l.ArticleName,
			Quantity:    l.Quantity,
			Location:    l.Location,
		}
	}
	return StockMovementResponse{
		BaseResponse:  FromBase(m.BaseEntity),
		Code:          m.Code,
		Type:          m.Type,
		Reason:        m.Reason,
		TotalQuantity: m.TotalQuantity(),
		Lines:         lines,
	}
}
