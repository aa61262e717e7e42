package dto

import (
	"time"

	"stockflow/internal/core/types"
	"stockflow/internal/domain/catalogs/article"
	"stockflow/internal/domain/documents/pending_article"
)

// --- Request DTOs ---

// CreatePendingArticleRequest registers an expected delivery.
type CreatePendingArticleRequest struct {
	ArticleID        string         `json:"articleId" binding:"required,uuid"`
	QuantityExpected types.Quantity `json:"quantityExpected" binding:"required,min=1"`
	ExpectedDate     *time.Time     `json:"expectedDate"`
	Note             string         `json:"note" binding:"max=1000"`
}

// ToEntity converts DTO to domain entity.
func (r *CreatePendingArticleRequest) ToEntity() (*pending_article.PendingArticle, error) {
	articleID, err := ParseID("articleId", r.ArticleID)
	if err != nil {
		return nil, err
	}
	p := pending_article.NewPendingArticle(articleID, r.QuantityExpected)
	p.ExpectedDate = r.ExpectedDate
	p.Note = r.Note
	return p, nil
}

// UpdatePendingArticleRequest edits an expected delivery. Received quantities
// only change through a receipt.
type UpdatePendingArticleRequest struct {
	CreatePendingArticleRequest
	Version int `json:"version" binding:"required,min=1"`
}

// ApplyTo updates existing entity from DTO.
func (r *UpdatePendingArticleRequest) ApplyTo(p *pending_article.PendingArticle) error {
	articleID, err := ParseID("articleId", r.ArticleID)
	if err != nil {
		return err
	}
	p.ArticleID = articleID
	p.QuantityExpected = r.QuantityExpected
	p.ExpectedDate = r.ExpectedDate
	p.Note = r.Note
	p.Version = r.Version
	return nil
}

// ReceivePendingArticleRequest books a delivery. The quantity range is checked
// against the pending article, so it is not constrained here.
type ReceivePendingArticleRequest struct {
	Quantity types.Quantity   `json:"quantity"`
	Location article.Location `json:"location" binding:"omitempty,location"`
	Reason   string           `json:"reason" binding:"max=255"`
	Version  *int             `json:"version" binding:"omitempty,min=1"`
}

// ToReceipt converts DTO to a domain receipt.
func (r *ReceivePendingArticleRequest) ToReceipt() pending_article.Receipt {
	return pending_article.Receipt{
		Quantity:        r.Quantity,
		Location:        r.Location,
		Reason:          r.Reason,
		ExpectedVersion: r.Version,
	}
}

// PendingArticleListQuery adds pending article filters to the list parameters.
type PendingArticleListQuery struct {
	ListQuery
	Status    string `form:"status"`
	ArticleID string `form:"articleId" binding:"omitempty,uuid"`
}

// ToFilter converts the query into a pending_article.ListFilter.
func (q PendingArticleListQuery) ToFilter() (pending_article.ListFilter, error) {
	base, err := q.ListQuery.ToFilter("-created_at")
	if err != nil {
		return pending_article.ListFilter{}, err
	}
	articleID, err := ParseOptionalID("articleId", &q.ArticleID)
	if err != nil {
		return pending_article.ListFilter{}, err
	}
	return pending_article.ListFilter{
		ListFilter: base,
		Status:     pending_article.Status(q.Status),
		ArticleID:  articleID,
	}, nil
}

// --- Response DTOs ---

// PendingArticleResponse is the response for a pending article.
type PendingArticleResponse struct {
	BaseResponse
	ArticleID         string                 `json:"articleId"`
	ArticleName       string                 `json:"articleName,omitempty"`
	QuantityExpected  types.Quantity         `json:"quantityExpected"`
	QuantityReceived  types.Quantity         `json:"quantityReceived"`
	QuantityRemaining types.Quantity         `json:"quantityRemaining"`
	ExpectedDate      *time.Time             `json:"expectedDate"`
	ReceptionDate     *time.Time             `json:"receptionDate"`
	Status            pending_article.Status `json:"status"`
	Note              string                 `json:"note,omitempty"`
}

// FromPendingArticle converts domain entity to response DTO.
func FromPendingArticle(p *pending_article.PendingArticle) PendingArticleResponse {
	return PendingArticleResponse{
		BaseResponse:      FromBase(p.BaseEntity),
		ArticleID:         p.ArticleID.String(),
		ArticleName:       p.ArticleName,
		QuantityExpected:  p.QuantityExpected,
		QuantityReceived:  p.QuantityReceived,
		QuantityRemaining: p.Remaining(),
		ExpectedDate:      p.ExpectedDate,
		ReceptionDate:     p.ReceptionDate,
		Status:            p.Status,
		Note:              p.Note,
	}
}

// ReceiveResponse carries both effects of a receipt.
type ReceiveResponse struct {
	PendingArticle PendingArticleResponse `json:"pendingArticle"`
	StockMovement  StockMovementResponse  `json:"stockMovement"`
}

// FromReceiveResult converts a receipt result.
func FromReceiveResult(r *pending_article.ReceiveResult) ReceiveResponse {
	return ReceiveResponse{
		PendingArticle: FromPendingArticle(r.PendingArticle),
		StockMovement:  FromStockMovement(r.StockMovement),
	}
}
