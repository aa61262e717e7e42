package dto

import (
	"github.com/shopspring/decimal"

	"stockflow/internal/core/types"
	"stockflow/internal/domain/catalogs/article"
)

// --- Request DTOs ---

// CreateArticleRequest is the request body for creating an article.
type CreateArticleRequest struct {
	Name          string           `json:"name" binding:"required,max=255"`
	Description   string           `json:"description" binding:"max=1000"`
	QuantityStore types.Quantity   `json:"quantityStore" binding:"gte=0"`
	QuantityDepot types.Quantity   `json:"quantityDepot" binding:"gte=0"`
	SalePrice     *decimal.Decimal `json:"salePrice" binding:"required"`
}

// ToEntity converts DTO to domain entity.
func (r *CreateArticleRequest) ToEntity() *article.Article {
	a := article.NewArticle(r.Name, *r.SalePrice)
	a.Description = r.Description
	a.QuantityStore = r.QuantityStore
	a.QuantityDepot = r.QuantityDepot
	return a
}

// UpdateArticleRequest is the request body for updating an article.
type UpdateArticleRequest struct {
	Name          string           `json:"name" binding:"required,max=255"`
	Description   string           `json:"description" binding:"max=1000"`
	QuantityStore types.Quantity   `json:"quantityStore" binding:"gte=0"`
	QuantityDepot types.Quantity   `json:"quantityDepot" binding:"gte=0"`
	SalePrice     *decimal.Decimal `json:"salePrice" binding:"required"`
	Version       int              `json:"version" binding:"required,min=1"`
}

// ApplyTo updates existing entity from DTO.
func (r *UpdateArticleRequest) ApplyTo(a *article.Article) {
	a.Name = r.Name
	a.Description = r.Description
	a.QuantityStore = r.QuantityStore
	a.QuantityDepot = r.QuantityDepot
	a.SalePrice = *r.SalePrice
	a.Version = r.Version
}

// ArticleListQuery adds the stock level filter to the list parameters.
type ArticleListQuery struct {
	ListQuery
	StockLevel string `form:"stockLevel"`
}

// ToFilter converts the query into an article.ListFilter. An unknown level is
// rejected by the repository.
func (q ArticleListQuery) ToFilter() (article.ListFilter, error) {
	base, err := q.ListQuery.ToFilter("name")
	if err != nil {
		return article.ListFilter{}, err
	}
	return article.ListFilter{ListFilter: base, StockLevel: article.StockLevel(q.StockLevel)}, nil
}

// --- Response DTOs ---

// ArticleResponse is the response for an article.
type ArticleResponse struct {
	BaseResponse
	Name          string             `json:"name"`
	Description   string             `json:"description"`
	QuantityStore types.Quantity     `json:"quantityStore"`
	QuantityDepot types.Quantity     `json:"quantityDepot"`
	TotalStock    types.Quantity     `json:"totalStock"`
	StockLevel    article.StockLevel `json:"stockLevel"`
	SalePrice     string             `json:"salePrice"`
	Valuation     string             `json:"valuation"`
}

// FromArticle converts domain entity to response DTO.
func FromArticle(a *article.Article, threshold types.Quantity) ArticleResponse {
	return ArticleResponse{
		BaseResponse:  FromBase(a.BaseEntity),
		Name:          a.Name,
		Description:   a.Description,
		QuantityStore: a.QuantityStore,
		QuantityDepot: a.QuantityDepot,
		TotalStock:    a.TotalStock(),
		StockLevel:    a.StockLevel(threshold),
		SalePrice:     Money(a.SalePrice),
		Valuation:     Money(a.Valuation()),
	}
}
