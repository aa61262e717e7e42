package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"stockflow/internal/core/types"
	"stockflow/internal/domain"
	"stockflow/internal/domain/catalogs/article"
	"stockflow/internal/infrastructure/http/v1/dto"
)

// ArticleService is what the article handler needs. article.Service implements it.
type ArticleService interface {
	CatalogService[*article.Article]
	ListArticles(ctx context.Context, filter article.ListFilter) (domain.ListResult[*article.Article], error)
	LowStockThreshold() types.Quantity
}

// ArticleHandler handles HTTP requests for articles.
type ArticleHandler struct {
	*CatalogHandler[*article.Article, dto.CreateArticleRequest, dto.UpdateArticleRequest]
	service ArticleService
}

// NewArticleHandler creates a new article handler.
func NewArticleHandler(base *BaseHandler, service ArticleService) *ArticleHandler {
	threshold := service.LowStockThreshold()
	toDTO := func(a *article.Article) any { return dto.FromArticle(a, threshold) }

	return &ArticleHandler{
		CatalogHandler: NewCatalogHandler(base, CatalogHandlerConfig[*article.Article, dto.CreateArticleRequest, dto.UpdateArticleRequest]{
			Service:      service,
			MapCreateDTO: (*dto.CreateArticleRequest).ToEntity,
			ApplyUpdate:  (*dto.UpdateArticleRequest).ApplyTo,
			MapToDTO:     toDTO,
		}),
		service: service,
	}
}

// List handles GET /articles. stockLevel keeps one availability class.
func (h *ArticleHandler) List(c *gin.Context) {
	var q dto.ArticleListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.service.ListArticles(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	threshold := h.service.LowStockThreshold()
	h.OK(c, dto.NewListResponse(result, func(a *article.Article) dto.ArticleResponse {
		return dto.FromArticle(a, threshold)
	}))
}
