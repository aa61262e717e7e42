package v1

import (
	"github.com/gin-gonic/gin"
)

// CRUDRouteHandler defines the interface for resource handlers.
// All resource handlers must implement these methods.
type CRUDRouteHandler interface {
	List(c *gin.Context)
	Create(c *gin.Context)
	Get(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
}

// RegisterCRUDRoutes registers standard CRUD routes for a resource.
//
// Usage:
//
//	repo := document_repo.NewPendingArticleRepo(txManager)
//	service := pending_article.NewService(pending_article.ServiceConfig{Repo: repo, ...})
//	handler := handlers.NewPendingArticleHandler(baseHandler, service)
//	RegisterCRUDRoutes(api.Group("/pending-articles"), handler)
func RegisterCRUDRoutes(group *gin.RouterGroup, handler CRUDRouteHandler) {
	group.GET("", handler.List)
	group.POST("", handler.Create)
	group.GET("/:id", handler.Get)
	group.PUT("/:id", handler.Update)
	group.DELETE("/:id", handler.Delete)
}

// RegisterCatalogRoutes registers the routes of a reference entity (articles, clients).
// Updates accept PATCH as well as PUT; both carry the full entity with its version.
func RegisterCatalogRoutes(group *gin.RouterGroup, handler CRUDRouteHandler) {
	RegisterCRUDRoutes(group, handler)
	group.PATCH("/:id", handler.Update)
}
