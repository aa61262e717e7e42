package document_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"stockflow/internal/core/id"
	"stockflow/internal/domain"
	"stockflow/internal/domain/documents/pending_article"
	"stockflow/internal/infrastructure/storage/postgres"
)

const pendingArticlesTable = "pending_articles"

// articleNameExpr projects the awaited article's name without a join.
const articleNameExpr = "(SELECT a.name FROM articles a WHERE a.id = " + pendingArticlesTable + ".article_id)"

// PendingArticleRepo implements pending_article.Repository.
type PendingArticleRepo struct {
	*BaseDocumentRepo[*pending_article.PendingArticle]
}

// NewPendingArticleRepo creates a new pending article repository.
func NewPendingArticleRepo(txManager *postgres.TxManager) *PendingArticleRepo {
	return &PendingArticleRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			pendingArticlesTable,
			"pending_article",
			postgres.ExtractDBColumns[pending_article.PendingArticle](),
			"created_at DESC",
			func() *pending_article.PendingArticle { return &pending_article.PendingArticle{} },
			"article_name",
		),
	}
}

// baseSelect reads the stored columns plus the article name.
func (r *PendingArticleRepo) baseSelect() squirrel.SelectBuilder {
	return r.Builder().
		Select(r.writeCols...).
		Column(articleNameExpr + " AS article_name").
		From(pendingArticlesTable)
}

// Create inserts a pending article.
func (r *PendingArticleRepo) Create(ctx context.Context, p *pending_article.PendingArticle) error {
	return r.createHeader(ctx, p, "id", p.ID.String())
}

// Update writes all stored columns with an optimistic lock.
func (r *PendingArticleRepo) Update(ctx context.Context, p *pending_article.PendingArticle) error {
	return r.updateHeader(ctx, p, "id", p.ID.String())
}

// GetByID retrieves a pending article.
func (r *PendingArticleRepo) GetByID(ctx context.Context, pendingID id.ID) (*pending_article.PendingArticle, error) {
	return r.getHeader(ctx, r.baseSelect().Where(squirrel.Eq{"id": pendingID}), pendingID.String())
}

// GetForUpdate retrieves a pending article with its row locked.
func (r *PendingArticleRepo) GetForUpdate(ctx context.Context, pendingID id.ID) (*pending_article.PendingArticle, error) {
	return r.getHeader(ctx, r.baseSelect().Where(squirrel.Eq{"id": pendingID}).Suffix("FOR UPDATE"), pendingID.String())
}

// List retrieves pending articles.
func (r *PendingArticleRepo) List(ctx context.Context, filter pending_article.ListFilter) (domain.ListResult[*pending_article.PendingArticle], error) {
	q := r.baseSelect()

	if filter.Status != "" {
		q = q.Where(squirrel.Eq{"status": filter.Status})
	}
	if filter.ArticleID != nil {
		q = q.Where(squirrel.Eq{"article_id": *filter.ArticleID})
	}
	if filter.Search != "" {
		pattern := "%" + escapeLike(filter.Search) + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"note": pattern},
			squirrel.Expr(articleNameExpr+" ILIKE ?", pattern),
		})
	}

	return r.listPage(ctx, q, filter.ListFilter)
}

var _ pending_article.Repository = (*PendingArticleRepo)(nil)
