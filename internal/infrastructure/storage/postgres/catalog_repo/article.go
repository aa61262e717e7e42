package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/id"
	"stockflow/internal/domain"
	"stockflow/internal/domain/catalogs/article"
	"stockflow/internal/infrastructure/storage/postgres"
)

const articleTable = "articles"

// totalStockExpr is the derived total stock of an article row.
const totalStockExpr = "(quantity_store + quantity_depot)"

// ArticleRepo implements article.Repository.
type ArticleRepo struct {
	*BaseCatalogRepo[*article.Article]
	batch *postgres.BatchExecutor
}

// NewArticleRepo creates a new article repository.
func NewArticleRepo(txManager *postgres.TxManager) *ArticleRepo {
	return &ArticleRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(
			txManager,
			articleTable,
			"article",
			postgres.ExtractDBColumns[article.Article](),
			func() *article.Article { return &article.Article{} },
		).WithSearch("name", "description"),
		batch: postgres.NewBatchExecutor(txManager),
	}
}

// ListArticles lists articles, optionally restricted to one stock level.
func (r *ArticleRepo) ListArticles(ctx context.Context, filter article.ListFilter) (domain.ListResult[*article.Article], error) {
	var where []squirrel.Sqlizer
	if filter.StockLevel != "" {
		cond, err := stockLevelCondition(filter.StockLevel, filter.LowStockThreshold)
		if err != nil {
			return domain.ListResult[*article.Article]{}, err
		}
		where = append(where, cond)
	}
	return r.ListWhere(ctx, filter.ListFilter, where...)
}

func stockLevelCondition(level article.StockLevel, threshold int64) (squirrel.Sqlizer, error) {
	switch level {
	case article.StockOut:
		return squirrel.Expr(totalStockExpr + " <= 0"), nil
	case article.StockLow:
		return squirrel.Expr(totalStockExpr+" > 0 AND "+totalStockExpr+" < ?", threshold), nil
	case article.StockIn:
		return squirrel.Expr(totalStockExpr+" >= ?", threshold), nil
	default:
		return nil, apperror.NewFieldValidation("stockLevel", "unknown stock level").
			WithDetail("value", string(level))
	}
}

// LockForStock reads and row-locks the given articles. Rows are locked in id
// order so concurrent movements touching the same articles cannot deadlock.
func (r *ArticleRepo) LockForStock(ctx context.Context, ids []id.ID) (map[id.ID]*article.Article, error) {
	result := make(map[id.ID]*article.Article, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	q := r.baseSelect().
		Where(squirrel.Eq{"id": ids}).
		OrderBy("id").
		Suffix("FOR UPDATE")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build lock query: %w", err)
	}

	var rows []*article.Article
	if err := pgxscan.Select(ctx, r.Querier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("lock articles: %w", err)
	}
	for _, a := range rows {
		result[a.ID] = a
	}
	return result, nil
}

// SaveStock writes new quantities in one round-trip. Must run inside the
// transaction holding the locks taken by LockForStock.
func (r *ArticleRepo) SaveStock(ctx context.Context, changes []article.StockChange) error {
	if len(changes) == 0 {
		return nil
	}

	queries := make([]postgres.BatchQuery, 0, len(changes))
	for _, c := range changes {
		sql, args, err := r.Builder().
			Update(articleTable).
			Set("quantity_store", c.QuantityStore).
			Set("quantity_depot", c.QuantityDepot).
			Set("version", squirrel.Expr("version + 1")).
			Set("updated_at", squirrel.Expr("now()")).
			Where(squirrel.Eq{"id": c.ArticleID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build stock update: %w", err)
		}
		queries = append(queries, postgres.BatchQuery{SQL: sql, Args: args})
	}

	tags, err := r.batch.ExecuteBatch(ctx, queries)
	if err != nil {
		return postgres.TranslateWriteError(fmt.Errorf("save stock: %w", err), "article", "id", "")
	}
	for i, tag := range tags {
		if tag.RowsAffected() == 0 {
			return apperror.NewNotFound("article", changes[i].ArticleID.String())
		}
	}
	return nil
}

var _ article.Repository = (*ArticleRepo)(nil)
