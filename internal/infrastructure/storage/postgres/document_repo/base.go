// Package document_repo provides PostgreSQL implementations for document repositories.
// Documents are a header row plus child rows (lines, items, payments).
package document_repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/id"
	"stockflow/internal/domain"
	"stockflow/internal/infrastructure/storage/postgres"
)

type synced interface {
	Synced(version int, updatedAt time.Time)
}

// BaseDocumentRepo provides header CRUD shared by document repositories.
type BaseDocumentRepo[T any] struct {
	txManager  *postgres.TxManager
	tableName  string
	entityName string
	selectCols []string
	// writeCols are the header columns actually stored in tableName.
	writeCols    []string
	orderCols    map[string]struct{}
	defaultOrder string
	newFn        func() T
}

// NewBaseDocumentRepo creates a new base document repository.
// Columns listed in derived are read-only projections filled by joins.
func NewBaseDocumentRepo[T any](
	txManager *postgres.TxManager,
	tableName string,
	entityName string,
	selectCols []string,
	defaultOrder string,
	newFn func() T,
	derived ...string,
) *BaseDocumentRepo[T] {
	skip := make(map[string]struct{}, len(derived))
	for _, c := range derived {
		skip[c] = struct{}{}
	}
	writeCols := make([]string, 0, len(selectCols))
	orderCols := make(map[string]struct{}, len(selectCols))
	for _, c := range selectCols {
		orderCols[c] = struct{}{}
		if _, ok := skip[c]; !ok {
			writeCols = append(writeCols, c)
		}
	}

	return &BaseDocumentRepo[T]{
		txManager:    txManager,
		tableName:    tableName,
		entityName:   entityName,
		selectCols:   selectCols,
		writeCols:    writeCols,
		orderCols:    orderCols,
		defaultOrder: defaultOrder,
		newFn:        newFn,
	}
}

// Builder returns a new squirrel builder.
func (r *BaseDocumentRepo[T]) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Querier returns the transaction bound to ctx, or the pool.
func (r *BaseDocumentRepo[T]) Querier(ctx context.Context) postgres.Querier {
	return r.txManager.GetQuerier(ctx)
}

// createHeader inserts the header row.
func (r *BaseDocumentRepo[T]) createHeader(ctx context.Context, entity T, uniqueField, uniqueValue string) error {
	data := postgres.ColumnMap(entity, r.writeCols)
	if len(data) == 0 {
		return fmt.Errorf("no db tags found in entity")
	}
	if v, ok := data["version"].(int); ok && v == 0 {
		data["version"] = 1
	}

	sql, args, err := r.Builder().
		Insert(r.tableName).
		SetMap(data).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.Querier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.TranslateWriteError(fmt.Errorf("insert %s: %w", r.tableName, err), r.entityName, uniqueField, uniqueValue)
	}
	return nil
}

// updateHeader updates the header row with optimistic locking.
// On success the entity carries the new version and update time.
func (r *BaseDocumentRepo[T]) updateHeader(ctx context.Context, entity T, uniqueField, uniqueValue string) error {
	data := postgres.StructToMap(entity)
	entityID, ok := data["id"]
	if !ok {
		return fmt.Errorf("entity has no 'id' field")
	}
	version, ok := data["version"].(int)
	if !ok {
		return fmt.Errorf("entity has no 'version' field or it is not an int")
	}

	setData := postgres.ColumnMap(entity, r.writeCols, "id", "version", "created_at")
	now := time.Now().UTC()
	setData["updated_at"] = now

	sql, args, err := r.Builder().
		Update(r.tableName).
		SetMap(setData).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": entityID}).
		Where(squirrel.Eq{"version": version}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.Querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.TranslateWriteError(fmt.Errorf("update %s: %w", r.tableName, err), r.entityName, uniqueField, uniqueValue)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification(r.entityName, entityID).
			WithDetail("expectedVersion", version)
	}

	if s, ok := any(entity).(synced); ok {
		s.Synced(version+1, now)
	}
	return nil
}

// Delete removes the header row. Child rows go with it (ON DELETE CASCADE);
// rows referencing the document from elsewhere make it a conflict.
func (r *BaseDocumentRepo[T]) Delete(ctx context.Context, entityID id.ID) error {
	sql, args, err := r.Builder().
		Delete(r.tableName).
		Where(squirrel.Eq{"id": entityID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	result, err := r.Querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		if translated := postgres.TranslateDeleteError(err, r.entityName, entityID.String()); translated != err {
			return translated
		}
		return fmt.Errorf("delete %s: %w", r.tableName, err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound(r.entityName, entityID.String())
	}
	return nil
}

// baseSelect creates a SELECT builder. Repositories with derived columns override it.
func (r *BaseDocumentRepo[T]) baseSelect() squirrel.SelectBuilder {
	return r.Builder().
		Select(r.selectCols...).
		From(r.tableName)
}

// getHeader runs q and scans exactly one header.
func (r *BaseDocumentRepo[T]) getHeader(ctx context.Context, q squirrel.SelectBuilder, key string) (T, error) {
	entity := r.newFn()

	sql, args, err := q.ToSql()
	if err != nil {
		return entity, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Get(ctx, r.Querier(ctx), entity, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return entity, apperror.NewNotFound(r.entityName, key)
		}
		return entity, fmt.Errorf("get %s: %w", r.entityName, err)
	}
	return entity, nil
}

// existsWhere reports whether a header row matches cond.
func (r *BaseDocumentRepo[T]) existsWhere(ctx context.Context, cond squirrel.Sqlizer) (bool, error) {
	sub := r.Builder().Select("1").From(r.tableName).Where(cond)
	subSQL, args, err := sub.ToSql()
	if err != nil {
		return false, fmt.Errorf("build exists: %w", err)
	}

	var exists bool
	if err := r.Querier(ctx).QueryRow(ctx, "SELECT EXISTS ("+subSQL+")", args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("exists %s: %w", r.tableName, err)
	}
	return exists, nil
}

// listPage counts q, then orders and pages it.
func (r *BaseDocumentRepo[T]) listPage(ctx context.Context, q squirrel.SelectBuilder, filter domain.ListFilter) (domain.ListResult[T], error) {
	result := domain.ListResult[T]{
		Items:  []T{},
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	if len(filter.IDs) > 0 {
		q = q.Where(squirrel.Eq{r.tableName + ".id": filter.IDs})
	}

	countSQL, countArgs, err := r.Builder().Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}

	querier := r.Querier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count: %w", err)
	}

	orderBy, err := r.parseOrderBy(filter.OrderBy)
	if err != nil {
		return result, err
	}
	q = q.OrderBy(orderBy, r.tableName+".id DESC")

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list %s: %w", r.tableName, err)
	}
	return result, nil
}

func (r *BaseDocumentRepo[T]) parseOrderBy(orderBy string) (string, error) {
	if strings.TrimSpace(orderBy) == "" {
		return r.defaultOrder, nil
	}

	direction := "ASC"
	field := orderBy
	if strings.HasPrefix(orderBy, "-") {
		direction = "DESC"
		field = strings.TrimPrefix(orderBy, "-")
	} else if strings.HasPrefix(orderBy, "+") {
		field = strings.TrimPrefix(orderBy, "+")
	}

	field = strings.TrimSpace(field)
	if field == "" {
		return "", apperror.NewValidation("invalid orderBy").WithDetail("orderBy", orderBy)
	}

	if _, ok := r.orderCols[field]; !ok {
		return "", apperror.NewValidation("invalid orderBy").WithDetail("orderBy", orderBy).WithDetail("field", field)
	}

	return field + " " + direction, nil
}

// escapeLike escapes LIKE wildcards in user input.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
