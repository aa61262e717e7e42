package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/id"
	"stockflow/internal/domain"
	"stockflow/internal/domain/documents/invoice"
	"stockflow/internal/domain/documents/stock_movement"
	"stockflow/internal/infrastructure/storage/postgres"
)

const (
	stockMovementsTable     = "stock_movements"
	stockMovementLinesTable = "stock_movement_lines"
)

var movementLineColumns = []string{"id", "movement_id", "line_no", "article_id", "quantity", "location"}

// StockMovementRepo implements stock_movement.Repository and invoice.MovementDirectory.
type StockMovementRepo struct {
	*BaseDocumentRepo[*stock_movement.StockMovement]
	inserter *postgres.BatchInserter
}

// NewStockMovementRepo creates a new stock movement repository.
func NewStockMovementRepo(txManager *postgres.TxManager) *StockMovementRepo {
	return &StockMovementRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			stockMovementsTable,
			"stock_movement",
			postgres.ExtractDBColumns[stock_movement.StockMovement](),
			"created_at DESC",
			func() *stock_movement.StockMovement { return &stock_movement.StockMovement{} },
		),
		inserter: postgres.NewBatchInserter(txManager),
	}
}

// Create inserts the header and its lines.
func (r *StockMovementRepo) Create(ctx context.Context, m *stock_movement.StockMovement) error {
	if err := r.createHeader(ctx, m, "code", m.Code); err != nil {
		return err
	}
	return r.insertLines(ctx, m)
}

// Update writes the header and replaces the lines.
func (r *StockMovementRepo) Update(ctx context.Context, m *stock_movement.StockMovement) error {
	if err := r.updateHeader(ctx, m, "code", m.Code); err != nil {
		return err
	}

	deleteSQL := "DELETE FROM " + stockMovementLinesTable + " WHERE movement_id = $1"
	if _, err := r.Querier(ctx).Exec(ctx, deleteSQL, m.ID); err != nil {
		return fmt.Errorf("delete movement lines: %w", err)
	}
	return r.insertLines(ctx, m)
}

func (r *StockMovementRepo) insertLines(ctx context.Context, m *stock_movement.StockMovement) error {
	rows := make([][]any, 0, len(m.Lines))
	for _, l := range m.Lines {
		rows = append(rows, []any{l.ID, m.ID, l.LineNo, l.ArticleID, l.Quantity.Int64(), string(l.Location)})
	}
	if _, err := r.inserter.CopyFromSlice(ctx, stockMovementLinesTable, movementLineColumns, rows); err != nil {
		return postgres.TranslateWriteError(err, "stock_movement_line", "id", "")
	}
	return nil
}

// GetByID retrieves a movement with its lines.
func (r *StockMovementRepo) GetByID(ctx context.Context, movementID id.ID) (*stock_movement.StockMovement, error) {
	return r.getWithLines(ctx, r.baseSelect().Where(squirrel.Eq{"id": movementID}), movementID.String())
}

// GetByCode retrieves a movement by its business code.
func (r *StockMovementRepo) GetByCode(ctx context.Context, code string) (*stock_movement.StockMovement, error) {
	return r.getWithLines(ctx, r.baseSelect().Where(squirrel.Eq{"code": code}), code)
}

// GetForUpdate retrieves a movement with its header row locked.
func (r *StockMovementRepo) GetForUpdate(ctx context.Context, movementID id.ID) (*stock_movement.StockMovement, error) {
	return r.getWithLines(ctx, r.baseSelect().Where(squirrel.Eq{"id": movementID}).Suffix("FOR UPDATE"), movementID.String())
}

func (r *StockMovementRepo) getWithLines(ctx context.Context, q squirrel.SelectBuilder, key string) (*stock_movement.StockMovement, error) {
	m, err := r.getHeader(ctx, q, key)
	if err != nil {
		return nil, err
	}
	if err := r.loadLines(ctx, []*stock_movement.StockMovement{m}); err != nil {
		return nil, err
	}
	return m, nil
}

// ExistsByCode reports whether a movement carries code.
func (r *StockMovementRepo) ExistsByCode(ctx context.Context, code string) (bool, error) {
	return r.existsWhere(ctx, squirrel.Eq{"code": code})
}

// List retrieves movements with their lines.
func (r *StockMovementRepo) List(ctx context.Context, filter stock_movement.ListFilter) (domain.ListResult[*stock_movement.StockMovement], error) {
	q := r.baseSelect()

	if filter.Type != "" {
		q = q.Where(squirrel.Eq{"type": filter.Type})
	}
	if filter.ArticleID != nil {
		q = q.Where(squirrel.Expr(
			"EXISTS (SELECT 1 FROM "+stockMovementLinesTable+" l WHERE l.movement_id = "+stockMovementsTable+".id AND l.article_id = ?)",
			*filter.ArticleID,
		))
	}
	if filter.Search != "" {
		pattern := "%" + escapeLike(filter.Search) + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"code": pattern},
			squirrel.ILike{"reason": pattern},
		})
	}

	result, err := r.listPage(ctx, q, filter.ListFilter)
	if err != nil {
		return result, err
	}
	if err := r.loadLines(ctx, result.Items); err != nil {
		return result, err
	}
	return result, nil
}

// loadLines fills Lines of every movement with one query.
func (r *StockMovementRepo) loadLines(ctx context.Context, movements []*stock_movement.StockMovement) error {
	if len(movements) == 0 {
		return nil
	}
	byID := make(map[id.ID]*stock_movement.StockMovement, len(movements))
	ids := make([]id.ID, 0, len(movements))
	for _, m := range movements {
		m.Lines = []stock_movement.Line{}
		byID[m.ID] = m
		ids = append(ids, m.ID)
	}

	sql, args, err := r.Builder().
		Select(
			"l.id", "l.movement_id", "l.line_no", "l.article_id",
			"l.quantity", "l.location", "a.name AS article_name",
		).
		From(stockMovementLinesTable + " l").
		Join("articles a ON a.id = l.article_id").
		Where(squirrel.Eq{"l.movement_id": ids}).
		OrderBy("l.movement_id", "l.line_no").
		ToSql()
	if err != nil {
		return fmt.Errorf("build lines query: %w", err)
	}

	var lines []stock_movement.Line
	if err := pgxscan.Select(ctx, r.Querier(ctx), &lines, sql, args...); err != nil {
		return fmt.Errorf("get movement lines: %w", err)
	}
	for _, l := range lines {
		if m, ok := byID[l.MovementID]; ok {
			m.Lines = append(m.Lines, l)
		}
	}
	return nil
}

// FindIDByCode implements invoice.MovementDirectory.
func (r *StockMovementRepo) FindIDByCode(ctx context.Context, code string) (id.ID, error) {
	sql, args, err := r.Builder().
		Select("id").
		From(stockMovementsTable).
		Where(squirrel.Eq{"code": code}).
		ToSql()
	if err != nil {
		return id.Nil(), fmt.Errorf("build query: %w", err)
	}

	var movementID id.ID
	if err := pgxscan.Get(ctx, r.Querier(ctx), &movementID, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return id.Nil(), apperror.NewNotFound("stock_movement", code)
		}
		return id.Nil(), fmt.Errorf("find movement by code: %w", err)
	}
	return movementID, nil
}

// PricedLines implements invoice.MovementDirectory.
// Lines are priced at the articles' current sale prices.
func (r *StockMovementRepo) PricedLines(ctx context.Context, movementID id.ID) ([]invoice.MovementLine, error) {
	byMovement, err := pricedLines(ctx, r.Builder(), r.Querier(ctx), []id.ID{movementID})
	if err != nil {
		return nil, err
	}
	return byMovement[movementID], nil
}

type pricedLineRow struct {
	MovementID id.ID `db:"movement_id"`
	invoice.MovementLine
}

// pricedLines loads the priced lines of several movements at once.
func pricedLines(ctx context.Context, b squirrel.StatementBuilderType, q postgres.Querier, movementIDs []id.ID) (map[id.ID][]invoice.MovementLine, error) {
	out := make(map[id.ID][]invoice.MovementLine, len(movementIDs))
	if len(movementIDs) == 0 {
		return out, nil
	}

	sql, args, err := b.
		Select(
			"l.movement_id", "l.article_id", "a.name AS article_name",
			"l.quantity", "l.location", "a.sale_price AS unit_price",
		).
		From(stockMovementLinesTable + " l").
		Join("articles a ON a.id = l.article_id").
		Where(squirrel.Eq{"l.movement_id": movementIDs}).
		OrderBy("l.movement_id", "l.line_no").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build priced lines query: %w", err)
	}

	var rows []pricedLineRow
	if err := pgxscan.Select(ctx, q, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("get priced lines: %w", err)
	}
	for _, row := range rows {
		out[row.MovementID] = append(out[row.MovementID], row.MovementLine)
	}
	return out, nil
}

var (
	_ stock_movement.Repository = (*StockMovementRepo)(nil)
	_ invoice.MovementDirectory = (*StockMovementRepo)(nil)
)
