package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/id"
	"stockflow/internal/domain"
	"stockflow/internal/domain/catalogs/client"
	"stockflow/internal/domain/documents/invoice"
	"stockflow/internal/infrastructure/storage/postgres"
)

const (
	invoicesTable     = "invoices"
	invoiceItemsTable = "invoice_items"
	paymentsTable     = "payments"
)

var (
	invoiceItemColumns = []string{"id", "invoice_id", "line_no", "name", "description", "unit_price", "quantity"}
	paymentColumns     = []string{"id", "invoice_id", "amount", "note", "created_at"}
)

// InvoiceRepo implements invoice.Repository.
type InvoiceRepo struct {
	*BaseDocumentRepo[*invoice.Invoice]
	inserter *postgres.BatchInserter
}

// NewInvoiceRepo creates a new invoice repository.
func NewInvoiceRepo(txManager *postgres.TxManager) *InvoiceRepo {
	return &InvoiceRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			invoicesTable,
			"invoice",
			postgres.ExtractDBColumns[invoice.Invoice](),
			"created_at DESC",
			func() *invoice.Invoice { return &invoice.Invoice{} },
		),
		inserter: postgres.NewBatchInserter(txManager),
	}
}

// Create inserts the header and its free items.
func (r *InvoiceRepo) Create(ctx context.Context, inv *invoice.Invoice) error {
	if err := r.createHeader(ctx, inv, "number", inv.Number); err != nil {
		return err
	}
	return r.insertItems(ctx, inv)
}

// Update writes the header and replaces the free items. Payments are untouched.
func (r *InvoiceRepo) Update(ctx context.Context, inv *invoice.Invoice) error {
	if err := r.updateHeader(ctx, inv, "number", inv.Number); err != nil {
		return err
	}

	deleteSQL := "DELETE FROM " + invoiceItemsTable + " WHERE invoice_id = $1"
	if _, err := r.Querier(ctx).Exec(ctx, deleteSQL, inv.ID); err != nil {
		return fmt.Errorf("delete invoice items: %w", err)
	}
	return r.insertItems(ctx, inv)
}

func (r *InvoiceRepo) insertItems(ctx context.Context, inv *invoice.Invoice) error {
	rows := make([][]any, 0, len(inv.Items))
	for _, it := range inv.Items {
		rows = append(rows, []any{it.ID, inv.ID, it.LineNo, it.Name, it.Description, it.UnitPrice, it.Quantity.Int64()})
	}
	if _, err := r.inserter.CopyFromSlice(ctx, invoiceItemsTable, invoiceItemColumns, rows); err != nil {
		return postgres.TranslateWriteError(err, "invoice_item", "id", "")
	}
	return nil
}

// GetByID retrieves a fully loaded invoice.
func (r *InvoiceRepo) GetByID(ctx context.Context, invoiceID id.ID) (*invoice.Invoice, error) {
	return r.getLoaded(ctx, r.baseSelect().Where(squirrel.Eq{"id": invoiceID}), invoiceID.String())
}

// GetForUpdate retrieves a fully loaded invoice with its header row locked.
func (r *InvoiceRepo) GetForUpdate(ctx context.Context, invoiceID id.ID) (*invoice.Invoice, error) {
	return r.getLoaded(ctx, r.baseSelect().Where(squirrel.Eq{"id": invoiceID}).Suffix("FOR UPDATE"), invoiceID.String())
}

func (r *InvoiceRepo) getLoaded(ctx context.Context, q squirrel.SelectBuilder, key string) (*invoice.Invoice, error) {
	inv, err := r.getHeader(ctx, q, key)
	if err != nil {
		return nil, err
	}
	if err := r.hydrate(ctx, []*invoice.Invoice{inv}); err != nil {
		return nil, err
	}
	return inv, nil
}

// ExistsByNumber reports whether another invoice carries number.
func (r *InvoiceRepo) ExistsByNumber(ctx context.Context, number string, excludeID *id.ID) (bool, error) {
	cond := squirrel.And{squirrel.Eq{"number": number}}
	if excludeID != nil {
		cond = append(cond, squirrel.NotEq{"id": *excludeID})
	}
	return r.existsWhere(ctx, cond)
}

// List retrieves a page of fully loaded invoices.
func (r *InvoiceRepo) List(ctx context.Context, filter invoice.ListFilter) (domain.ListResult[*invoice.Invoice], error) {
	q := r.baseSelect()

	if filter.Status != "" {
		q = q.Where(squirrel.Eq{"status": filter.Status})
	}
	if filter.ClientID != nil {
		q = q.Where(squirrel.Eq{"client_id": *filter.ClientID})
	}
	if filter.Search != "" {
		pattern := "%" + escapeLike(filter.Search) + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"number": pattern},
			squirrel.ILike{"delivery_note_number": pattern},
		})
	}

	result, err := r.listPage(ctx, q, filter.ListFilter)
	if err != nil {
		return result, err
	}
	if err := r.hydrate(ctx, result.Items); err != nil {
		return result, err
	}
	return result, nil
}

// ListDetailed returns every invoice matching filter, oldest first.
func (r *InvoiceRepo) ListDetailed(ctx context.Context, filter invoice.DetailFilter) ([]*invoice.Invoice, error) {
	sql, args, err := r.detailedQuery(filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var invoices []*invoice.Invoice
	if err := pgxscan.Select(ctx, r.Querier(ctx), &invoices, sql, args...); err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	if err := r.hydrate(ctx, invoices); err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *InvoiceRepo) detailedQuery(filter invoice.DetailFilter) squirrel.SelectBuilder {
	q := r.baseSelect().OrderBy("created_at", "id")
	if filter.Status != "" {
		q = q.Where(squirrel.Eq{"status": filter.Status})
	}
	if filter.ClientID != nil {
		q = q.Where(squirrel.Eq{"client_id": *filter.ClientID})
	}
	if filter.CreatedFrom != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *filter.CreatedFrom})
	}
	if filter.CreatedTo != nil {
		q = q.Where(squirrel.LtOrEq{"created_at": *filter.CreatedTo})
	}
	return q
}

// hydrate loads the child rows and linked records of invoices, one query per kind.
func (r *InvoiceRepo) hydrate(ctx context.Context, invoices []*invoice.Invoice) error {
	if len(invoices) == 0 {
		return nil
	}

	byID := make(map[id.ID]*invoice.Invoice, len(invoices))
	ids := make([]id.ID, 0, len(invoices))
	var movementIDs, clientIDs []id.ID
	for _, inv := range invoices {
		inv.Items = []invoice.Item{}
		inv.Payments = []invoice.Payment{}
		inv.MovementLines = []invoice.MovementLine{}
		inv.StockMovementCode = ""
		inv.Client = nil

		byID[inv.ID] = inv
		ids = append(ids, inv.ID)
		if inv.StockMovementID != nil {
			movementIDs = append(movementIDs, *inv.StockMovementID)
		}
		if inv.ClientID != nil {
			clientIDs = append(clientIDs, *inv.ClientID)
		}
	}

	querier := r.Querier(ctx)

	items, err := r.selectItems(ctx, ids)
	if err != nil {
		return err
	}
	for _, it := range items {
		if inv, ok := byID[it.InvoiceID]; ok {
			inv.Items = append(inv.Items, it)
		}
	}

	payments, err := r.selectPayments(ctx, squirrel.Eq{"invoice_id": ids})
	if err != nil {
		return err
	}
	for _, p := range payments {
		if inv, ok := byID[p.InvoiceID]; ok {
			inv.Payments = append(inv.Payments, *p)
		}
	}

	if len(movementIDs) > 0 {
		codes, err := r.movementCodes(ctx, movementIDs)
		if err != nil {
			return err
		}
		lines, err := pricedLines(ctx, r.Builder(), querier, movementIDs)
		if err != nil {
			return err
		}
		for _, inv := range invoices {
			if inv.StockMovementID == nil {
				continue
			}
			inv.StockMovementCode = codes[*inv.StockMovementID]
			if l := lines[*inv.StockMovementID]; l != nil {
				inv.MovementLines = l
			}
		}
	}

	if len(clientIDs) > 0 {
		clients, err := r.clientSummaries(ctx, clientIDs)
		if err != nil {
			return err
		}
		for _, inv := range invoices {
			if inv.ClientID != nil {
				inv.Client = clients[*inv.ClientID]
			}
		}
	}

	return nil
}

func (r *InvoiceRepo) selectItems(ctx context.Context, invoiceIDs []id.ID) ([]invoice.Item, error) {
	sql, args, err := r.Builder().
		Select(invoiceItemColumns...).
		From(invoiceItemsTable).
		Where(squirrel.Eq{"invoice_id": invoiceIDs}).
		OrderBy("invoice_id", "line_no").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build items query: %w", err)
	}

	var items []invoice.Item
	if err := pgxscan.Select(ctx, r.Querier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("get invoice items: %w", err)
	}
	return items, nil
}

func (r *InvoiceRepo) selectPayments(ctx context.Context, where squirrel.Sqlizer) ([]*invoice.Payment, error) {
	sql, args, err := r.Builder().
		Select(paymentColumns...).
		From(paymentsTable).
		Where(where).
		OrderBy("created_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build payments query: %w", err)
	}

	var payments []*invoice.Payment
	if err := pgxscan.Select(ctx, r.Querier(ctx), &payments, sql, args...); err != nil {
		return nil, fmt.Errorf("get payments: %w", err)
	}
	return payments, nil
}

func (r *InvoiceRepo) movementCodes(ctx context.Context, movementIDs []id.ID) (map[id.ID]string, error) {
	sql, args, err := r.Builder().
		Select("id", "code").
		From(stockMovementsTable).
		Where(squirrel.Eq{"id": movementIDs}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build movement codes query: %w", err)
	}

	var rows []struct {
		ID   id.ID  `db:"id"`
		Code string `db:"code"`
	}
	if err := pgxscan.Select(ctx, r.Querier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("get movement codes: %w", err)
	}

	out := make(map[id.ID]string, len(rows))
	for _, row := range rows {
		out[row.ID] = row.Code
	}
	return out, nil
}

func (r *InvoiceRepo) clientSummaries(ctx context.Context, clientIDs []id.ID) (map[id.ID]*invoice.ClientSummary, error) {
	sql, args, err := r.Builder().
		Select("id", "name", "type").
		From("clients").
		Where(squirrel.Eq{"id": clientIDs}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build clients query: %w", err)
	}

	var rows []struct {
		ID   id.ID       `db:"id"`
		Name string      `db:"name"`
		Type client.Type `db:"type"`
	}
	if err := pgxscan.Select(ctx, r.Querier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("get client summaries: %w", err)
	}

	out := make(map[id.ID]*invoice.ClientSummary, len(rows))
	for _, row := range rows {
		out[row.ID] = &invoice.ClientSummary{ID: row.ID, Name: row.Name, Type: row.Type}
	}
	return out, nil
}

// AddPayment records a payment.
func (r *InvoiceRepo) AddPayment(ctx context.Context, p *invoice.Payment) error {
	sql, args, err := r.Builder().
		Insert(paymentsTable).
		Columns(paymentColumns...).
		Values(p.ID, p.InvoiceID, p.Amount, p.Note, p.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert payment: %w", err)
	}

	if _, err := r.Querier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.TranslateWriteError(fmt.Errorf("insert payment: %w", err), "payment", "id", p.ID.String())
	}
	return nil
}

// GetPayment retrieves one payment.
func (r *InvoiceRepo) GetPayment(ctx context.Context, paymentID id.ID) (*invoice.Payment, error) {
	payments, err := r.selectPayments(ctx, squirrel.Eq{"id": paymentID})
	if err != nil {
		return nil, err
	}
	if len(payments) == 0 {
		return nil, apperror.NewNotFound("payment", paymentID.String())
	}
	return payments[0], nil
}

// DeletePayment removes one payment.
func (r *InvoiceRepo) DeletePayment(ctx context.Context, paymentID id.ID) error {
	result, err := r.Querier(ctx).Exec(ctx, "DELETE FROM "+paymentsTable+" WHERE id = $1", paymentID)
	if err != nil {
		return fmt.Errorf("delete payment: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("payment", paymentID.String())
	}
	return nil
}

var _ invoice.Repository = (*InvoiceRepo)(nil)
