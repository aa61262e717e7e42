package invoice

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/id"
	"stockflow/internal/core/tx"
	"stockflow/internal/core/types"
	"stockflow/internal/domain"
	"stockflow/internal/domain/catalogs/article"
	"stockflow/internal/domain/catalogs/client"
)

type memRepo struct {
	invoices map[id.ID]*Invoice
	payments map[id.ID]Payment
}

func newMemRepo() *memRepo {
	return &memRepo{
		invoices: make(map[id.ID]*Invoice),
		payments: make(map[id.ID]Payment),
	}
}

func (r *memRepo) load(inv *Invoice) *Invoice {
	c := *inv
	c.Items = append([]Item(nil), inv.Items...)
	c.MovementLines = append([]MovementLine(nil), inv.MovementLines...)
	c.Payments = nil
	for _, p := range r.payments {
		if p.InvoiceID == inv.ID {
			c.Payments = append(c.Payments, p)
		}
	}
	return &c
}

func (r *memRepo) Create(_ context.Context, inv *Invoice) error {
	r.invoices[inv.ID] = r.load(inv)
	return nil
}

func (r *memRepo) GetByID(_ context.Context, invoiceID id.ID) (*Invoice, error) {
	inv, ok := r.invoices[invoiceID]
	if !ok {
		return nil, apperror.NewNotFound("invoice", invoiceID.String())
	}
	return r.load(inv), nil
}

func (r *memRepo) GetForUpdate(ctx context.Context, invoiceID id.ID) (*Invoice, error) {
	return r.GetByID(ctx, invoiceID)
}

func (r *memRepo) ExistsByNumber(_ context.Context, number string, excludeID *id.ID) (bool, error) {
	for _, inv := range r.invoices {
		if inv.Number == number && (excludeID == nil || inv.ID != *excludeID) {
			return true, nil
		}
	}
	return false, nil
}

func (r *memRepo) Update(_ context.Context, inv *Invoice) error {
	current, ok := r.invoices[inv.ID]
	if !ok || current.Version != inv.Version {
		return apperror.NewConcurrentModification("invoice", inv.ID.String())
	}
	inv.SetVersion(inv.Version + 1)
	r.invoices[inv.ID] = r.load(inv)
	return nil
}

func (r *memRepo) Delete(_ context.Context, invoiceID id.ID) error {
	delete(r.invoices, invoiceID)
	for pid, p := range r.payments {
		if p.InvoiceID == invoiceID {
			delete(r.payments, pid)
		}
	}
	return nil
}

func (r *memRepo) List(_ context.Context, filter ListFilter) (domain.ListResult[*Invoice], error) {
	var res domain.ListResult[*Invoice]
	for _, inv := range r.invoices {
		if filter.Status != "" && inv.Status != filter.Status {
			continue
		}
		res.Items = append(res.Items, r.load(inv))
	}
	res.TotalCount = int64(len(res.Items))
	return res, nil
}

func (r *memRepo) ListDetailed(ctx context.Context, filter DetailFilter) ([]*Invoice, error) {
	res, err := r.List(ctx, ListFilter{Status: filter.Status})
	return res.Items, err
}

func (r *memRepo) AddPayment(_ context.Context, p *Payment) error {
	r.payments[p.ID] = *p
	return nil
}

func (r *memRepo) GetPayment(_ context.Context, paymentID id.ID) (*Payment, error) {
	p, ok := r.payments[paymentID]
	if !ok {
		return nil, apperror.NewNotFound("payment", paymentID.String())
	}
	return &p, nil
}

func (r *memRepo) DeletePayment(_ context.Context, paymentID id.ID) error {
	delete(r.payments, paymentID)
	return nil
}

type memMovements struct {
	codes map[string]id.ID
	lines map[id.ID][]MovementLine
}

func (m *memMovements) FindIDByCode(_ context.Context, code string) (id.ID, error) {
	movementID, ok := m.codes[code]
	if !ok {
		return id.Nil(), apperror.NewNotFound("stock_movement", code)
	}
	return movementID, nil
}

func (m *memMovements) PricedLines(_ context.Context, movementID id.ID) ([]MovementLine, error) {
	return m.lines[movementID], nil
}

type memClients map[id.ID]*ClientSummary

func (m memClients) GetSummary(_ context.Context, clientID id.ID) (*ClientSummary, error) {
	c, ok := m[clientID]
	if !ok {
		return nil, apperror.NewNotFound("client", clientID.String())
	}
	return c, nil
}

type recorder struct {
	events  []domain.Event
	actions []domain.AuditAction
}

func (r *recorder) Publish(_ context.Context, e domain.Event) error {
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) LogChange(_ context.Context, _ string, _ id.ID, action domain.AuditAction, _ map[string]any) error {
	r.actions = append(r.actions, action)
	return nil
}

type fixture struct {
	svc        *Service
	repo       *memRepo
	rec        *recorder
	movementID id.ID
	clientID   id.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	movementID := id.New()
	clientID := id.New()
	rec := &recorder{}
	repo := newMemRepo()

	svc := NewService(ServiceConfig{
		Repo: repo,
		Movements: &memMovements{
			codes: map[string]id.ID{"MVT-2026-00007": movementID},
			lines: map[id.ID][]MovementLine{movementID: {
				{ArticleID: id.New(), ArticleName: "Pen", Quantity: 4, Location: article.LocationStore, UnitPrice: types.MustMoney("1.50")},
			}},
		},
		Clients: memClients{
			clientID: {ID: clientID, Name: "ACME", Type: client.TypeOrganization},
		},
		TxManager: tx.Passthrough{},
		Events:    rec,
		Audit:     rec,
	})

	return &fixture{svc: svc, repo: repo, rec: rec, movementID: movementID, clientID: clientID}
}

func (f *fixture) createScenarioB(t *testing.T) *Invoice {
	t.Helper()
	inv := NewInvoice("F-2026-001")
	inv.Items = []Item{{Name: "Repair", UnitPrice: types.MustMoney("10.00"), Quantity: 3}}
	require.NoError(t, f.svc.Create(context.Background(), inv))
	return inv
}

func TestService_Create_FreeItems(t *testing.T) {
	f := newFixture(t)
	inv := f.createScenarioB(t)

	stored, err := f.svc.GetByID(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "30.00", types.FormatMoney(stored.Total()))
	assert.Equal(t, "30.00", types.FormatMoney(stored.StoredTotal))
	assert.Equal(t, StatusUnpaid, stored.Status)
	assert.Equal(t, []domain.AuditAction{domain.AuditCreate}, f.rec.actions)
}

func TestService_Create_WithMovementAndClient(t *testing.T) {
	f := newFixture(t)

	inv := NewInvoice("F-2026-002")
	inv.StockMovementCode = "MVT-2026-00007"
	inv.ClientID = &f.clientID
	require.NoError(t, f.svc.Create(context.Background(), inv))

	require.NotNil(t, inv.StockMovementID)
	assert.Equal(t, f.movementID, *inv.StockMovementID)
	assert.Equal(t, "6.00", types.FormatMoney(inv.Total()))
	require.NotNil(t, inv.Client)
	assert.Equal(t, "ACME", inv.Client.Name)
}

func TestService_Create_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createScenarioB(t)

	tests := []struct {
		name  string
		build func() *Invoice
		check func(t *testing.T, err error)
	}{
		{
			name:  "no movement and no items",
			build: func() *Invoice { return NewInvoice("F-X1") },
			check: func(t *testing.T, err error) { assertField(t, err, "stockMovementCode") },
		},
		{
			name: "unknown movement code",
			build: func() *Invoice {
				inv := NewInvoice("F-X2")
				inv.StockMovementCode = "MVT-NOPE"
				return inv
			},
			check: func(t *testing.T, err error) { assertField(t, err, "stockMovementCode") },
		},
		{
			name: "unknown client",
			build: func() *Invoice {
				inv := NewInvoice("F-X3")
				inv.StockMovementCode = "MVT-2026-00007"
				missing := id.New()
				inv.ClientID = &missing
				return inv
			},
			check: func(t *testing.T, err error) { assertField(t, err, "clientId") },
		},
		{
			name: "only zero lines",
			build: func() *Invoice {
				inv := NewInvoice("F-X4")
				inv.Items = []Item{{Name: "Gift", UnitPrice: types.Zero(), Quantity: 1}}
				return inv
			},
			check: func(t *testing.T, err error) { assertField(t, err, "stockMovementCode") },
		},
		{
			name: "duplicate number",
			build: func() *Invoice {
				inv := NewInvoice("F-2026-001")
				inv.Items = []Item{{Name: "Repair", UnitPrice: types.MustMoney("1"), Quantity: 1}}
				return inv
			},
			check: func(t *testing.T, err error) { assert.True(t, apperror.IsConflict(err)) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.svc.Create(ctx, tt.build())
			require.Error(t, err)
			tt.check(t, err)
		})
	}
	assert.Len(t, f.repo.invoices, 1)
}

func TestService_AddPayment_ExceedingRemaining(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.createScenarioB(t)

	_, updated, err := f.svc.AddPayment(ctx, inv.ID, types.MustMoney("12.50"), "deposit")
	require.NoError(t, err)
	b := ComputeBalance(updated)
	assert.Equal(t, "12.50", types.FormatMoney(b.Paid))
	assert.Equal(t, "17.50", types.FormatMoney(b.Remaining))

	_, _, err = f.svc.AddPayment(ctx, inv.ID, types.MustMoney("20.00"), "")
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
	assert.Equal(t, "17.50", appErr.Details["maxAllowed"])
	assert.Len(t, f.repo.payments, 1)

	require.Len(t, f.rec.events, 1)
	assert.Equal(t, EventPaymentAdded, f.rec.events[0].EventType)
	payload, ok := f.rec.events[0].Payload.(PaymentEvent)
	require.True(t, ok)
	assert.Equal(t, "17.50", payload.Remaining)
}

func TestService_RemovePayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.createScenarioB(t)

	payment, _, err := f.svc.AddPayment(ctx, inv.ID, types.MustMoney("30.00"), "")
	require.NoError(t, err)

	updated, err := f.svc.RemovePayment(ctx, payment.ID)
	require.NoError(t, err)
	assert.Empty(t, updated.Payments)
	assert.Equal(t, "30.00", types.FormatMoney(ComputeBalance(updated).Remaining))
	assert.Equal(t, EventPaymentRemoved, f.rec.events[len(f.rec.events)-1].EventType)

	_, err = f.svc.RemovePayment(ctx, payment.ID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestService_SetStatus_IsIndependentOfBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.createScenarioB(t)

	updated, err := f.svc.SetStatus(ctx, inv.ID, StatusPaid)
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, updated.Status)
	assert.Equal(t, "30.00", types.FormatMoney(ComputeBalance(updated).Remaining))
	assert.Contains(t, f.rec.actions, domain.AuditStatusChange)

	_, err = f.svc.SetStatus(ctx, inv.ID, "SETTLED")
	assert.True(t, apperror.IsValidation(err))
}

func TestService_Update_RecomputesTotal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.createScenarioB(t)

	edit, err := f.svc.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	edit.Items = append(edit.Items, Item{Name: "Parts", UnitPrice: types.MustMoney("2.25"), Quantity: 2})
	edit.StockMovementCode = "MVT-2026-00007"
	require.NoError(t, f.svc.Update(ctx, edit))

	assert.Equal(t, "40.50", types.FormatMoney(edit.Total()))
	assert.Equal(t, 2, edit.Version)

	stale := *edit
	stale.Version = 1
	err = f.svc.Update(ctx, &stale)
	assert.True(t, apperror.IsConcurrentModification(err))
}

func TestService_Update_RequiresSource(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.createScenarioB(t)

	edit, err := f.svc.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	edit.Items = nil
	edit.StockMovementCode = ""

	err = f.svc.Update(ctx, edit)
	require.Error(t, err)
	assertField(t, err, "stockMovementCode")

	stored, err := f.svc.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Items, 1)
	assert.Equal(t, 1, stored.Version)
}

func TestService_Delete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.createScenarioB(t)
	_, _, err := f.svc.AddPayment(ctx, inv.ID, types.MustMoney("5"), "")
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, inv.ID))
	assert.Empty(t, f.repo.invoices)
	assert.Empty(t, f.repo.payments)

	err = f.svc.Delete(ctx, inv.ID)
	assert.True(t, apperror.IsNotFound(err))
}

func assertField(t *testing.T, err error, field string) {
	t.Helper()
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok, "expected AppError, got %v", err)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
	assert.Equal(t, field, appErr.Details["field"])
}
