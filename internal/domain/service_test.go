package domain

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/id"
	"stockflow/internal/core/tx"
)

type widget struct {
	ID   id.ID
	Name string
}

func (w *widget) GetID() id.ID { return w.ID }

func (w *widget) Validate(context.Context) error {
	if strings.TrimSpace(w.Name) == "" {
		return apperror.NewFieldValidation("name", "name is required")
	}
	return nil
}

type memCatalog struct {
	rows      map[id.ID]widget
	deleteErr error
}

func newMemCatalog() *memCatalog {
	return &memCatalog{rows: make(map[id.ID]widget)}
}

func (r *memCatalog) Create(_ context.Context, w *widget) error {
	r.rows[w.ID] = *w
	return nil
}

func (r *memCatalog) GetByID(_ context.Context, entityID id.ID) (*widget, error) {
	w, ok := r.rows[entityID]
	if !ok {
		return nil, apperror.NewNotFound("row", entityID.String())
	}
	return &w, nil
}

func (r *memCatalog) GetForUpdate(ctx context.Context, entityID id.ID) (*widget, error) {
	return r.GetByID(ctx, entityID)
}

func (r *memCatalog) Update(_ context.Context, w *widget) error {
	r.rows[w.ID] = *w
	return nil
}

func (r *memCatalog) Delete(_ context.Context, entityID id.ID) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	delete(r.rows, entityID)
	return nil
}

func (r *memCatalog) List(context.Context, ListFilter) (ListResult[*widget], error) {
	return ListResult[*widget]{}, nil
}

func (r *memCatalog) Exists(_ context.Context, entityID id.ID) (bool, error) {
	_, ok := r.rows[entityID]
	return ok, nil
}

type auditCall struct {
	entityType string
	entityID   id.ID
	action     AuditAction
	changes    map[string]any
}

type auditLog struct {
	calls []auditCall
}

func (a *auditLog) LogChange(_ context.Context, entityType string, entityID id.ID, action AuditAction, changes map[string]any) error {
	a.calls = append(a.calls, auditCall{entityType, entityID, action, changes})
	return nil
}

func newWidgetService(repo *memCatalog, audit AuditRecorder) *CatalogService[*widget] {
	return NewCatalogService(CatalogServiceConfig[*widget]{
		Repo:       repo,
		TxManager:  tx.Passthrough{},
		EntityName: "widget",
		Audit:      audit,
		AuditType:  "widget",
	})
}

func TestCatalogService_AuditsWrites(t *testing.T) {
	repo := newMemCatalog()
	audit := &auditLog{}
	svc := newWidgetService(repo, audit)
	ctx := context.Background()

	w := &widget{ID: id.New(), Name: "Bolt"}
	require.NoError(t, svc.Create(ctx, w))
	w.Name = "Hex bolt"
	require.NoError(t, svc.Update(ctx, w))
	require.NoError(t, svc.Delete(ctx, w.ID))

	require.Len(t, audit.calls, 3)
	assert.Equal(t, []AuditAction{AuditCreate, AuditUpdate, AuditDelete},
		[]AuditAction{audit.calls[0].action, audit.calls[1].action, audit.calls[2].action})
	for _, c := range audit.calls {
		assert.Equal(t, "widget", c.entityType)
		assert.Equal(t, w.ID, c.entityID)
	}
	assert.Equal(t, w, audit.calls[1].changes["after"])
	deleted, ok := audit.calls[2].changes["before"].(*widget)
	require.True(t, ok)
	assert.Equal(t, "Hex bolt", deleted.Name)
}

func TestCatalogService_NoAuditOnFailure(t *testing.T) {
	repo := newMemCatalog()
	audit := &auditLog{}
	svc := newWidgetService(repo, audit)
	ctx := context.Background()

	err := svc.Create(ctx, &widget{ID: id.New()})
	assert.True(t, apperror.IsValidation(err))

	w := &widget{ID: id.New(), Name: "Nut"}
	require.NoError(t, svc.Create(ctx, w))
	repo.deleteErr = errors.New("still referenced")
	require.Error(t, svc.Delete(ctx, w.ID))

	require.Len(t, audit.calls, 1)
	assert.Equal(t, AuditCreate, audit.calls[0].action)
}

func TestCatalogService_GetByIDNamesEntity(t *testing.T) {
	svc := newWidgetService(newMemCatalog(), nil)
	missing := id.New()

	_, err := svc.GetByID(context.Background(), missing)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeNotFound, appErr.Code)
	assert.Contains(t, appErr.Message, "widget")
}
