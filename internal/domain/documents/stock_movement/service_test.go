package stock_movement

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/id"
	"stockflow/internal/core/numerator"
	"stockflow/internal/core/tx"
	"stockflow/internal/core/types"
	"stockflow/internal/domain"
	"stockflow/internal/domain/catalogs/article"
)

// memRepo is an in-memory Repository.
type memRepo struct {
	byID map[id.ID]*StockMovement
}

func newMemRepo() *memRepo {
	return &memRepo{byID: make(map[id.ID]*StockMovement)}
}

func cloneMovement(m *StockMovement) *StockMovement {
	c := *m
	c.Lines = append([]Line(nil), m.Lines...)
	return &c
}

func (r *memRepo) Create(_ context.Context, m *StockMovement) error {
	r.byID[m.ID] = cloneMovement(m)
	return nil
}

func (r *memRepo) GetByID(_ context.Context, movementID id.ID) (*StockMovement, error) {
	m, ok := r.byID[movementID]
	if !ok {
		return nil, apperror.NewNotFound("stock_movement", movementID.String())
	}
	return cloneMovement(m), nil
}

func (r *memRepo) GetByCode(_ context.Context, code string) (*StockMovement, error) {
	for _, m := range r.byID {
		if m.Code == code {
			return cloneMovement(m), nil
		}
	}
	return nil, apperror.NewNotFound("stock_movement", code)
}

func (r *memRepo) GetForUpdate(ctx context.Context, movementID id.ID) (*StockMovement, error) {
	return r.GetByID(ctx, movementID)
}

func (r *memRepo) ExistsByCode(_ context.Context, code string) (bool, error) {
	for _, m := range r.byID {
		if m.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (r *memRepo) Update(_ context.Context, m *StockMovement) error {
	current, ok := r.byID[m.ID]
	if !ok || current.Version != m.Version {
		return apperror.NewConcurrentModification("stock_movement", m.ID.String())
	}
	m.SetVersion(m.Version + 1)
	r.byID[m.ID] = cloneMovement(m)
	return nil
}

func (r *memRepo) Delete(_ context.Context, movementID id.ID) error {
	delete(r.byID, movementID)
	return nil
}

func (r *memRepo) List(_ context.Context, _ ListFilter) (domain.ListResult[*StockMovement], error) {
	var res domain.ListResult[*StockMovement]
	for _, m := range r.byID {
		res.Items = append(res.Items, cloneMovement(m))
	}
	res.TotalCount = int64(len(res.Items))
	return res, nil
}

// memStock is an in-memory StockStore. LockForStock hands out copies so a
// failed adjustment never leaks into the stored articles.
type memStock struct {
	articles map[id.ID]*article.Article
}

func newMemStock(articles ...*article.Article) *memStock {
	s := &memStock{articles: make(map[id.ID]*article.Article)}
	for _, a := range articles {
		s.articles[a.ID] = a
	}
	return s
}

func (s *memStock) LockForStock(_ context.Context, ids []id.ID) (map[id.ID]*article.Article, error) {
	out := make(map[id.ID]*article.Article, len(ids))
	for _, articleID := range ids {
		if a, ok := s.articles[articleID]; ok {
			c := *a
			out[articleID] = &c
		}
	}
	return out, nil
}

func (s *memStock) SaveStock(_ context.Context, changes []article.StockChange) error {
	for _, c := range changes {
		a, ok := s.articles[c.ArticleID]
		if !ok {
			return fmt.Errorf("article %s vanished", c.ArticleID)
		}
		a.QuantityStore = types.Quantity(c.QuantityStore)
		a.QuantityDepot = types.Quantity(c.QuantityDepot)
	}
	return nil
}

type recordingEvents struct {
	events []domain.Event
}

func (r *recordingEvents) Publish(_ context.Context, e domain.Event) error {
	r.events = append(r.events, e)
	return nil
}

type fixture struct {
	svc    *Service
	repo   *memRepo
	stock  *memStock
	events *recordingEvents
	pen    *article.Article
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	pen := article.NewArticle("Pen", types.MustMoney("1.50"))
	pen.QuantityStore = 10
	pen.QuantityDepot = 4

	f := &fixture{
		repo:   newMemRepo(),
		stock:  newMemStock(pen),
		events: &recordingEvents{},
		pen:    pen,
	}
	f.svc = NewService(ServiceConfig{
		Repo:      f.repo,
		Stock:     f.stock,
		TxManager: tx.Passthrough{},
		Numerator: numerator.NewSequenceGenerator(),
		Events:    f.events,
	})
	return f
}

func line(articleID id.ID, qty int64, loc article.Location) Line {
	return Line{ArticleID: articleID, Quantity: types.Quantity(qty), Location: loc}
}

func TestService_Create_AppliesStockAndGeneratesCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	m := NewStockMovement(TypeIn, " delivery ", line(f.pen.ID, 5, article.LocationStore))
	require.NoError(t, f.svc.Create(ctx, m))

	assert.Equal(t, fmt.Sprintf("MVT-%d-00001", time.Now().UTC().Year()), m.Code)
	assert.Equal(t, "delivery", m.Reason)
	assert.Equal(t, types.Quantity(15), f.pen.QuantityStore)
	assert.Equal(t, types.Quantity(4), f.pen.QuantityDepot)

	require.Len(t, f.events.events, 1)
	assert.Equal(t, EventCreated, f.events.events[0].EventType)
	assert.Equal(t, domain.AggregateStockMovement, f.events.events[0].AggregateType)

	stored, err := f.svc.GetByCode(ctx, m.Code)
	require.NoError(t, err)
	assert.Equal(t, m.ID, stored.ID)
}

func TestService_Create_OutBeyondStock(t *testing.T) {
	f := newFixture(t)

	m := NewStockMovement(TypeOut, "sale",
		line(f.pen.ID, 3, article.LocationStore),
		line(f.pen.ID, 5, article.LocationDepot),
	)
	err := f.svc.Create(context.Background(), m)

	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)
	assert.Equal(t, string(article.LocationDepot), appErr.Details["location"])
	assert.Equal(t, int64(4), appErr.Details["available"])

	assert.Equal(t, types.Quantity(10), f.pen.QuantityStore)
	assert.Equal(t, types.Quantity(4), f.pen.QuantityDepot)
	assert.Empty(t, f.repo.byID)
	assert.Empty(t, f.events.events)
}

func TestService_Create_DuplicateCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := NewStockMovement(TypeIn, "", line(f.pen.ID, 1, article.LocationStore))
	first.Code = "MANUAL-1"
	require.NoError(t, f.svc.Create(ctx, first))

	second := NewStockMovement(TypeIn, "", line(f.pen.ID, 1, article.LocationStore))
	second.Code = "MANUAL-1"
	err := f.svc.Create(ctx, second)

	assert.True(t, apperror.IsConflict(err))
	assert.Equal(t, types.Quantity(11), f.pen.QuantityStore)
}

func TestService_Create_UnknownArticle(t *testing.T) {
	f := newFixture(t)

	m := NewStockMovement(TypeIn, "", line(id.New(), 1, article.LocationStore))
	err := f.svc.Create(context.Background(), m)

	assert.True(t, apperror.IsValidation(err))
}

func TestService_Update_AppliesNetChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	m := NewStockMovement(TypeIn, "", line(f.pen.ID, 5, article.LocationStore))
	require.NoError(t, f.svc.Create(ctx, m))
	require.Equal(t, types.Quantity(15), f.pen.QuantityStore)

	edit, err := f.svc.GetByID(ctx, m.ID)
	require.NoError(t, err)
	edit.Lines[0].Quantity = 2
	edit.Lines[0].Location = article.LocationDepot
	require.NoError(t, f.svc.Update(ctx, edit))

	assert.Equal(t, types.Quantity(10), f.pen.QuantityStore)
	assert.Equal(t, types.Quantity(6), f.pen.QuantityDepot)
	assert.Equal(t, m.Code, edit.Code)
	assert.Equal(t, 2, edit.Version)
	assert.Equal(t, EventUpdated, f.events.events[len(f.events.events)-1].EventType)
}

func TestService_Update_RejectsArticleSwap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	other := article.NewArticle("Ink", types.MustMoney("3.00"))
	f.stock.articles[other.ID] = other

	m := NewStockMovement(TypeIn, "", line(f.pen.ID, 5, article.LocationStore))
	require.NoError(t, f.svc.Create(ctx, m))

	edit, err := f.svc.GetByID(ctx, m.ID)
	require.NoError(t, err)
	edit.Lines[0].ArticleID = other.ID

	err = f.svc.Update(ctx, edit)
	assert.True(t, apperror.IsValidation(err))
	assert.Equal(t, types.Quantity(15), f.pen.QuantityStore)
	assert.Equal(t, types.Quantity(0), other.QuantityStore)
}

func TestService_Update_StaleVersion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	m := NewStockMovement(TypeIn, "", line(f.pen.ID, 5, article.LocationStore))
	require.NoError(t, f.svc.Create(ctx, m))

	stale, err := f.svc.GetByID(ctx, m.ID)
	require.NoError(t, err)
	stale.Version = 7

	err = f.svc.Update(ctx, stale)
	assert.True(t, apperror.IsConcurrentModification(err))
}

func TestService_Update_FlipToOutNeedsStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	m := NewStockMovement(TypeIn, "", line(f.pen.ID, 8, article.LocationStore))
	require.NoError(t, f.svc.Create(ctx, m))
	require.Equal(t, types.Quantity(18), f.pen.QuantityStore)

	edit, err := f.svc.GetByID(ctx, m.ID)
	require.NoError(t, err)
	edit.Type = TypeOut
	edit.Lines[0].Quantity = 11

	// Reverting +8 and applying -11 needs 19 units at the store.
	err = f.svc.Update(ctx, edit)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)
	assert.Equal(t, types.Quantity(18), f.pen.QuantityStore)
}

func TestService_Delete_RevertsEffect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	m := NewStockMovement(TypeOut, "", line(f.pen.ID, 4, article.LocationDepot))
	require.NoError(t, f.svc.Create(ctx, m))
	require.Equal(t, types.Quantity(0), f.pen.QuantityDepot)

	require.NoError(t, f.svc.Delete(ctx, m.ID))

	assert.Equal(t, types.Quantity(4), f.pen.QuantityDepot)
	_, err := f.svc.GetByID(ctx, m.ID)
	assert.True(t, apperror.IsNotFound(err))
	assert.Equal(t, EventDeleted, f.events.events[len(f.events.events)-1].EventType)
}

func TestService_Delete_InRevertsOnlyWhenStockRemains(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := NewStockMovement(TypeIn, "", line(f.pen.ID, 5, article.LocationStore))
	require.NoError(t, f.svc.Create(ctx, in))

	out := NewStockMovement(TypeOut, "", line(f.pen.ID, 15, article.LocationStore))
	require.NoError(t, f.svc.Create(ctx, out))

	// The five received units are already gone.
	err := f.svc.Delete(ctx, in.ID)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)
	assert.Contains(t, f.repo.byID, in.ID)
}
