package stock_movement

import (
	"context"
	"fmt"
	"time"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/id"
	"stockflow/internal/core/numerator"
	"stockflow/internal/core/tx"
	"stockflow/internal/domain"
	"stockflow/internal/domain/catalogs/article"
	"stockflow/pkg/logger"
)

// Event types published to the outbox.
const (
	EventCreated = "stock_movement.created"
	EventUpdated = "stock_movement.updated"
	EventDeleted = "stock_movement.deleted"
)

// CodePrefix prefixes generated movement codes.
const CodePrefix = "MVT"

// StockStore locks and rewrites article stock. Implemented by the article repository.
type StockStore interface {
	LockForStock(ctx context.Context, ids []id.ID) (map[id.ID]*article.Article, error)
	SaveStock(ctx context.Context, changes []article.StockChange) error
}

// EventPayload is the outbox payload of movement events.
type EventPayload struct {
	ID    id.ID  `json:"id"`
	Code  string `json:"code"`
	Type  Type   `json:"type"`
	Lines []Line `json:"lines"`
}

// Service records stock movements and keeps article quantities in step with them.
type Service struct {
	repo      Repository
	stock     StockStore
	txManager tx.Manager
	numerator numerator.Generator
	events    domain.EventPublisher
	codeCfg   numerator.Config
	now       func() time.Time
}

// ServiceConfig wires the movement service.
type ServiceConfig struct {
	Repo      Repository
	Stock     StockStore
	TxManager tx.Manager
	Numerator numerator.Generator
	Events    domain.EventPublisher
}

// NewService creates a new StockMovement service.
func NewService(cfg ServiceConfig) *Service {
	events := cfg.Events
	if events == nil {
		events = domain.NopEvents{}
	}
	return &Service{
		repo:      cfg.Repo,
		stock:     cfg.Stock,
		txManager: cfg.TxManager,
		numerator: cfg.Numerator,
		events:    events,
		codeCfg:   numerator.DefaultConfig(CodePrefix),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create records m and applies its effect to stock in one transaction.
// Joins the caller's transaction when there is one.
func (s *Service) Create(ctx context.Context, m *StockMovement) error {
	m.Normalize()
	if err := m.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(m.ID) {
		m.BaseEntity.ID = id.New()
	}
	m.SetLines(m.Lines)

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.assignCode(ctx, m, ""); err != nil {
			return err
		}
		if err := s.applyStock(ctx, m.Effect()); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, m); err != nil {
			return fmt.Errorf("create stock movement: %w", err)
		}
		if err := s.publish(ctx, EventCreated, m); err != nil {
			return err
		}

		logger.Info(ctx, "stock movement created",
			"id", m.ID,
			"code", m.Code,
			"type", m.Type,
			"lines", len(m.Lines))
		return nil
	})
}

// Update rewrites m. The previous effect on stock is reverted and the new one
// applied as a single net change. Line i must keep the article it had; quantities,
// locations, type, reason and code may change. m.Version must be the version read.
func (s *Service) Update(ctx context.Context, m *StockMovement) error {
	m.Normalize()
	if err := m.Validate(ctx); err != nil {
		return err
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetForUpdate(ctx, m.ID)
		if err != nil {
			return err
		}
		if existing.Version != m.Version {
			return apperror.NewConcurrentModification("stock_movement", m.ID.String()).
				WithDetail("expectedVersion", m.Version).
				WithDetail("currentVersion", existing.Version)
		}
		if err := checkLineIdentity(existing, m); err != nil {
			return err
		}

		m.CreatedAt = existing.CreatedAt
		m.SetLines(m.Lines)

		if err := s.assignCode(ctx, m, existing.Code); err != nil {
			return err
		}
		if err := s.applyStock(ctx, NetChange(existing, m)); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, m); err != nil {
			return fmt.Errorf("update stock movement: %w", err)
		}
		return s.publish(ctx, EventUpdated, m)
	})
}

// Delete removes a movement and reverts its effect on stock.
func (s *Service) Delete(ctx context.Context, movementID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetForUpdate(ctx, movementID)
		if err != nil {
			return err
		}
		if err := s.applyStock(ctx, existing.Reversal()); err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, movementID); err != nil {
			return err
		}
		if err := s.publish(ctx, EventDeleted, existing); err != nil {
			return err
		}

		logger.Info(ctx, "stock movement deleted", "id", movementID, "code", existing.Code)
		return nil
	})
}

// GetByID retrieves a movement with its lines.
func (s *Service) GetByID(ctx context.Context, movementID id.ID) (*StockMovement, error) {
	return s.repo.GetByID(ctx, movementID)
}

// GetByCode retrieves a movement by its unique code.
func (s *Service) GetByCode(ctx context.Context, code string) (*StockMovement, error) {
	return s.repo.GetByCode(ctx, code)
}

// List retrieves movements with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*StockMovement], error) {
	filter.Normalize()
	return s.repo.List(ctx, filter)
}

// assignCode generates a code when m has none and enforces uniqueness of a
// code that differs from current.
func (s *Service) assignCode(ctx context.Context, m *StockMovement, current string) error {
	if m.Code == "" {
		if current != "" {
			m.Code = current
			return nil
		}
		code, err := s.numerator.GetNextNumber(ctx, s.codeCfg, nil, s.now())
		if err != nil {
			return fmt.Errorf("generate movement code: %w", err)
		}
		m.Code = code
		return nil
	}

	if m.Code == current {
		return nil
	}
	exists, err := s.repo.ExistsByCode(ctx, m.Code)
	if err != nil {
		return fmt.Errorf("check movement code: %w", err)
	}
	if exists {
		return apperror.NewDuplicate("stock_movement", "code", m.Code)
	}
	return nil
}

// applyStock locks the affected articles and writes their new quantities.
// Any location that would go negative aborts with INSUFFICIENT_STOCK.
func (s *Service) applyStock(ctx context.Context, deltas []StockDelta) error {
	if len(deltas) == 0 {
		return nil
	}

	ids := ArticleIDs(deltas)
	articles, err := s.stock.LockForStock(ctx, ids)
	if err != nil {
		return fmt.Errorf("lock articles: %w", err)
	}

	for _, d := range deltas {
		a, ok := articles[d.ArticleID]
		if !ok {
			return apperror.NewValidation("article not found").
				WithDetail("field", "articleId").
				WithDetail("articleId", d.ArticleID.String())
		}
		if err := a.AdjustStock(d.Location, d.Delta); err != nil {
			return err
		}
	}

	changes := make([]article.StockChange, 0, len(ids))
	for _, articleID := range ids {
		a := articles[articleID]
		changes = append(changes, article.StockChange{
			ArticleID:     articleID,
			QuantityStore: a.QuantityStore.Int64(),
			QuantityDepot: a.QuantityDepot.Int64(),
		})
	}
	return s.stock.SaveStock(ctx, changes)
}

func (s *Service) publish(ctx context.Context, eventType string, m *StockMovement) error {
	return s.events.Publish(ctx, domain.Event{
		AggregateType: domain.AggregateStockMovement,
		AggregateID:   m.ID,
		EventType:     eventType,
		Payload: EventPayload{
			ID:    m.ID,
			Code:  m.Code,
			Type:  m.Type,
			Lines: m.Lines,
		},
	})
}

func checkLineIdentity(existing, updated *StockMovement) error {
	if len(existing.Lines) != len(updated.Lines) {
		return apperror.NewFieldValidation("lines", "lines cannot be added or removed when editing a movement").
			WithDetail("expected", len(existing.Lines)).
			WithDetail("got", len(updated.Lines))
	}
	for i := range existing.Lines {
		if existing.Lines[i].ArticleID != updated.Lines[i].ArticleID {
			return apperror.NewFieldValidation(fmt.Sprintf("lines[%d].articleId", i), "the article of a movement line cannot be changed").
				WithDetail("articleId", existing.Lines[i].ArticleID.String())
		}
		updated.Lines[i].ID = existing.Lines[i].ID
	}
	return nil
}
