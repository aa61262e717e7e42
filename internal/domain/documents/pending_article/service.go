package pending_article

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/id"
	"stockflow/internal/core/tx"
	"stockflow/internal/domain"
	"stockflow/internal/domain/documents/stock_movement"
	"stockflow/pkg/logger"
)

var tracer = otel.Tracer("stockflow/pending_article")

// EventReceived is published when a receipt is booked.
const EventReceived = "pending_article.received"

const receiveOperation = "receive pending article"

// Stages of the receipt transaction reported in TRANSACTION_FAILED errors.
const (
	StageCreateMovement = "create_movement"
	StageUpdatePending  = "update_pending_article"
	StagePublishEvent   = "publish_event"
	StageAudit          = "audit"
	StageCommit         = "commit"
)

// MovementCreator books stock movements. Implemented by stock_movement.Service.
type MovementCreator interface {
	Create(ctx context.Context, m *stock_movement.StockMovement) error
}

// ArticleChecker tells whether an article exists.
type ArticleChecker interface {
	Exists(ctx context.Context, articleID id.ID) (bool, error)
}

// ReceiveResult carries both effects of a receipt.
type ReceiveResult struct {
	PendingArticle *PendingArticle               `json:"pendingArticle"`
	StockMovement  *stock_movement.StockMovement `json:"stockMovement"`
}

// ReceivedEvent is the outbox payload of EventReceived.
type ReceivedEvent struct {
	PendingArticleID id.ID  `json:"pendingArticleId"`
	ArticleID        id.ID  `json:"articleId"`
	Quantity         int64  `json:"quantity"`
	Location         string `json:"location"`
	MovementID       id.ID  `json:"movementId"`
	MovementCode     string `json:"movementCode"`
	Status           Status `json:"status"`
}

// Service manages pending articles and books their receipts.
type Service struct {
	repo      Repository
	movements MovementCreator
	articles  ArticleChecker
	txManager tx.Manager
	events    domain.EventPublisher
	audit     domain.AuditRecorder
	now       func() time.Time
}

// ServiceConfig wires the pending article service.
type ServiceConfig struct {
	Repo      Repository
	Movements MovementCreator
	Articles  ArticleChecker
	TxManager tx.Manager
	Events    domain.EventPublisher
	Audit     domain.AuditRecorder

	// Now overrides the clock (tests).
	Now func() time.Time
}

// NewService creates a new PendingArticle service.
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		repo:      cfg.Repo,
		movements: cfg.Movements,
		articles:  cfg.Articles,
		txManager: cfg.TxManager,
		events:    cfg.Events,
		audit:     cfg.Audit,
		now:       cfg.Now,
	}
	if s.events == nil {
		s.events = domain.NopEvents{}
	}
	if s.audit == nil {
		s.audit = domain.NopAudit{}
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

// Create registers a new pending article. Nothing is received yet.
func (s *Service) Create(ctx context.Context, p *PendingArticle) error {
	if id.IsNil(p.ID) {
		p.BaseEntity.ID = id.New()
	}
	p.QuantityReceived = 0
	p.ReceptionDate = nil
	p.Normalize()
	if err := p.Validate(ctx); err != nil {
		return err
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.checkArticle(ctx, p.ArticleID); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, p); err != nil {
			return fmt.Errorf("create pending article: %w", err)
		}
		return nil
	})
}

// Update edits article, expected quantity, expected date and note.
// Received quantity and reception date only change through Receive.
func (s *Service) Update(ctx context.Context, p *PendingArticle) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetForUpdate(ctx, p.ID)
		if err != nil {
			return err
		}
		if existing.Version != p.Version {
			return apperror.NewConcurrentModification("pending_article", p.ID.String()).
				WithDetail("expectedVersion", p.Version).
				WithDetail("currentVersion", existing.Version)
		}

		p.QuantityReceived = existing.QuantityReceived
		p.ReceptionDate = existing.ReceptionDate
		p.CreatedAt = existing.CreatedAt
		p.Normalize()
		if err := p.Validate(ctx); err != nil {
			return err
		}

		if p.ArticleID != existing.ArticleID {
			if err := s.checkArticle(ctx, p.ArticleID); err != nil {
				return err
			}
		}
		if err := s.repo.Update(ctx, p); err != nil {
			return fmt.Errorf("update pending article: %w", err)
		}
		return nil
	})
}

// Delete removes a pending article. Movements already booked stay.
func (s *Service) Delete(ctx context.Context, pendingID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.repo.GetForUpdate(ctx, pendingID); err != nil {
			return err
		}
		return s.repo.Delete(ctx, pendingID)
	})
}

// GetByID retrieves a pending article.
func (s *Service) GetByID(ctx context.Context, pendingID id.ID) (*PendingArticle, error) {
	return s.repo.GetByID(ctx, pendingID)
}

// List retrieves pending articles with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*PendingArticle], error) {
	filter.Normalize()
	if filter.Status != "" && !filter.Status.Valid() {
		return domain.ListResult[*PendingArticle]{}, apperror.NewFieldValidation("status", "unknown pending article status").
			WithDetail("value", string(filter.Status))
	}
	return s.repo.List(ctx, filter)
}

// Receive books a delivery: it advances the pending article and creates the
// IN movement for it in one transaction, with the pending row locked.
// Failures after the pending article has been advanced roll everything back
// and are returned as a single TRANSACTION_FAILED error naming the stage.
func (s *Service) Receive(ctx context.Context, pendingID id.ID, receipt Receipt) (*ReceiveResult, error) {
	ctx, span := tracer.Start(ctx, "PendingArticle.Receive")
	defer span.End()
	span.SetAttributes(
		attribute.String("pending_article.id", pendingID.String()),
		attribute.Int64("receipt.quantity", receipt.Quantity.Int64()),
		attribute.String("receipt.location", string(receipt.Location)),
	)

	result, err := s.receive(ctx, pendingID, receipt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "receipt failed")
		return nil, err
	}

	logger.Info(ctx, "pending article received",
		"id", pendingID,
		"quantity", receipt.Quantity.Int64(),
		"location", receipt.Location,
		"movement_code", result.StockMovement.Code,
		"status", result.PendingArticle.Status)
	return result, nil
}

func (s *Service) receive(ctx context.Context, pendingID id.ID, receipt Receipt) (*ReceiveResult, error) {
	receipt.Normalize()
	if err := receipt.Validate(); err != nil {
		return nil, err
	}

	var (
		result    *ReceiveResult
		completed bool
	)
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetForUpdate(ctx, pendingID)
		if err != nil {
			return err
		}
		if receipt.ExpectedVersion != nil && *receipt.ExpectedVersion != p.Version {
			return apperror.NewConcurrentModification("pending_article", pendingID.String()).
				WithDetail("expectedVersion", *receipt.ExpectedVersion).
				WithDetail("currentVersion", p.Version)
		}

		if err := p.Receive(receipt.Quantity, s.now()); err != nil {
			return err
		}

		// From here on the pending article is advanced: every failure is a
		// transaction failure.
		movement := BuildMovement(p, receipt)
		if err := s.movements.Create(ctx, movement); err != nil {
			return apperror.NewTransaction(receiveOperation, StageCreateMovement, err)
		}
		if err := s.repo.Update(ctx, p); err != nil {
			return apperror.NewTransaction(receiveOperation, StageUpdatePending, err)
		}

		if err := s.events.Publish(ctx, domain.Event{
			AggregateType: domain.AggregatePendingArticle,
			AggregateID:   p.ID,
			EventType:     EventReceived,
			Payload: ReceivedEvent{
				PendingArticleID: p.ID,
				ArticleID:        p.ArticleID,
				Quantity:         receipt.Quantity.Int64(),
				Location:         string(receipt.Location),
				MovementID:       movement.ID,
				MovementCode:     movement.Code,
				Status:           p.Status,
			},
		}); err != nil {
			return apperror.NewTransaction(receiveOperation, StagePublishEvent, err)
		}

		if err := s.audit.LogChange(ctx, domain.AggregatePendingArticle, p.ID, domain.AuditReceipt, map[string]any{
			"quantity":         receipt.Quantity.Int64(),
			"location":         receipt.Location,
			"quantityReceived": p.QuantityReceived.Int64(),
			"status":           p.Status,
			"movementCode":     movement.Code,
		}); err != nil {
			return apperror.NewTransaction(receiveOperation, StageAudit, err)
		}

		result = &ReceiveResult{PendingArticle: p, StockMovement: movement}
		completed = true
		return nil
	})
	if err != nil {
		if completed {
			return nil, apperror.NewTransaction(receiveOperation, StageCommit, err)
		}
		return nil, err
	}
	return result, nil
}

func (s *Service) checkArticle(ctx context.Context, articleID id.ID) error {
	exists, err := s.articles.Exists(ctx, articleID)
	if err != nil {
		return fmt.Errorf("check article: %w", err)
	}
	if !exists {
		return apperror.NewFieldValidation("articleId", "article not found").
			WithDetail("value", articleID.String())
	}
	return nil
}
