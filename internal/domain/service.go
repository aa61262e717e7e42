package domain

import (
	"context"
	"fmt"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/entity"
	"stockflow/internal/core/id"
	"stockflow/internal/core/tx"
)

// Entity is what CatalogService manages: a self-validating aggregate with an ID.
type Entity interface {
	entity.Validatable
	GetID() id.ID
}

// CatalogService provides the create/read/update/delete flow shared by
// reference entities. Entity-specific services embed it and register hooks.
type CatalogService[T Entity] struct {
	repo      CatalogRepository[T]
	txManager tx.Manager
	hooks     *HookRegistry[T]

	// entityName for error messages
	entityName string
}

// CatalogServiceConfig configures the catalog service.
type CatalogServiceConfig[T Entity] struct {
	Repo       CatalogRepository[T]
	TxManager  tx.Manager
	EntityName string

	// Audit, when set, records create, update and delete under AuditType.
	Audit     AuditRecorder
	AuditType string
}

// NewCatalogService creates a new catalog service.
func NewCatalogService[T Entity](cfg CatalogServiceConfig[T]) *CatalogService[T] {
	s := &CatalogService[T]{
		repo:       cfg.Repo,
		txManager:  cfg.TxManager,
		hooks:      NewHookRegistry[T](),
		entityName: cfg.EntityName,
	}
	if cfg.Audit != nil {
		registerAuditHooks(s.hooks, cfg.Audit, cfg.AuditType)
	}
	return s
}

// registerAuditHooks writes an audit entry inside each write transaction.
func registerAuditHooks[T Entity](hooks *HookRegistry[T], audit AuditRecorder, entityType string) {
	record := func(action AuditAction, key string) Hook[T] {
		return func(ctx context.Context, entity T) error {
			return audit.LogChange(ctx, entityType, entity.GetID(), action, map[string]any{key: entity})
		}
	}
	hooks.OnAfterCreate(record(AuditCreate, "after"))
	hooks.OnAfterUpdate(record(AuditUpdate, "after"))
	hooks.OnAfterDelete(record(AuditDelete, "before"))
}

// Hooks returns the hook registry for external registration.
func (s *CatalogService[T]) Hooks() *HookRegistry[T] {
	return s.hooks
}

// TxManager exposes the transaction manager to embedding services.
func (s *CatalogService[T]) TxManager() tx.Manager {
	return s.txManager
}

// Repo exposes the repository to embedding services.
func (s *CatalogService[T]) Repo() CatalogRepository[T] {
	return s.repo
}

func (s *CatalogService[T]) normalizeValidationErr(err error) error {
	if err == nil {
		return nil
	}
	if apperror.IsAppError(err) {
		return err
	}
	return apperror.NewValidation(err.Error())
}

// normalizeGetErr maps repository read errors to API errors naming this entity.
func (s *CatalogService[T]) normalizeGetErr(err error, entityID any) error {
	if err == nil {
		return nil
	}
	if apperror.IsNotFound(err) {
		return apperror.NewNotFound(s.entityName, entityID)
	}
	if apperror.IsAppError(err) {
		return err
	}
	return apperror.NewInternal(err).WithDetail("entity", s.entityName).WithDetail("id", entityID)
}

// Create validates and inserts a new entity.
func (s *CatalogService[T]) Create(ctx context.Context, entity T) error {
	if err := entity.Validate(ctx); err != nil {
		return s.normalizeValidationErr(err)
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.hooks.Run(ctx, BeforeCreate, entity); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, entity); err != nil {
			return fmt.Errorf("create %s: %w", s.entityName, err)
		}
		return s.hooks.Run(ctx, AfterCreate, entity)
	})
}

// GetByID retrieves entity by ID.
func (s *CatalogService[T]) GetByID(ctx context.Context, entityID id.ID) (T, error) {
	entity, err := s.repo.GetByID(ctx, entityID)
	if err != nil {
		return entity, s.normalizeGetErr(err, entityID.String())
	}
	return entity, nil
}

// Update validates and writes an entity. The entity's Version must be the
// version it was read at; a concurrent change yields CONCURRENT_MODIFICATION.
func (s *CatalogService[T]) Update(ctx context.Context, entity T) error {
	if err := entity.Validate(ctx); err != nil {
		return s.normalizeValidationErr(err)
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.hooks.Run(ctx, BeforeUpdate, entity); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, entity); err != nil {
			return fmt.Errorf("update %s: %w", s.entityName, err)
		}
		return s.hooks.Run(ctx, AfterUpdate, entity)
	})
}

// Delete removes an entity. Entities still referenced elsewhere yield CONFLICT.
func (s *CatalogService[T]) Delete(ctx context.Context, entityID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		entity, err := s.repo.GetForUpdate(ctx, entityID)
		if err != nil {
			return s.normalizeGetErr(err, entityID.String())
		}
		if err := s.hooks.Run(ctx, BeforeDelete, entity); err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, entityID); err != nil {
			return fmt.Errorf("delete %s: %w", s.entityName, err)
		}
		return s.hooks.Run(ctx, AfterDelete, entity)
	})
}

// List retrieves entities with filtering.
func (s *CatalogService[T]) List(ctx context.Context, filter ListFilter) (ListResult[T], error) {
	filter.Normalize()
	return s.repo.List(ctx, filter)
}

// Exists checks if entity exists.
func (s *CatalogService[T]) Exists(ctx context.Context, entityID id.ID) (bool, error) {
	return s.repo.Exists(ctx, entityID)
}
