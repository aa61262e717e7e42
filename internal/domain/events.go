package domain

import (
	"context"

	"stockflow/internal/core/id"
)

// Aggregate types used in events and audit entries.
const (
	AggregateArticle        = "article"
	AggregateClient         = "client"
	AggregateStockMovement  = "stock_movement"
	AggregateInvoice        = "invoice"
	AggregatePendingArticle = "pending_article"
)

// Event is a domain event recorded in the same transaction as the change it describes.
type Event struct {
	AggregateType string
	AggregateID   id.ID
	EventType     string
	Payload       any
}

// EventPublisher appends events to the transactional outbox.
// Publish must be called inside tx.Manager.RunInTransaction.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// AuditAction names an audited operation.
type AuditAction string

const (
	AuditCreate         AuditAction = "create"
	AuditUpdate         AuditAction = "update"
	AuditDelete         AuditAction = "delete"
	AuditStatusChange   AuditAction = "status_change"
	AuditPaymentAdded   AuditAction = "payment_added"
	AuditPaymentRemoved AuditAction = "payment_removed"
	AuditReceipt        AuditAction = "receipt"
)

// AuditRecorder writes an audit entry describing a change.
type AuditRecorder interface {
	LogChange(ctx context.Context, entityType string, entityID id.ID, action AuditAction, changes map[string]any) error
}

// NopEvents discards events. Used where no outbox is wired (tests, seed tool).
type NopEvents struct{}

func (NopEvents) Publish(context.Context, Event) error { return nil }

// NopAudit discards audit entries.
type NopAudit struct{}

func (NopAudit) LogChange(context.Context, string, id.ID, AuditAction, map[string]any) error {
	return nil
}
