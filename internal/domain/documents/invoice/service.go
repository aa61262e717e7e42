package invoice

import (
	"context"
	"fmt"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/id"
	"stockflow/internal/core/tx"
	"stockflow/internal/core/types"
	"stockflow/internal/domain"
	"stockflow/pkg/logger"
)

// Event types published to the outbox.
const (
	EventPaymentAdded   = "invoice.payment_added"
	EventPaymentRemoved = "invoice.payment_removed"
)

// PaymentEvent is the outbox payload of payment events.
type PaymentEvent struct {
	InvoiceID id.ID  `json:"invoiceId"`
	Number    string `json:"number"`
	PaymentID id.ID  `json:"paymentId"`
	Amount    string `json:"amount"`
	Remaining string `json:"remaining"`
}

// Service provides business operations for invoices and their payments.
type Service struct {
	repo      Repository
	movements MovementDirectory
	clients   ClientDirectory
	txManager tx.Manager
	events    domain.EventPublisher
	audit     domain.AuditRecorder
}

// ServiceConfig wires the invoice service.
type ServiceConfig struct {
	Repo      Repository
	Movements MovementDirectory
	Clients   ClientDirectory
	TxManager tx.Manager
	Events    domain.EventPublisher
	Audit     domain.AuditRecorder
}

// NewService creates a new Invoice service.
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		repo:      cfg.Repo,
		movements: cfg.Movements,
		clients:   cfg.Clients,
		txManager: cfg.TxManager,
		events:    cfg.Events,
		audit:     cfg.Audit,
	}
	if s.events == nil {
		s.events = domain.NopEvents{}
	}
	if s.audit == nil {
		s.audit = domain.NopAudit{}
	}
	return s
}

// Create stores a new invoice. It must bill a movement (by code) or at least
// one free item, and its computed total must be above zero.
func (s *Service) Create(ctx context.Context, inv *Invoice) error {
	if err := s.prepare(ctx, inv); err != nil {
		return err
	}
	if !inv.HasSource() && inv.StockMovementCode == "" {
		return errNoSource()
	}
	inv.LegacyAmountPaid = types.Zero()
	inv.Payments = nil

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		exists, err := s.repo.ExistsByNumber(ctx, inv.Number, nil)
		if err != nil {
			return fmt.Errorf("check invoice number: %w", err)
		}
		if exists {
			return apperror.NewDuplicate("invoice", "number", inv.Number)
		}

		if err := s.resolveLinks(ctx, inv); err != nil {
			return err
		}
		if err := s.finalizeTotal(inv); err != nil {
			return err
		}

		if err := s.repo.Create(ctx, inv); err != nil {
			return fmt.Errorf("create invoice: %w", err)
		}

		logger.Info(ctx, "invoice created",
			"id", inv.ID,
			"number", inv.Number,
			"total", types.FormatMoney(inv.Total()))

		return s.audit.LogChange(ctx, domain.AggregateInvoice, inv.ID, domain.AuditCreate, map[string]any{
			"number": inv.Number,
			"total":  types.FormatMoney(inv.Total()),
		})
	})
}

// Update rewrites an invoice. inv.Version must be the version read. The total
// is recomputed; payments are not touched.
func (s *Service) Update(ctx context.Context, inv *Invoice) error {
	if err := s.prepare(ctx, inv); err != nil {
		return err
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetForUpdate(ctx, inv.ID)
		if err != nil {
			return err
		}
		if existing.Version != inv.Version {
			return apperror.NewConcurrentModification("invoice", inv.ID.String()).
				WithDetail("expectedVersion", inv.Version).
				WithDetail("currentVersion", existing.Version)
		}

		if inv.Number != existing.Number {
			exists, err := s.repo.ExistsByNumber(ctx, inv.Number, &inv.ID)
			if err != nil {
				return fmt.Errorf("check invoice number: %w", err)
			}
			if exists {
				return apperror.NewDuplicate("invoice", "number", inv.Number)
			}
		}

		inv.CreatedAt = existing.CreatedAt
		inv.Payments = existing.Payments
		inv.LegacyAmountPaid = existing.LegacyAmountPaid

		if err := s.resolveLinks(ctx, inv); err != nil {
			return err
		}
		if !inv.HasSource() {
			return errNoSource()
		}
		if err := s.finalizeTotal(inv); err != nil {
			return err
		}

		if err := s.repo.Update(ctx, inv); err != nil {
			return fmt.Errorf("update invoice: %w", err)
		}

		return s.audit.LogChange(ctx, domain.AggregateInvoice, inv.ID, domain.AuditUpdate,
			diffInvoices(existing, inv))
	})
}

// Delete removes an invoice with its items and payments.
func (s *Service) Delete(ctx context.Context, invoiceID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, invoiceID); err != nil {
			return fmt.Errorf("delete invoice: %w", err)
		}
		return s.audit.LogChange(ctx, domain.AggregateInvoice, invoiceID, domain.AuditDelete, map[string]any{
			"number":   existing.Number,
			"payments": len(existing.Payments),
		})
	})
}

// GetByID retrieves a fully loaded invoice.
func (s *Service) GetByID(ctx context.Context, invoiceID id.ID) (*Invoice, error) {
	return s.repo.GetByID(ctx, invoiceID)
}

// List retrieves invoices with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Invoice], error) {
	filter.Normalize()
	if filter.Status != "" && !filter.Status.Valid() {
		return domain.ListResult[*Invoice]{}, apperror.NewFieldValidation("status", "status must be UNPAID or PAID")
	}
	return s.repo.List(ctx, filter)
}

// SetStatus toggles the manual PAID flag. It does not look at the balance.
func (s *Service) SetStatus(ctx context.Context, invoiceID id.ID, status Status) (*Invoice, error) {
	if !status.Valid() {
		return nil, apperror.NewFieldValidation("status", "status must be UNPAID or PAID").
			WithDetail("value", string(status))
	}

	var result *Invoice
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		inv, err := s.repo.GetForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		result = inv
		if inv.Status == status {
			return nil
		}

		previous := inv.Status
		inv.Status = status
		if err := s.repo.Update(ctx, inv); err != nil {
			return fmt.Errorf("update invoice status: %w", err)
		}

		return s.audit.LogChange(ctx, domain.AggregateInvoice, inv.ID, domain.AuditStatusChange, map[string]any{
			"status": map[string]any{"old": previous, "new": status},
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AddPayment records a partial payment. The invoice row stays locked while the
// amount is checked against the outstanding balance.
func (s *Service) AddPayment(ctx context.Context, invoiceID id.ID, amount types.Money, note string) (*Payment, *Invoice, error) {
	payment := NewPayment(invoiceID, amount, note)
	if err := payment.Validate(); err != nil {
		return nil, nil, err
	}

	var result *Invoice
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		inv, err := s.repo.GetForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		if err := ValidatePayment(inv, amount); err != nil {
			return err
		}

		if err := s.repo.AddPayment(ctx, payment); err != nil {
			return fmt.Errorf("add payment: %w", err)
		}
		inv.Payments = append(inv.Payments, *payment)
		result = inv

		remaining := types.FormatMoney(ComputeBalance(inv).Remaining)
		if err := s.events.Publish(ctx, domain.Event{
			AggregateType: domain.AggregateInvoice,
			AggregateID:   inv.ID,
			EventType:     EventPaymentAdded,
			Payload: PaymentEvent{
				InvoiceID: inv.ID,
				Number:    inv.Number,
				PaymentID: payment.ID,
				Amount:    types.FormatMoney(payment.Amount),
				Remaining: remaining,
			},
		}); err != nil {
			return err
		}

		logger.Info(ctx, "payment added",
			"invoice_id", inv.ID,
			"payment_id", payment.ID,
			"amount", types.FormatMoney(payment.Amount),
			"remaining", remaining)

		return s.audit.LogChange(ctx, domain.AggregateInvoice, inv.ID, domain.AuditPaymentAdded, map[string]any{
			"paymentId": payment.ID.String(),
			"amount":    types.FormatMoney(payment.Amount),
			"note":      payment.Note,
			"remaining": remaining,
		})
	})
	if err != nil {
		return nil, nil, err
	}
	return payment, result, nil
}

// RemovePayment deletes a payment and returns the invoice it belonged to.
func (s *Service) RemovePayment(ctx context.Context, paymentID id.ID) (*Invoice, error) {
	var result *Invoice
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		payment, err := s.repo.GetPayment(ctx, paymentID)
		if err != nil {
			return err
		}
		inv, err := s.repo.GetForUpdate(ctx, payment.InvoiceID)
		if err != nil {
			return err
		}
		if err := s.repo.DeletePayment(ctx, paymentID); err != nil {
			return fmt.Errorf("delete payment: %w", err)
		}

		kept := inv.Payments[:0]
		for _, p := range inv.Payments {
			if p.ID != paymentID {
				kept = append(kept, p)
			}
		}
		inv.Payments = kept
		result = inv

		remaining := types.FormatMoney(ComputeBalance(inv).Remaining)
		if err := s.events.Publish(ctx, domain.Event{
			AggregateType: domain.AggregateInvoice,
			AggregateID:   inv.ID,
			EventType:     EventPaymentRemoved,
			Payload: PaymentEvent{
				InvoiceID: inv.ID,
				Number:    inv.Number,
				PaymentID: paymentID,
				Amount:    types.FormatMoney(payment.Amount),
				Remaining: remaining,
			},
		}); err != nil {
			return err
		}

		return s.audit.LogChange(ctx, domain.AggregateInvoice, inv.ID, domain.AuditPaymentRemoved, map[string]any{
			"paymentId": paymentID.String(),
			"amount":    types.FormatMoney(payment.Amount),
			"remaining": remaining,
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// prepare normalizes and validates what can be checked without the database.
func (s *Service) prepare(ctx context.Context, inv *Invoice) error {
	inv.Normalize()
	if id.IsNil(inv.ID) {
		inv.BaseEntity.ID = id.New()
	}
	items, err := NormalizeItems(inv.ID, inv.Items)
	if err != nil {
		return err
	}
	inv.Items = items
	return inv.Validate(ctx)
}

// resolveLinks turns the movement code into a link with priced lines and loads the client.
func (s *Service) resolveLinks(ctx context.Context, inv *Invoice) error {
	inv.StockMovementID = nil
	inv.MovementLines = nil
	if inv.StockMovementCode != "" {
		movementID, err := s.movements.FindIDByCode(ctx, inv.StockMovementCode)
		if err != nil {
			if apperror.IsNotFound(err) {
				return apperror.NewFieldValidation("stockMovementCode", "no stock movement with this code").
					WithDetail("value", inv.StockMovementCode)
			}
			return fmt.Errorf("resolve movement code: %w", err)
		}
		lines, err := s.movements.PricedLines(ctx, movementID)
		if err != nil {
			return fmt.Errorf("load movement lines: %w", err)
		}
		inv.StockMovementID = &movementID
		inv.MovementLines = lines
	}

	inv.Client = nil
	if inv.ClientID != nil {
		summary, err := s.clients.GetSummary(ctx, *inv.ClientID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return apperror.NewFieldValidation("clientId", "client not found").
					WithDetail("value", inv.ClientID.String())
			}
			return fmt.Errorf("load client: %w", err)
		}
		inv.Client = summary
	}
	return nil
}

func errNoSource() error {
	return apperror.NewFieldValidation("stockMovementCode", "a stock movement code or at least one free item is required")
}

// finalizeTotal checks the total and snapshots it for invoices with lines.
func (s *Service) finalizeTotal(inv *Invoice) error {
	if inv.HasSource() {
		inv.StoredTotal = inv.LinesTotal()
	}
	return EnsurePositiveTotal(inv)
}

func diffInvoices(old, updated *Invoice) map[string]any {
	changes := make(map[string]any)
	add := func(field string, from, to any) {
		if from != to {
			changes[field] = map[string]any{"old": from, "new": to}
		}
	}
	add("number", old.Number, updated.Number)
	add("deliveryNoteNumber", old.DeliveryNoteNumber, updated.DeliveryNoteNumber)
	add("status", old.Status, updated.Status)
	add("stockMovementCode", old.StockMovementCode, updated.StockMovementCode)
	add("clientId", idString(old.ClientID), idString(updated.ClientID))
	add("total", types.FormatMoney(old.Total()), types.FormatMoney(updated.Total()))
	add("items", len(old.Items), len(updated.Items))
	return changes
}

func idString(v *id.ID) string {
	if v == nil {
		return ""
	}
	return v.String()
}
