// Package invoice provides invoices: billed stock movements and free items,
// settled by a ledger of partial payments.
package invoice

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/entity"
	"stockflow/internal/core/id"
	"stockflow/internal/core/types"
	"stockflow/internal/domain/catalogs/article"
	"stockflow/internal/domain/catalogs/client"
)

// Status is the manual settlement flag of an invoice.
type Status string

const (
	StatusUnpaid Status = "UNPAID"
	StatusPaid   Status = "PAID"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusUnpaid || s == StatusPaid
}

// Item is a free billable line, not tied to any article.
type Item struct {
	ID          id.ID          `db:"id" json:"id"`
	InvoiceID   id.ID          `db:"invoice_id" json:"-"`
	LineNo      int            `db:"line_no" json:"lineNo"`
	Name        string         `db:"name" json:"name"`
	Description string         `db:"description" json:"description"`
	UnitPrice   types.Money    `db:"unit_price" json:"unitPrice"`
	Quantity    types.Quantity `db:"quantity" json:"quantity"`
}

// Amount is unit price times quantity.
func (i Item) Amount() types.Money {
	return types.MultiplyMoney(i.UnitPrice, i.Quantity)
}

// Payment is one partial settlement of an invoice.
type Payment struct {
	ID        id.ID       `db:"id" json:"id"`
	InvoiceID id.ID       `db:"invoice_id" json:"invoiceId"`
	Amount    types.Money `db:"amount" json:"amount"`
	Note      string      `db:"note" json:"note"`
	CreatedAt time.Time   `db:"created_at" json:"createdAt"`
}

// NewPayment creates a payment for invoiceID.
func NewPayment(invoiceID id.ID, amount types.Money, note string) *Payment {
	return &Payment{
		ID:        id.New(),
		InvoiceID: invoiceID,
		Amount:    amount,
		Note:      strings.TrimSpace(note),
		CreatedAt: time.Now().UTC(),
	}
}

// Validate checks the payment on its own, without the invoice balance.
func (p *Payment) Validate() error {
	if !p.Amount.IsPositive() {
		return apperror.NewFieldValidation("amount", "payment amount must be greater than 0").
			WithDetail("value", types.FormatMoney(p.Amount))
	}
	if utf8.RuneCountInString(p.Note) > 500 {
		return apperror.NewFieldValidation("note", "note must be at most 500 characters")
	}
	return nil
}

// MovementLine is a line of the linked stock movement priced at the article's
// current sale price. Read-only projection loaded with the invoice.
type MovementLine struct {
	ArticleID   id.ID            `db:"article_id" json:"articleId"`
	ArticleName string           `db:"article_name" json:"articleName"`
	Quantity    types.Quantity   `db:"quantity" json:"quantity"`
	Location    article.Location `db:"location" json:"location"`
	UnitPrice   types.Money      `db:"unit_price" json:"unitPrice"`
}

// Amount is unit price times quantity.
func (l MovementLine) Amount() types.Money {
	return types.MultiplyMoney(l.UnitPrice, l.Quantity)
}

// ClientSummary is the client shown with an invoice.
type ClientSummary struct {
	ID   id.ID       `json:"id"`
	Name string      `json:"name"`
	Type client.Type `json:"type"`
}

// Invoice bills a stock movement and/or free items to an optional client.
type Invoice struct {
	entity.BaseEntity

	Number             string `db:"number" json:"number"`
	DeliveryNoteNumber string `db:"delivery_note_number" json:"deliveryNoteNumber"`
	Status             Status `db:"status" json:"status"`

	ClientID        *id.ID `db:"client_id" json:"clientId"`
	StockMovementID *id.ID `db:"stock_movement_id" json:"stockMovementId"`

	// StoredTotal is the manual total. It is refreshed from the lines on every
	// write and only read back for invoices that have no lines.
	StoredTotal types.Money `db:"stored_total" json:"-"`

	// LegacyAmountPaid predates the payment ledger. Read-only; new invoices keep it at zero.
	LegacyAmountPaid types.Money `db:"legacy_amount_paid" json:"-"`

	// StockMovementCode identifies the linked movement on input and is filled on reads.
	StockMovementCode string `db:"-" json:"stockMovementCode"`

	Items         []Item         `db:"-" json:"items"`
	Payments      []Payment      `db:"-" json:"payments"`
	MovementLines []MovementLine `db:"-" json:"movementLines"`
	Client        *ClientSummary `db:"-" json:"client"`
}

// NewInvoice creates an unpaid invoice.
func NewInvoice(number string) *Invoice {
	return &Invoice{
		BaseEntity: entity.NewBaseEntity(),
		Number:     number,
		Status:     StatusUnpaid,
	}
}

// HasSource reports whether the invoice bills a movement or at least one free item.
func (inv *Invoice) HasSource() bool {
	return inv.StockMovementID != nil || len(inv.Items) > 0
}

// Normalize trims free text and defaults the status.
func (inv *Invoice) Normalize() {
	inv.Number = strings.TrimSpace(inv.Number)
	inv.DeliveryNoteNumber = strings.TrimSpace(inv.DeliveryNoteNumber)
	inv.StockMovementCode = strings.TrimSpace(inv.StockMovementCode)
	if inv.Status == "" {
		inv.Status = StatusUnpaid
	}
}

// Validate implements entity.Validatable interface.
// Items must already have gone through NormalizeItems.
func (inv *Invoice) Validate(ctx context.Context) error {
	if inv.Number == "" {
		return apperror.NewFieldValidation("number", "invoice number is required")
	}
	if utf8.RuneCountInString(inv.Number) > 100 {
		return apperror.NewFieldValidation("number", "invoice number must be at most 100 characters")
	}
	if utf8.RuneCountInString(inv.DeliveryNoteNumber) > 100 {
		return apperror.NewFieldValidation("deliveryNoteNumber", "delivery note number must be at most 100 characters")
	}
	if utf8.RuneCountInString(inv.StockMovementCode) > 50 {
		return apperror.NewFieldValidation("stockMovementCode", "movement code must be at most 50 characters")
	}
	if !inv.Status.Valid() {
		return apperror.NewFieldValidation("status", "status must be UNPAID or PAID").
			WithDetail("value", string(inv.Status))
	}
	if inv.StoredTotal.IsNegative() {
		return apperror.NewFieldValidation("total", "total must not be negative")
	}
	return nil
}

// NormalizeItems checks free items and drops the ones billing nothing.
// A negative price or quantity is invalid; a zero price or quantity line is removed.
// Kept items are numbered from 1 and get an id when they have none.
func NormalizeItems(invoiceID id.ID, items []Item) ([]Item, error) {
	out := make([]Item, 0, len(items))
	for i, item := range items {
		field := fmt.Sprintf("items[%d]", i)
		if item.UnitPrice.IsNegative() {
			return nil, apperror.NewFieldValidation(field+".unitPrice", "unit price must not be negative").
				WithDetail("value", types.FormatMoney(item.UnitPrice))
		}
		if item.Quantity.IsNegative() {
			return nil, apperror.NewFieldValidation(field+".quantity", "quantity must not be negative").
				WithDetail("value", item.Quantity.Int64())
		}
		if item.UnitPrice.IsZero() || item.Quantity.IsZero() {
			continue
		}

		item.Name = strings.TrimSpace(item.Name)
		item.Description = strings.TrimSpace(item.Description)
		if item.Name == "" {
			return nil, apperror.NewFieldValidation(field+".name", "item name is required")
		}
		if utf8.RuneCountInString(item.Name) > 255 {
			return nil, apperror.NewFieldValidation(field+".name", "item name must be at most 255 characters")
		}
		if utf8.RuneCountInString(item.Description) > 1000 {
			return nil, apperror.NewFieldValidation(field+".description", "item description must be at most 1000 characters")
		}

		if id.IsNil(item.ID) {
			item.ID = id.New()
		}
		item.InvoiceID = invoiceID
		item.LineNo = len(out) + 1
		out = append(out, item)
	}
	return out, nil
}
