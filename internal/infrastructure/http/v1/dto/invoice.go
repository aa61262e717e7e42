package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"stockflow/internal/core/types"
	"stockflow/internal/domain/catalogs/article"
	"stockflow/internal/domain/documents/invoice"
)

// --- Request DTOs ---

// InvoiceItemRequest is a free item. Lines with a zero price or quantity are dropped.
type InvoiceItemRequest struct {
	Name        string          `json:"name" binding:"max=255"`
	Description string          `json:"description" binding:"max=1000"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Quantity    types.Quantity  `json:"quantity"`
}

func toInvoiceItems(in []InvoiceItemRequest) []invoice.Item {
	items := make([]invoice.Item, len(in))
	for i, item := range in {
		items[i] = invoice.Item{
			Name:        item.Name,
			Description: item.Description,
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
		}
	}
	return items
}

// CreateInvoiceRequest is the request body for creating an invoice.
// It needs a stock movement code or at least one billable item.
type CreateInvoiceRequest struct {
	Number             string               `json:"number" binding:"required,max=100"`
	DeliveryNoteNumber string               `json:"deliveryNoteNumber" binding:"max=100"`
	Status             invoice.Status       `json:"status" binding:"omitempty,invoicestatus"`
	ClientID           *string              `json:"clientId" binding:"omitempty,uuid"`
	StockMovementCode  string               `json:"stockMovementCode" binding:"max=50"`
	Items              []InvoiceItemRequest `json:"items" binding:"dive"`
}

// ToEntity converts DTO to domain entity.
func (r *CreateInvoiceRequest) ToEntity() (*invoice.Invoice, error) {
	clientID, err := ParseOptionalID("clientId", r.ClientID)
	if err != nil {
		return nil, err
	}
	inv := invoice.NewInvoice(r.Number)
	inv.DeliveryNoteNumber = r.DeliveryNoteNumber
	if r.Status != "" {
		inv.Status = r.Status
	}
	inv.ClientID = clientID
	inv.StockMovementCode = r.StockMovementCode
	inv.Items = toInvoiceItems(r.Items)
	return inv, nil
}

// UpdateInvoiceRequest is a partial update: absent fields keep their value.
// An empty clientId or stockMovementCode removes the link.
type UpdateInvoiceRequest struct {
	Number             *string               `json:"number" binding:"omitempty,min=1,max=100"`
	DeliveryNoteNumber *string               `json:"deliveryNoteNumber" binding:"omitempty,max=100"`
	Status             *invoice.Status       `json:"status" binding:"omitempty,invoicestatus"`
	ClientID           *string               `json:"clientId" binding:"omitempty,max=36"`
	StockMovementCode  *string               `json:"stockMovementCode" binding:"omitempty,max=50"`
	Items              *[]InvoiceItemRequest `json:"items" binding:"omitempty,dive"`
	Version            int                   `json:"version" binding:"required,min=1"`
}

// ApplyTo updates existing entity from DTO.
func (r *UpdateInvoiceRequest) ApplyTo(inv *invoice.Invoice) error {
	if r.Number != nil {
		inv.Number = *r.Number
	}
	if r.DeliveryNoteNumber != nil {
		inv.DeliveryNoteNumber = *r.DeliveryNoteNumber
	}
	if r.Status != nil {
		inv.Status = *r.Status
	}
	if r.ClientID != nil {
		clientID, err := ParseOptionalID("clientId", r.ClientID)
		if err != nil {
			return err
		}
		inv.ClientID = clientID
	}
	if r.StockMovementCode != nil {
		inv.StockMovementCode = *r.StockMovementCode
	}
	if r.Items != nil {
		inv.Items = toInvoiceItems(*r.Items)
	}
	inv.Version = r.Version
	return nil
}

// SetInvoiceStatusRequest toggles the manual PAID flag.
type SetInvoiceStatusRequest struct {
	Status invoice.Status `json:"status" binding:"required,invoicestatus"`
}

// AddPaymentRequest records a partial payment.
type AddPaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Note   string          `json:"note" binding:"max=500"`
}

// InvoiceListQuery adds invoice filters to the list parameters.
type InvoiceListQuery struct {
	ListQuery
	Status   string `form:"status" binding:"omitempty,invoicestatus"`
	ClientID string `form:"clientId" binding:"omitempty,uuid"`
}

// ToFilter converts the query into an invoice.ListFilter.
func (q InvoiceListQuery) ToFilter() (invoice.ListFilter, error) {
	base, err := q.ListQuery.ToFilter("-created_at")
	if err != nil {
		return invoice.ListFilter{}, err
	}
	clientID, err := ParseOptionalID("clientId", &q.ClientID)
	if err != nil {
		return invoice.ListFilter{}, err
	}
	return invoice.ListFilter{
		ListFilter: base,
		Status:     invoice.Status(q.Status),
		ClientID:   clientID,
	}, nil
}

// --- Response DTOs ---

// BalanceResponse is the settlement state of an invoice.
type BalanceResponse struct {
	Total     string `json:"total"`
	Paid      string `json:"paid"`
	Remaining string `json:"remaining"`
	FullyPaid bool   `json:"fullyPaid"`
}

// FromBalance converts a computed balance.
func FromBalance(b invoice.Balance) BalanceResponse {
	return BalanceResponse{
		Total:     Money(b.Total),
		Paid:      Money(b.Paid),
		Remaining: Money(b.Remaining),
		FullyPaid: b.FullyPaid,
	}
}

// InvoiceItemResponse is a free item with its amount.
type InvoiceItemResponse struct {
	ID          string         `json:"id"`
	LineNo      int            `json:"lineNo"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	UnitPrice   string         `json:"unitPrice"`
	Quantity    types.Quantity `json:"quantity"`
	Amount      string         `json:"amount"`
}

// InvoiceMovementLineResponse is a billed movement line.
type InvoiceMovementLineResponse struct {
	ArticleID   string           `json:"articleId"`
	ArticleName string           `json:"articleName"`
	Quantity    types.Quantity   `json:"quantity"`
	Location    article.Location `json:"location"`
	UnitPrice   string           `json:"unitPrice"`
	Amount      string           `json:"amount"`
}

// PaymentResponse is one ledger entry.
type PaymentResponse struct {
	ID        string    `json:"id"`
	InvoiceID string    `json:"invoiceId"`
	Amount    string    `json:"amount"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// FromPayment converts a payment.
func FromPayment(p invoice.Payment) PaymentResponse {
	return PaymentResponse{
		ID:        p.ID.String(),
		InvoiceID: p.InvoiceID.String(),
		Amount:    Money(p.Amount),
		Note:      p.Note,
		CreatedAt: p.CreatedAt,
	}
}

// InvoiceClientResponse is the client shown with an invoice.
type InvoiceClientResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// InvoiceResponse is the response for an invoice.
type InvoiceResponse struct {
	BaseResponse
	Number             string                        `json:"number"`
	DeliveryNoteNumber string                        `json:"deliveryNoteNumber,omitempty"`
	Status             invoice.Status                `json:"status"`
	ClientID           *string                       `json:"clientId"`
	Client             *InvoiceClientResponse        `json:"client"`
	StockMovementID    *string                       `json:"stockMovementId"`
	StockMovementCode  string                        `json:"stockMovementCode,omitempty"`
	MovementLines      []InvoiceMovementLineResponse `json:"movementLines"`
	Items              []InvoiceItemResponse         `json:"items"`
	Payments           []PaymentResponse             `json:"payments"`
	Balance            BalanceResponse               `json:"balance"`
}

// FromInvoice converts domain entity to response DTO.
func FromInvoice(inv *invoice.Invoice) InvoiceResponse {
	resp := InvoiceResponse{
		BaseResponse:       FromBase(inv.BaseEntity),
		Number:             inv.Number,
		DeliveryNoteNumber: inv.DeliveryNoteNumber,
		Status:             inv.Status,
		ClientID:           optionalIDString(inv.ClientID),
		StockMovementID:    optionalIDString(inv.StockMovementID),
		StockMovementCode:  inv.StockMovementCode,
		MovementLines:      make([]InvoiceMovementLineResponse, len(inv.MovementLines)),
		Items:              make([]InvoiceItemResponse, len(inv.Items)),
		Payments:           make([]PaymentResponse, len(inv.Payments)),
		Balance:            FromBalance(invoice.ComputeBalance(inv)),
	}
	if inv.Client != nil {
		resp.Client = &InvoiceClientResponse{
			ID:   inv.Client.ID.String(),
			Name: inv.Client.Name,
			Type: string(inv.Client.Type),
		}
	}
	for i, l := range inv.MovementLines {
		resp.MovementLines[i] = InvoiceMovementLineResponse{
			ArticleID:   l.ArticleID.String(),
			ArticleName: l.ArticleName,
			Quantity:    l.Quantity,
			Location:    l.Location,
			UnitPrice:   Money(l.UnitPrice),
			Amount:      Money(l.Amount()),
		}
	}
	for i, item := range inv.Items {
		resp.Items[i] = InvoiceItemResponse{
			ID:          item.ID.String(),
			LineNo:      item.LineNo,
			Name:        item.Name,
			Description: item.Description,
			UnitPrice:   Money(item.UnitPrice),
			Quantity:    item.Quantity,
			Amount:      Money(item.Amount()),
		}
	}
	for i, p := range inv.Payments {
		resp.Payments[i] = FromPayment(p)
	}
	return resp
}

// InvoiceSummaryResponse is the list form of an invoice.
type InvoiceSummaryResponse struct {
	BaseResponse
	Number            string          `json:"number"`
	Status            invoice.Status  `json:"status"`
	ClientID          *string         `json:"clientId"`
	ClientName        string          `json:"clientName,omitempty"`
	StockMovementCode string          `json:"stockMovementCode,omitempty"`
	Balance           BalanceResponse `json:"balance"`
}

// FromInvoiceSummary converts an invoice for list responses.
func FromInvoiceSummary(inv *invoice.Invoice) InvoiceSummaryResponse {
	resp := InvoiceSummaryResponse{
		BaseResponse:      FromBase(inv.BaseEntity),
		Number:            inv.Number,
		Status:            inv.Status,
		ClientID:          optionalIDString(inv.ClientID),
		StockMovementCode: inv.StockMovementCode,
		Balance:           FromBalance(invoice.ComputeBalance(inv)),
	}
	if inv.Client != nil {
		resp.ClientName = inv.Client.Name
	}
	return resp
}

// PaymentResultResponse is returned after adding or removing a payment.
type PaymentResultResponse struct {
	Payment *PaymentResponse `json:"payment,omitempty"`
	Invoice InvoiceResponse  `json:"invoice"`
}
