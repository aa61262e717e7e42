package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"stockflow/internal/core/id"
	"stockflow/internal/core/types"
	"stockflow/internal/domain"
	"stockflow/internal/domain/documents/invoice"
	"stockflow/internal/infrastructure/http/v1/dto"
)

// InvoiceService is what the invoice handler needs. invoice.Service implements it.
type InvoiceService interface {
	Create(ctx context.Context, inv *invoice.Invoice) error
	Update(ctx context.Context, inv *invoice.Invoice) error
	Delete(ctx context.Context, invoiceID id.ID) error
	GetByID(ctx context.Context, invoiceID id.ID) (*invoice.Invoice, error)
	List(ctx context.Context, filter invoice.ListFilter) (domain.ListResult[*invoice.Invoice], error)
	SetStatus(ctx context.Context, invoiceID id.ID, status invoice.Status) (*invoice.Invoice, error)
	AddPayment(ctx context.Context, invoiceID id.ID, amount types.Money, note string) (*invoice.Payment, *invoice.Invoice, error)
	RemovePayment(ctx context.Context, paymentID id.ID) (*invoice.Invoice, error)
}

// InvoiceHandler handles HTTP requests for invoices and their payments.
type InvoiceHandler struct {
	*BaseHandler
	service InvoiceService
}

// NewInvoiceHandler creates a new invoice handler.
func NewInvoiceHandler(base *BaseHandler, service InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{
		BaseHandler: base,
		service:     service,
	}
}

// List handles GET /invoices.
func (h *InvoiceHandler) List(c *gin.Context) {
	var q dto.InvoiceListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.NewListResponse(result, dto.FromInvoiceSummary))
}

// Get handles GET /invoices/:id.
func (h *InvoiceHandler) Get(c *gin.Context) {
	invoiceID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	inv, err := h.service.GetByID(c.Request.Context(), invoiceID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromInvoice(inv))
}

// GetBalance handles GET /invoices/:id/balance.
func (h *InvoiceHandler) GetBalance(c *gin.Context) {
	invoiceID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	inv, err := h.service.GetByID(c.Request.Context(), invoiceID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromBalance(invoice.ComputeBalance(inv)))
}

// Create handles POST /invoices.
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req dto.CreateInvoiceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	inv, err := req.ToEntity()
	if err != nil {
		h.Error(c, err)
		return
	}
	if err := h.service.Create(c.Request.Context(), inv); err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromInvoice(inv))
}

// Update handles PATCH /invoices/:id. Absent fields keep their value.
func (h *InvoiceHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()

	invoiceID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateInvoiceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	inv, err := h.service.GetByID(ctx, invoiceID)
	if err != nil {
		h.Error(c, err)
		return
	}
	if err := req.ApplyTo(inv); err != nil {
		h.Error(c, err)
		return
	}
	if err := h.service.Update(ctx, inv); err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromInvoice(inv))
}

// Delete handles DELETE /invoices/:id.
func (h *InvoiceHandler) Delete(c *gin.Context) {
	invoiceID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), invoiceID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// SetStatus handles POST /invoices/:id/status.
func (h *InvoiceHandler) SetStatus(c *gin.Context) {
	invoiceID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.SetInvoiceStatusRequest
	if !h.BindJSON(c, &req) {
		return
	}

	inv, err := h.service.SetStatus(c.Request.Context(), invoiceID, req.Status)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromInvoice(inv))
}

// AddPayment handles POST /invoices/:id/payments.
func (h *InvoiceHandler) AddPayment(c *gin.Context) {
	invoiceID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.AddPaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	payment, inv, err := h.service.AddPayment(c.Request.Context(), invoiceID, req.Amount, req.Note)
	if err != nil {
		h.Error(c, err)
		return
	}

	p := dto.FromPayment(*payment)
	h.Created(c, dto.PaymentResultResponse{Payment: &p, Invoice: dto.FromInvoice(inv)})
}

// RemovePayment handles DELETE /payments/:paymentId.
func (h *InvoiceHandler) RemovePayment(c *gin.Context) {
	paymentID, ok := h.ParseID(c, "paymentId")
	if !ok {
		return
	}

	inv, err := h.service.RemovePayment(c.Request.Context(), paymentID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.PaymentResultResponse{Invoice: dto.FromInvoice(inv)})
}
