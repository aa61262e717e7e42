// Package pending_article provides the queue of ordered articles awaiting
// delivery and the receipt operation that books them into stock.
package pending_article

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
)

// Status is derived from expected and received quantities, never set directly.
type Status string

const (
	StatusAwaiting          Status = "AWAITING"
	StatusPartiallyReceived Status = "PARTIALLY_RECEIVED"
	StatusReceived          Status = "RECEIVED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusAwaiting || s == StatusPartiallyReceived || s == StatusReceived
}

// DeriveStatus maps cumulative reception progress to a status.
func DeriveStatus(expected, received types.Quantity) Status {
	switch {
	case received <= 0:
		return StatusAwaiting
	case received < expected:
		return StatusPartiallyReceived
	default:
		return StatusReceived
	}
}

// PendingArticle is an ordered quantity of an article not yet fully delivered.
type PendingArticle struct {
	entity.BaseEntity

	ArticleID        id.ID          `db:"article_id" json:"articleId"`
	QuantityExpected types.Quantity `db:"quantity_expected" json:"quantityExpected"`
	QuantityReceived types.Quantity `db:"quantity_received" json:"quantityReceived"`

	ExpectedDate  *time.Time `db:"expected_date" json:"expectedDate"`
	ReceptionDate *time.Time `db:"reception_date" json:"receptionDate"`

	Status Status `db:"status" json:"status"`
	Note   string `db:"note" json:"note"`

	// ArticleName is filled on reads.
	ArticleName string `db:"article_name" json:"articleName,omitempty"`
}

// NewPendingArticle creates an awaiting entry for expected units of articleID.
func NewPendingArticle(articleID id.ID, expected types.Quantity) *PendingArticle {
	return &PendingArticle{
		BaseEntity:       entity.NewBaseEntity(),
		ArticleID:        articleID,
		QuantityExpected: expected,
		Status:           StatusAwaiting,
	}
}

// Normalize trims the note and re-derives the status.
func (p *PendingArticle) Normalize() {
	p.Note = strings.TrimSpace(p.Note)
	p.Status = DeriveStatus(p.QuantityExpected, p.QuantityReceived)
}

// Validate implements entity.Validatable interface.
func (p *PendingArticle) Validate(ctx context.Context) error {
	if id.IsNil(p.ArticleID) {
		return apperror.NewFieldValidation("articleId", "article is required")
	}
	if p.QuantityExpected < 1 {
		return apperror.NewFieldValidation("quantityExpected", "expected quantity must be at least 1").
			WithDetail("value", p.QuantityExpected.Int64())
	}
	if p.QuantityReceived.IsNegative() {
		return apperror.NewFieldValidation("quantityReceived", "received quantity must not be negative")
	}
	if p.QuantityExpected < p.QuantityReceived {
		return apperror.NewFieldValidation("quantityExpected",
			fmt.Sprintf("expected quantity cannot be lower than the %d units already received", p.QuantityReceived)).
			WithDetail("minAllowed", p.QuantityReceived.Int64())
	}
	if utf8.RuneCountInString(p.Note) > 1000 {
		return apperror.NewFieldValidation("note", "note must be at most 1000 characters")
	}
	if p.Status != DeriveStatus(p.QuantityExpected, p.QuantityReceived) {
		return apperror.NewFieldValidation("status", "status does not match the received quantity").
			WithDetail("value", string(p.Status))
	}
	return nil
}

// Remaining is how many units are still expected.
func (p *PendingArticle) Remaining() types.Quantity {
	if p.QuantityReceived >= p.QuantityExpected {
		return 0
	}
	return p.QuantityExpected - p.QuantityReceived
}

// Receive books qty delivered units at now. qty must be between 1 and the
// remaining quantity; on failure p is unchanged.
func (p *PendingArticle) Receive(qty types.Quantity, now time.Time) error {
	remaining := p.Remaining()
	if qty < 1 || qty > remaining {
		return apperror.NewFieldValidation("quantity",
			fmt.Sprintf("received quantity must be between 1 and %d", remaining)).
			WithDetail("maxAllowed", remaining.Int64()).
			WithDetail("value", qty.Int64())
	}

	p.QuantityReceived += qty
	p.Status = DeriveStatus(p.QuantityExpected, p.QuantityReceived)
	received := now.UTC()
	p.ReceptionDate = &received
	return nil
}
