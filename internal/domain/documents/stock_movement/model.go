// Package stock_movement provides stock movements: IN and OUT changes of article
// quantities at the store and the depot.
package stock_movement

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/entity"
	"stockflow/internal/core/id"
	"stockflow/internal/core/types"
	"stockflow/internal/domain/catalogs/article"
)

// Type is the direction of a movement.
type Type string

const (
	TypeIn  Type = "IN"
	TypeOut Type = "OUT"
)

// Valid reports whether t is a known movement type.
func (t Type) Valid() bool {
	return t == TypeIn || t == TypeOut
}

// sign is +1 for IN and -1 for OUT.
func (t Type) sign() int64 {
	if t == TypeOut {
		return -1
	}
	return 1
}

// Line moves a quantity of one article at one location.
type Line struct {
	ID         id.ID            `db:"id" json:"id"`
	MovementID id.ID            `db:"movement_id" json:"-"`
	LineNo     int              `db:"line_no" json:"lineNo"`
	ArticleID  id.ID            `db:"article_id" json:"articleId"`
	Quantity   types.Quantity   `db:"quantity" json:"quantity"`
	Location   article.Location `db:"location" json:"location"`

	// ArticleName is filled on reads.
	ArticleName string `db:"article_name" json:"articleName,omitempty"`
}

// StockMovement is a recorded change to stock quantities.
type StockMovement struct {
	entity.BaseEntity

	// Code is unique. Generated (MVT-YYYY-NNNNN) when left empty on create.
	Code   string `db:"code" json:"code"`
	Type   Type   `db:"type" json:"type"`
	Reason string `db:"reason" json:"reason"`

	Lines []Line `db:"-" json:"lines"`
}

// NewStockMovement creates a movement with the given lines.
func NewStockMovement(movementType Type, reason string, lines ...Line) *StockMovement {
	m := &StockMovement{
		BaseEntity: entity.NewBaseEntity(),
		Type:       movementType,
		Reason:     reason,
	}
	m.SetLines(lines)
	return m
}

// SetLines replaces the lines, assigning ids and positions.
func (m *StockMovement) SetLines(lines []Line) {
	m.Lines = make([]Line, len(lines))
	for i, l := range lines {
		if id.IsNil(l.ID) {
			l.ID = id.New()
		}
		l.MovementID = m.ID
		l.LineNo = i + 1
		m.Lines[i] = l
	}
}

// Validate implements entity.Validatable interface.
func (m *StockMovement) Validate(ctx context.Context) error {
	if utf8.RuneCountInString(m.Code) > 50 {
		return apperror.NewFieldValidation("code", "code must be at most 50 characters")
	}
	if !m.Type.Valid() {
		return apperror.NewFieldValidation("type", "movement type must be IN or OUT").
			WithDetail("value", string(m.Type))
	}
	if utf8.RuneCountInString(m.Reason) > 255 {
		return apperror.NewFieldValidation("reason", "reason must be at most 255 characters")
	}
	if len(m.Lines) == 0 {
		return apperror.NewFieldValidation("lines", "at least one line is required")
	}

	for i, l := range m.Lines {
		field := fmt.Sprintf("lines[%d]", i)
		if id.IsNil(l.ArticleID) {
			return apperror.NewFieldValidation(field+".articleId", "article is required")
		}
		if !l.Quantity.IsPositive() {
			return apperror.NewFieldValidation(field+".quantity", "quantity must be at least 1").
				WithDetail("value", l.Quantity.Int64())
		}
		if !l.Location.Valid() {
			return apperror.NewFieldValidation(field+".location", "location must be STORE or DEPOT").
				WithDetail("value", string(l.Location))
		}
	}
	return nil
}

// Normalize trims free text.
func (m *StockMovement) Normalize() {
	m.Code = strings.TrimSpace(m.Code)
	m.Reason = strings.TrimSpace(m.Reason)
}

// StockDelta is the net change the movement applies to one article location.
type StockDelta struct {
	ArticleID id.ID
	Location  article.Location
	Delta     int64
}

// Effect returns the net stock change of m per (article, location), in a
// stable order. IN lines add, OUT lines subtract.
func (m *StockMovement) Effect() []StockDelta {
	return mergeDeltas(m.deltas(1))
}

// Reversal returns the change that undoes m.
func (m *StockMovement) Reversal() []StockDelta {
	return mergeDeltas(m.deltas(-1))
}

// NetChange returns the change that turns the stock effect of from into the effect of to.
func NetChange(from, to *StockMovement) []StockDelta {
	all := append(from.deltas(-1), to.deltas(1)...)
	return mergeDeltas(all)
}

func (m *StockMovement) deltas(factor int64) []StockDelta {
	out := make([]StockDelta, 0, len(m.Lines))
	for _, l := range m.Lines {
		out = append(out, StockDelta{
			ArticleID: l.ArticleID,
			Location:  l.Location,
			Delta:     factor * m.Type.sign() * l.Quantity.Int64(),
		})
	}
	return out
}

type deltaKey struct {
	articleID id.ID
	location  article.Location
}

func mergeDeltas(in []StockDelta) []StockDelta {
	sums := make(map[deltaKey]int64, len(in))
	order := make([]deltaKey, 0, len(in))
	for _, d := range in {
		k := deltaKey{d.ArticleID, d.Location}
		if _, seen := sums[k]; !seen {
			order = append(order, k)
		}
		sums[k] += d.Delta
	}

	out := make([]StockDelta, 0, len(order))
	for _, k := range order {
		if sums[k] == 0 {
			continue
		}
		out = append(out, StockDelta{ArticleID: k.articleID, Location: k.location, Delta: sums[k]})
	}
	return out
}

// ArticleIDs returns the distinct articles referenced by deltas.
func ArticleIDs(deltas []StockDelta) []id.ID {
	seen := make(map[id.ID]struct{}, len(deltas))
	ids := make([]id.ID, 0, len(deltas))
	for _, d := range deltas {
		if _, ok := seen[d.ArticleID]; ok {
			continue
		}
		seen[d.ArticleID] = struct{}{}
		ids = append(ids, d.ArticleID)
	}
	return ids
}

// TotalQuantity sums all line quantities of m.
func (m *StockMovement) TotalQuantity() types.Quantity {
	var total types.Quantity
	for _, l := range m.Lines {
		total += l.Quantity
	}
	return total
}
