// Package article provides the Article catalog: products stocked in the store and the depot.
package article

import (
	"context"
	"strings"
	"unicode/utf8"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/entity"
	"stockflow/internal/core/types"
)

// DefaultLowStockThreshold is the total stock below which an article is reported as low.
const DefaultLowStockThreshold types.Quantity = 10

// Location is one of the two places stock is held.
type Location string

const (
	LocationStore Location = "STORE"
	LocationDepot Location = "DEPOT"
)

// Valid reports whether l is a known location.
func (l Location) Valid() bool {
	return l == LocationStore || l == LocationDepot
}

// StockLevel is the derived availability class of an article.
type StockLevel string

const (
	StockOut StockLevel = "OUT_OF_STOCK"
	StockLow StockLevel = "LOW_STOCK"
	StockIn  StockLevel = "IN_STOCK"
)

// Valid reports whether s is a known stock level.
func (s StockLevel) Valid() bool {
	return s == StockOut || s == StockLow || s == StockIn
}

// Article is a stocked product.
type Article struct {
	entity.BaseEntity

	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description"`

	QuantityStore types.Quantity `db:"quantity_store" json:"quantityStore"`
	QuantityDepot types.Quantity `db:"quantity_depot" json:"quantityDepot"`

	// SalePrice is the unit sale price, also used to price invoiced movement lines.
	SalePrice types.Money `db:"sale_price" json:"salePrice"`
}

// NewArticle creates an Article with no stock.
func NewArticle(name string, salePrice types.Money) *Article {
	return &Article{
		BaseEntity: entity.NewBaseEntity(),
		Name:       name,
		SalePrice:  salePrice,
	}
}

// Validate implements entity.Validatable interface.
func (a *Article) Validate(ctx context.Context) error {
	name := strings.TrimSpace(a.Name)
	if name == "" {
		return apperror.NewFieldValidation("name", "name is required")
	}
	if utf8.RuneCountInString(name) > 255 {
		return apperror.NewFieldValidation("name", "name must be at most 255 characters")
	}
	if utf8.RuneCountInString(a.Description) > 1000 {
		return apperror.NewFieldValidation("description", "description must be at most 1000 characters")
	}
	if a.QuantityStore.IsNegative() {
		return apperror.NewFieldValidation("quantityStore", "store quantity must not be negative")
	}
	if a.QuantityDepot.IsNegative() {
		return apperror.NewFieldValidation("quantityDepot", "depot quantity must not be negative")
	}
	if a.SalePrice.LessThan(types.MustMoney("0.01")) {
		return apperror.NewFieldValidation("salePrice", "sale price must be at least 0.01").
			WithDetail("value", types.FormatMoney(a.SalePrice))
	}
	return nil
}

// TotalStock is store plus depot. It is always derived, never stored.
func (a *Article) TotalStock() types.Quantity {
	return a.QuantityStore + a.QuantityDepot
}

// StockLevel classifies the total stock against threshold.
func (a *Article) StockLevel(threshold types.Quantity) StockLevel {
	return LevelOf(a.TotalStock(), threshold)
}

// LevelOf classifies a total stock quantity.
func LevelOf(total, threshold types.Quantity) StockLevel {
	switch {
	case total <= 0:
		return StockOut
	case total < threshold:
		return StockLow
	default:
		return StockIn
	}
}

// QuantityAt returns the stock held at loc.
func (a *Article) QuantityAt(loc Location) types.Quantity {
	if loc == LocationDepot {
		return a.QuantityDepot
	}
	return a.QuantityStore
}

// AdjustStock adds delta (negative to remove) at loc. Stock never goes below
// zero: a shortage is an INSUFFICIENT_STOCK error and leaves the article unchanged.
func (a *Article) AdjustStock(loc Location, delta int64) error {
	if !loc.Valid() {
		return apperror.NewFieldValidation("location", "unknown stock location").
			WithDetail("value", string(loc))
	}

	current := a.QuantityAt(loc)
	next := current.Int64() + delta
	if next < 0 {
		return apperror.NewInsufficientStock(a.ID.String(), string(loc), -delta, current.Int64()).
			WithDetail("articleName", a.Name)
	}

	if loc == LocationDepot {
		a.QuantityDepot = types.Quantity(next)
	} else {
		a.QuantityStore = types.Quantity(next)
	}
	return nil
}

// Valuation is total stock times sale price.
func (a *Article) Valuation() types.Money {
	return types.MultiplyMoney(a.SalePrice, a.TotalStock())
}
