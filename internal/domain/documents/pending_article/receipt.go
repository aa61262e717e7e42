package pending_article

import (
	"strings"
	"unicode/utf8"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/types"
	"stockflow/internal/domain/catalogs/article"
	"stockflow/internal/domain/documents/stock_movement"
)

// Receipt is one delivery against a pending article.
type Receipt struct {
	Quantity types.Quantity
	Location article.Location
	Reason   string

	// ExpectedVersion, when set, must match the pending article's current version.
	ExpectedVersion *int
}

// Normalize trims the reason and defaults the location to the store.
func (r *Receipt) Normalize() {
	r.Reason = strings.TrimSpace(r.Reason)
	if r.Location == "" {
		r.Location = article.LocationStore
	}
}

// Validate checks the receipt fields. The quantity range is checked against
// the pending article by PendingArticle.Receive.
func (r Receipt) Validate() error {
	if !r.Location.Valid() {
		return apperror.NewFieldValidation("location", "location must be STORE or DEPOT").
			WithDetail("value", string(r.Location))
	}
	if utf8.RuneCountInString(r.Reason) > 255 {
		return apperror.NewFieldValidation("reason", "reason must be at most 255 characters")
	}
	return nil
}

// BuildMovement translates a receipt into the IN movement that books it:
// one line for the pending article's article at the receipt location.
func BuildMovement(p *PendingArticle, r Receipt) *stock_movement.StockMovement {
	return stock_movement.NewStockMovement(stock_movement.TypeIn, r.Reason, stock_movement.Line{
		ArticleID: p.ArticleID,
		Quantity:  r.Quantity,
		Location:  r.Location,
	})
}
