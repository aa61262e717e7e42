package invoice

import (
	"fmt"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/types"
)

// Balance is the settlement state of an invoice.
type Balance struct {
	Total     types.Money `json:"total"`
	Paid      types.Money `json:"paid"`
	Remaining types.Money `json:"remaining"`
	FullyPaid bool        `json:"fullyPaid"`
}

// ComputeBalance derives total, paid and remaining from the invoice snapshot.
// Remaining is clamped at zero; FullyPaid mirrors the manual PAID flag.
func ComputeBalance(inv *Invoice) Balance {
	return Balance{
		Total:     inv.Total(),
		Paid:      inv.Paid(),
		Remaining: types.MaxMoney(inv.Outstanding(), types.Zero()),
		FullyPaid: inv.Status == StatusPaid,
	}
}

// LinesTotal sums the priced movement lines and the free items.
func (inv *Invoice) LinesTotal() types.Money {
	amounts := make([]types.Money, 0, len(inv.MovementLines)+len(inv.Items))
	for _, l := range inv.MovementLines {
		amounts = append(amounts, l.Amount())
	}
	for _, item := range inv.Items {
		amounts = append(amounts, item.Amount())
	}
	return types.SumMoney(amounts...)
}

// Total is the lines total, or the stored manual total for an invoice
// without a linked movement and without free items.
func (inv *Invoice) Total() types.Money {
	if !inv.HasSource() {
		return inv.StoredTotal
	}
	return inv.LinesTotal()
}

// Paid sums the payment ledger. Invoices without payments fall back to the legacy amount.
func (inv *Invoice) Paid() types.Money {
	if len(inv.Payments) == 0 {
		return inv.LegacyAmountPaid
	}
	amounts := make([]types.Money, len(inv.Payments))
	for i, p := range inv.Payments {
		amounts[i] = p.Amount
	}
	return types.SumMoney(amounts...)
}

// Outstanding is total minus paid, not clamped. Negative when overpaid.
func (inv *Invoice) Outstanding() types.Money {
	return inv.Total().Sub(inv.Paid())
}

// ValidatePayment checks that amount is positive and does not exceed the
// unclamped outstanding amount. The error carries that amount as maxAllowed.
func ValidatePayment(inv *Invoice, amount types.Money) error {
	if !amount.IsPositive() {
		return apperror.NewFieldValidation("amount", "payment amount must be greater than 0").
			WithDetail("value", types.FormatMoney(amount))
	}

	outstanding := inv.Outstanding()
	if amount.GreaterThan(outstanding) {
		maxAllowed := types.FormatMoney(outstanding)
		return apperror.NewFieldValidation("amount",
			fmt.Sprintf("payment of %s exceeds the remaining amount, max allowed is %s", types.FormatMoney(amount), maxAllowed)).
			WithDetail("maxAllowed", maxAllowed).
			WithDetail("remaining", maxAllowed).
			WithDetail("value", types.FormatMoney(amount))
	}
	return nil
}

// EnsurePositiveTotal rejects invoices whose computed total is not above zero.
func EnsurePositiveTotal(inv *Invoice) error {
	total := inv.Total()
	if !total.IsPositive() {
		return apperror.NewFieldValidation("total", "invoice total must be greater than 0").
			WithDetail("value", types.FormatMoney(total))
	}
	return nil
}
