package invoice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/id"
	"stockflow/internal/core/types"
	"stockflow/internal/domain/catalogs/article"
)

func freeItemInvoice() *Invoice {
	inv := NewInvoice("F-001")
	inv.Items = []Item{{Name: "Service", UnitPrice: types.MustMoney("10.00"), Quantity: 3}}
	return inv
}

func TestComputeBalance_FreeItemsAndPayment(t *testing.T) {
	inv := freeItemInvoice()
	inv.Payments = []Payment{*NewPayment(inv.ID, types.MustMoney("12.50"), "")}

	b := ComputeBalance(inv)

	assert.Equal(t, "30.00", types.FormatMoney(b.Total))
	assert.Equal(t, "12.50", types.FormatMoney(b.Paid))
	assert.Equal(t, "17.50", types.FormatMoney(b.Remaining))
	assert.False(t, b.FullyPaid)
}

func TestValidatePayment_ExceedingRemaining(t *testing.T) {
	inv := freeItemInvoice()
	inv.Payments = []Payment{*NewPayment(inv.ID, types.MustMoney("12.50"), "")}

	err := ValidatePayment(inv, types.MustMoney("20.00"))

	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
	assert.Equal(t, "amount", appErr.Details["field"])
	assert.Equal(t, "17.50", appErr.Details["maxAllowed"])
	assert.Contains(t, appErr.Message, "17.50")

	assert.NoError(t, ValidatePayment(inv, types.MustMoney("17.50")))
	assert.True(t, apperror.IsValidation(ValidatePayment(inv, types.Zero())))
}

func TestComputeBalance_MovementLinesPlusItems(t *testing.T) {
	inv := freeItemInvoice()
	movementID := id.New()
	inv.StockMovementID = &movementID
	inv.MovementLines = []MovementLine{
		{ArticleID: id.New(), Quantity: 2, Location: article.LocationStore, UnitPrice: types.MustMoney("4.25")},
		{ArticleID: id.New(), Quantity: 1, Location: article.LocationDepot, UnitPrice: types.MustMoney("0.10")},
	}
	inv.StoredTotal = types.MustMoney("999")

	assert.Equal(t, "38.60", types.FormatMoney(ComputeBalance(inv).Total))
}

func TestLinesTotal_SumsWithoutRounding(t *testing.T) {
	inv := NewInvoice("F-ROUND")
	inv.Items = []Item{
		{Name: "Washer", UnitPrice: types.MustMoney("0.005"), Quantity: 1},
		{Name: "Washer", UnitPrice: types.MustMoney("0.005"), Quantity: 1},
		{Name: "Shim", UnitPrice: types.MustMoney("0.333"), Quantity: 3},
	}

	assert.True(t, inv.LinesTotal().Equal(types.MustMoney("1.009")), inv.LinesTotal().String())
	assert.True(t, NewInvoice("F-EMPTY").LinesTotal().IsZero())
}

func TestComputeBalance_ManualTotalOnlyWithoutLines(t *testing.T) {
	inv := NewInvoice("LEGACY-1")
	inv.StoredTotal = types.MustMoney("50.00")
	inv.LegacyAmountPaid = types.MustMoney("20.00")

	b := ComputeBalance(inv)
	assert.Equal(t, "50.00", types.FormatMoney(b.Total))
	assert.Equal(t, "20.00", types.FormatMoney(b.Paid))
	assert.Equal(t, "30.00", types.FormatMoney(b.Remaining))
}

func TestComputeBalance_PaymentsOverrideLegacyAmount(t *testing.T) {
	inv := NewInvoice("LEGACY-2")
	inv.StoredTotal = types.MustMoney("50.00")
	inv.LegacyAmountPaid = types.MustMoney("45.00")
	inv.Payments = []Payment{
		{Amount: types.MustMoney("5.00")},
		{Amount: types.MustMoney("2.50")},
	}

	assert.Equal(t, "7.50", types.FormatMoney(inv.Paid()))
}

func TestComputeBalance_RemainingNeverNegative(t *testing.T) {
	inv := freeItemInvoice()
	inv.Payments = []Payment{{Amount: types.MustMoney("40.00")}}

	b := ComputeBalance(inv)
	assert.True(t, b.Remaining.IsZero())
	assert.Equal(t, "-10.00", types.FormatMoney(inv.Outstanding()))

	// Overpaid invoices accept no further payment.
	err := ValidatePayment(inv, types.MustMoney("0.01"))
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "-10.00", appErr.Details["maxAllowed"])
}

func TestComputeBalance_PaidFlagIsManual(t *testing.T) {
	inv := freeItemInvoice()
	inv.Status = StatusPaid

	b := ComputeBalance(inv)
	assert.True(t, b.FullyPaid)
	assert.Equal(t, "30.00", types.FormatMoney(b.Remaining))

	inv.Status = StatusUnpaid
	inv.Payments = []Payment{{Amount: types.MustMoney("30.00")}}
	b = ComputeBalance(inv)
	assert.False(t, b.FullyPaid)
	assert.True(t, b.Remaining.IsZero())
}

func TestEnsurePositiveTotal(t *testing.T) {
	assert.NoError(t, EnsurePositiveTotal(freeItemInvoice()))

	empty := NewInvoice("F-002")
	err := EnsurePositiveTotal(empty)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "total", appErr.Details["field"])
}
