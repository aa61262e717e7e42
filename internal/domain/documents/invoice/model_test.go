package invoice

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/id"
	"stockflow/internal/core/types"
)

func TestNormalizeItems(t *testing.T) {
	invoiceID := id.New()

	items, err := NormalizeItems(invoiceID, []Item{
		{Name: " Labour ", UnitPrice: types.MustMoney("25"), Quantity: 2},
		{Name: "Free sample", UnitPrice: types.Zero(), Quantity: 4},
		{Name: "Nothing", UnitPrice: types.MustMoney("3"), Quantity: 0},
		{Name: "Delivery", UnitPrice: types.MustMoney("7.5"), Quantity: 1},
	})
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "Labour", items[0].Name)
	assert.Equal(t, 1, items[0].LineNo)
	assert.Equal(t, "Delivery", items[1].Name)
	assert.Equal(t, 2, items[1].LineNo)
	for _, item := range items {
		assert.Equal(t, invoiceID, item.InvoiceID)
		assert.False(t, id.IsNil(item.ID))
	}
}

func TestNormalizeItems_RejectsNegatives(t *testing.T) {
	_, err := NormalizeItems(id.New(), []Item{{Name: "x", UnitPrice: types.MustMoney("-1"), Quantity: 1}})
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "items[0].unitPrice", appErr.Details["field"])

	_, err = NormalizeItems(id.New(), []Item{{Name: "x", UnitPrice: types.MustMoney("1"), Quantity: -2}})
	appErr, ok = apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "items[0].quantity", appErr.Details["field"])

	_, err = NormalizeItems(id.New(), []Item{{Name: "  ", UnitPrice: types.MustMoney("1"), Quantity: 1}})
	assert.True(t, apperror.IsValidation(err))
}

func TestInvoice_Validate(t *testing.T) {
	ctx := context.Background()

	inv := NewInvoice("F-10")
	require.NoError(t, inv.Validate(ctx))

	inv.Number = ""
	assert.True(t, apperror.IsValidation(inv.Validate(ctx)))

	inv.Number = strings.Repeat("9", 101)
	assert.True(t, apperror.IsValidation(inv.Validate(ctx)))

	inv.Number = "F-10"
	inv.Status = "OPEN"
	assert.True(t, apperror.IsValidation(inv.Validate(ctx)))
}

func TestPayment_Validate(t *testing.T) {
	p := NewPayment(id.New(), types.MustMoney("1.00"), "  cash ")
	require.NoError(t, p.Validate())
	assert.Equal(t, "cash", p.Note)

	p.Amount = types.MustMoney("-1")
	assert.True(t, apperror.IsValidation(p.Validate()))

	p.Amount = types.MustMoney("1")
	p.Note = strings.Repeat("n", 501)
	assert.True(t, apperror.IsValidation(p.Validate()))
}
