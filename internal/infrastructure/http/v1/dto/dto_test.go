package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/id"
	"stockflow/internal/core/types"
	"stockflow/internal/domain"
	"stockflow/internal/domain/documents/invoice"
	"stockflow/internal/domain/filter"
)

func TestListQuery_ToFilter(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		f, err := ListQuery{Search: "  bolt "}.ToFilter("name")
		require.NoError(t, err)

		assert.Equal(t, "bolt", f.Search)
		assert.Equal(t, "name", f.OrderBy)
		assert.Equal(t, 50, f.Limit)
	})

	t.Run("clamps limit", func(t *testing.T) {
		f, err := ListQuery{Limit: 10000, OrderBy: "-name"}.ToFilter("name")
		require.NoError(t, err)

		assert.Equal(t, domain.MaxListLimit, f.Limit)
		assert.Equal(t, "-name", f.OrderBy)
	})

	t.Run("advanced filter", func(t *testing.T) {
		f, err := ListQuery{Filter: `[{"field":"sale_price","operator":"gte","value":10}]`}.ToFilter("name")
		require.NoError(t, err)

		require.Len(t, f.AdvancedFilters, 1)
		assert.Equal(t, filter.GreaterOrEqual, f.AdvancedFilters[0].Operator)
	})

	t.Run("unknown operator", func(t *testing.T) {
		_, err := ListQuery{Filter: `[{"field":"name","operator":"regex","value":"x"}]`}.ToFilter("name")
		assert.True(t, apperror.IsValidation(err))
	})

	t.Run("malformed filter", func(t *testing.T) {
		_, err := ListQuery{Filter: `{`}.ToFilter("name")
		assert.True(t, apperror.IsValidation(err))
	})
}

func TestUpdateInvoiceRequest_ApplyTo(t *testing.T) {
	clientID := id.New()
	newInvoice := func() *invoice.Invoice {
		inv := invoice.NewInvoice("INV-7")
		inv.DeliveryNoteNumber = "DN-1"
		inv.ClientID = &clientID
		inv.StockMovementCode = "MVT-2024-00001"
		inv.Items = []invoice.Item{{Name: "Labour", UnitPrice: types.MustMoney("40"), Quantity: 1}}
		return inv
	}

	t.Run("absent fields are kept", func(t *testing.T) {
		inv := newInvoice()
		number := "INV-8"
		req := UpdateInvoiceRequest{Number: &number, Version: 2}

		require.NoError(t, req.ApplyTo(inv))
		assert.Equal(t, "INV-8", inv.Number)
		assert.Equal(t, "DN-1", inv.DeliveryNoteNumber)
		assert.Equal(t, &clientID, inv.ClientID)
		assert.Equal(t, "MVT-2024-00001", inv.StockMovementCode)
		assert.Len(t, inv.Items, 1)
		assert.Equal(t, 2, inv.Version)
	})

	t.Run("empty values clear links", func(t *testing.T) {
		inv := newInvoice()
		empty := ""
		items := []InvoiceItemRequest{}
		req := UpdateInvoiceRequest{ClientID: &empty, StockMovementCode: &empty, Items: &items, Version: 1}

		require.NoError(t, req.ApplyTo(inv))
		assert.Nil(t, inv.ClientID)
		assert.Empty(t, inv.StockMovementCode)
		assert.Empty(t, inv.Items)
	})

	t.Run("bad client id", func(t *testing.T) {
		bad := "nope"
		req := UpdateInvoiceRequest{ClientID: &bad, Version: 1}

		err := req.ApplyTo(newInvoice())
		assert.True(t, apperror.IsValidation(err))
	})
}

func TestCreateStockMovementRequest_ToEntity(t *testing.T) {
	articleID := id.New()
	req := CreateStockMovementRequest{
		Type:   "IN",
		Reason: "delivery",
		Lines: []StockMovementLineRequest{
			{ArticleID: articleID.String(), Quantity: 4, Location: "STORE"},
			{ArticleID: articleID.String(), Quantity: 6, Location: "DEPOT"},
		},
	}

	m, err := req.ToEntity()
	require.NoError(t, err)

	resp := FromStockMovement(m)
	assert.EqualValues(t, 10, resp.TotalQuantity)
	assert.Len(t, resp.Lines, 2)
	assert.Equal(t, articleID.String(), resp.Lines[0].ArticleID)
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "12.50", Money(types.MustMoney("12.5")))
	assert.Equal(t, "0.00", Money(types.Zero()))
}
