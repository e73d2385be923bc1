package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateTotals(t *testing.T) {
	items := []CartItem{
		{ID: "1", Price: 100, Quantity: 2},
		{ID: "2", Price: 50, Quantity: 1},
	}

	totals := CalculateTotals(items, DefaultShippingFee)

	assert.Equal(t, 250.0, totals.Subtotal)
	assert.Equal(t, 150.0, totals.Shipping)
	assert.Equal(t, 400.0, totals.Total)
}

func TestCalculateTotals_EmptyCart(t *testing.T) {
	totals := CalculateTotals(nil, DefaultShippingFee)

	assert.Equal(t, 0.0, totals.Subtotal)
	assert.Equal(t, 0.0, totals.Shipping)
	assert.Equal(t, 0.0, totals.Total)
}

func TestCalculateTotals_ShippingIsFlat(t *testing.T) {
	items := []CartItem{
		{ID: "1", Price: 10, Quantity: 7},
		{ID: "2", Price: 1, Quantity: 3},
		{ID: "3", Price: 2, Quantity: 1},
	}

	totals := CalculateTotals(items, 99)

	assert.Equal(t, 99.0, totals.Shipping)
	assert.Equal(t, 75.0+99.0, totals.Total)
}

func TestTotalQuantity(t *testing.T) {
	items := []CartItem{{ID: "1", Quantity: 2}, {ID: "2", Quantity: 5}}
	assert.Equal(t, 7, TotalQuantity(items))
	assert.Equal(t, 0, TotalQuantity(nil))
}
