package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCart_Total(t *testing.T) {
	cart := &Cart{
		Lines: []CartLine{
			{ProductID: "1", UnitPrice: 10.50, Quantity: 2},
			{ProductID: "2", UnitPrice: 3.25, Quantity: 4},
		},
	}

	assert.Equal(t, 34.0, cart.Total())
}

func TestCart_Total_Empty(t *testing.T) {
	cart := &Cart{}
	assert.Equal(t, 0.0, cart.Total())
}

func TestCart_Total_FractionalPrices(t *testing.T) {
	cart := &Cart{
		Lines: []CartLine{
			{ProductID: "1", UnitPrice: 0.1, Quantity: 3},
		},
	}

	assert.InDelta(t, 0.3, cart.Total(), 1e-9)
}

func TestCart_ItemCount(t *testing.T) {
	cart := &Cart{
		Lines: []CartLine{
			{ProductID: "1", Quantity: 2},
			{ProductID: "2", Quantity: 5},
		},
	}

	assert.Equal(t, 7, cart.ItemCount())
}

func TestCart_FindLineIndex(t *testing.T) {
	cart := &Cart{
		Lines: []CartLine{
			{ProductID: "a"},
			{ProductID: "b"},
		},
	}

	assert.Equal(t, 0, cart.FindLineIndex("a"))
	assert.Equal(t, 1, cart.FindLineIndex("b"))
	assert.Equal(t, -1, cart.FindLineIndex("c"))
}

func TestCart_EnsureOrderNumber_LazyAndStable(t *testing.T) {
	cart := &Cart{Customer: "maria"}
	require.Zero(t, cart.OrderNumber)

	first := cart.EnsureOrderNumber()
	assert.NotZero(t, first)

	// Repeated calls reuse the assigned number.
	assert.Equal(t, first, cart.EnsureOrderNumber())
	assert.Equal(t, first, cart.OrderNumber)

	// The number is in the expected range: current millis plus [0,1000).
	now := time.Now().UnixMilli()
	assert.GreaterOrEqual(t, first, now-10_000)
	assert.Less(t, first, now+1000)
}

func TestCart_ReleaseOrderNumber_RenewsOnNextEnsure(t *testing.T) {
	cart := &Cart{Customer: "maria"}
	first := cart.EnsureOrderNumber()

	cart.ReleaseOrderNumber()
	assert.Zero(t, cart.OrderNumber)

	// A fresh number is drawn; collision is possible but vanishingly
	// unlikely across a handful of attempts.
	renewed := false
	for i := 0; i < 5; i++ {
		cart.ReleaseOrderNumber()
		if cart.EnsureOrderNumber() != first {
			renewed = true
			break
		}
	}
	assert.True(t, renewed)
}

func TestCart_View(t *testing.T) {
	cart := &Cart{
		Customer: "maria",
		Lines: []CartLine{
			{ProductID: "7", DisplayName: "Widget", UnitPrice: 100, Quantity: 3},
		},
		OrderNumber: 42,
	}

	view := cart.View(Session{Customer: "maria", Role: RoleUser})
	assert.Equal(t, cart.Lines, view.Lines)
	assert.Equal(t, 3, view.ItemCount)
	assert.Equal(t, 300.0, view.Total)
	assert.Equal(t, int64(42), view.OrderNumber)
	assert.True(t, view.CanCheckout)

	// Mutating the view's lines must not touch the cart.
	view.Lines[0].Quantity = 99
	assert.Equal(t, 3, cart.Lines[0].Quantity)
}

func TestCart_View_AdminCannotCheckout(t *testing.T) {
	cart := &Cart{
		Customer: "admin1",
		Lines:    []CartLine{{ProductID: "7", Quantity: 1}},
	}

	view := cart.View(Session{Customer: "admin1", Role: RoleAdmin})
	assert.False(t, view.CanCheckout)
}

func TestCart_View_EmptyCartCannotCheckout(t *testing.T) {
	cart := &Cart{Customer: "maria"}

	view := cart.View(Session{Customer: "maria", Role: RoleUser})
	assert.False(t, view.CanCheckout)
}
