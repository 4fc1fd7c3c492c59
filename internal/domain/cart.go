package domain

import (
	"math/rand"
	"time"
)

// Cart is a customer's pending selection of products, persisted as a whole.
type Cart struct {
	Customer    string     `json:"customer"`
	Lines       []CartLine `json:"lines"`
	OrderNumber int64      `json:"order_number,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CartLine is one product's presence in the cart. At most one line exists
// per product ID; a line with quantity 0 never exists.
type CartLine struct {
	ProductID   string  `json:"product_id"`
	DisplayName string  `json:"display_name"`
	UnitPrice   float64 `json:"unit_price"`
	Quantity    int     `json:"quantity"`
}

// Total returns the sum of unit price times quantity over all lines.
// No rounding is applied at this layer.
func (c *Cart) Total() float64 {
	var total float64
	for _, line := range c.Lines {
		total += line.UnitPrice * float64(line.Quantity)
	}
	return total
}

// ItemCount returns the total number of units across all lines.
func (c *Cart) ItemCount() int {
	var count int
	for _, line := range c.Lines {
		count += line.Quantity
	}
	return count
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// FindLineIndex returns the index of the line with the given product ID,
// or -1 if no such line exists.
func (c *Cart) FindLineIndex(productID string) int {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// EnsureOrderNumber returns the cart's order number, generating one if none
// is currently assigned. The number combines the current timestamp in
// milliseconds with a bounded random offset; uniqueness is best-effort,
// scoped to grouping one checkout batch, not global deduplication.
func (c *Cart) EnsureOrderNumber() int64 {
	if c.OrderNumber == 0 {
		c.OrderNumber = time.Now().UnixMilli() + rand.Int63n(1000)
	}
	return c.OrderNumber
}

// ReleaseOrderNumber removes the assigned order number so the next checkout
// gets a fresh one.
func (c *Cart) ReleaseOrderNumber() {
	c.OrderNumber = 0
}

// CartView is the read-only projection returned to clients after every
// cart operation.
type CartView struct {
	Lines       []CartLine `json:"lines"`
	ItemCount   int        `json:"item_count"`
	Total       float64    `json:"total"`
	OrderNumber int64      `json:"order_number,omitempty"`
	CanCheckout bool       `json:"can_checkout"`
}

// View projects the cart into a CartView for the given session.
func (c *Cart) View(sess Session) CartView {
	lines := make([]CartLine, len(c.Lines))
	copy(lines, c.Lines)
	return CartView{
		Lines:       lines,
		ItemCount:   c.ItemCount(),
		Total:       c.Total(),
		OrderNumber: c.OrderNumber,
		CanCheckout: sess.CanMutateCart() && !c.IsEmpty(),
	}
}
