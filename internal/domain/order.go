package domain

import "time"

// OrderDateLayout is the day-first date format the order boundary expects.
const OrderDateLayout = "02/01/2006"

// OrderLine is one cart line prepared for submission: the line's fields
// combined with the session context and the batch's shared order number.
type OrderLine struct {
	Date         string  `json:"date"`
	Customer     string  `json:"customer"`
	ProductID    string  `json:"product_id"`
	Price        float64 `json:"price"`
	Quantity     int     `json:"quantity"`
	OrderNumber  int64   `json:"order_number"`
	CustomerName string  `json:"customer_name"`
}

// BuildOrderLines derives one OrderLine per cart line, all carrying the
// cart's order number and the given submission date. Line order follows
// cart insertion order.
func BuildOrderLines(cart *Cart, sess Session, at time.Time) []OrderLine {
	date := at.Format(OrderDateLayout)
	lines := make([]OrderLine, len(cart.Lines))
	for i, l := range cart.Lines {
		lines[i] = OrderLine{
			Date:         date,
			Customer:     sess.Customer,
			ProductID:    l.ProductID,
			Price:        l.UnitPrice,
			Quantity:     l.Quantity,
			OrderNumber:  cart.OrderNumber,
			CustomerName: sess.CustomerName,
		}
	}
	return lines
}
