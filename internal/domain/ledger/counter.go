package ledger

import "strconv"

// DefaultOrderCounter is the key of the counter row that numbers orders
const DefaultOrderCounter = "order_number"

// OrderCounter is the single mutable source of order numbers
type OrderCounter struct {
	Name  string
	Value int64
}

// Advance increments the counter and returns the new value
func (c *OrderCounter) Advance() int64 {
	c.Value++
	return c.Value
}

// FormatOrderNumber renders a counter value as a human-facing order number
func FormatOrderNumber(value int64) string {
	return strconv.FormatInt(value, 10)
}
