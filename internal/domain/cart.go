package domain

// DefaultShippingFee is the flat shipping charge applied to any non-empty cart.
const DefaultShippingFee = 150.0

type CartItem struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
	Image    string  `json:"image,omitempty"`
	Category string  `json:"category"`
}

type Totals struct {
	Subtotal float64 `json:"subtotal"`
	Shipping float64 `json:"shipping"`
	Total    float64 `json:"total"`
}

// CalculateTotals derives the cart aggregate from the current items. Shipping is
// a flat fee charged once when the cart has at least one line.
func CalculateTotals(items []CartItem, flatFee float64) Totals {
	var t Totals
	for _, item := range items {
		t.Subtotal += item.Price * float64(item.Quantity)
	}
	if len(items) > 0 {
		t.Shipping = flatFee
	}
	t.Total = t.Subtotal + t.Shipping
	return t
}

// TotalQuantity sums quantities across all lines.
func TotalQuantity(items []CartItem) int {
	n := 0
	for _, item := range items {
		n += item.Quantity
	}
	return n
}
