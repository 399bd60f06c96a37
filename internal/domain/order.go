package domain

import "time"

// PaymentMethod enumerates the accepted payment options.
type PaymentMethod string

const (
	PaymentVisa  PaymentMethod = "visa"
	PaymentCash  PaymentMethod = "cash"
	PaymentFawry PaymentMethod = "fawry"
)

// ValidPaymentMethod reports whether m is one of the accepted methods.
func ValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case PaymentVisa, PaymentCash, PaymentFawry:
		return true
	}
	return false
}

// DefaultShippingPrice is applied when an order request omits a shipping price.
const DefaultShippingPrice = 50

// Order is the aggregate root: it exclusively owns its ShippingAddress and
// OrderItem set, and the three are always persisted in one transaction.
//
// TotalPrice is derived at creation time (sum of quantity x unit price over
// the items, minus TaxPrice) and stored, never recomputed on read.
// ShippingPrice is tracked on the order but not folded into TotalPrice.
type Order struct {
	ID            string
	UserID        string
	PaymentMethod PaymentMethod
	IsPaid        bool
	PaidAt        *time.Time
	IsDelivered   bool
	DeliveredAt   *time.Time
	ShippingPrice float64
	TaxPrice      float64
	TotalPrice    float64
	Address       ShippingAddress
	Items         []OrderItem
	CreatedAt     time.Time
}

// OrderItem is one line of an order. Price is the unit price of the product
// at the time the order was placed. ProductID may become empty later if the
// product is deleted (the join row nulls out rather than cascading).
type OrderItem struct {
	ID        string
	OrderID   string
	ProductID string
	Quantity  int
	Price     float64
}

// Subtotal is quantity times unit price.
func (i OrderItem) Subtotal() float64 {
	return float64(i.Quantity) * i.Price
}

// ShippingAddress is bound one-to-one to its order and shares its lifecycle.
type ShippingAddress struct {
	ID         string
	OrderID    string
	Country    string
	City       string
	PostalCode string
}
