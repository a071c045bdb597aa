package order

import "time"

// Order status lifecycle: Pending → Shipped → Delivered, one-directional.
// Cancelled is terminal and reachable from any non-terminal state.
const (
	StatusPending   = "Pending"
	StatusShipped   = "Shipped"
	StatusDelivered = "Delivered"
	StatusCancelled = "Cancelled"
)

const (
	PaymentPending = "Pending"
	PaymentPaid    = "Paid"
	PaymentFailed  = "Failed"
)

type ShippingAddress struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
}

type Item struct {
	ID        string `json:"id"`
	OrderID   string `json:"order_id"`
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Price     string `json:"price"` // NUMERIC -> string, snapshot at purchase
	Quantity  int    `json:"quantity"`
	Photo     string `json:"photo,omitempty"`
}

type Order struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string          `json:"paymentMethod"` // COD | ONLINE
	ShippingCharge  string          `json:"shippingCharge"`
	CouponCode      string          `json:"couponCode,omitempty"`
	DiscountAmount  string          `json:"discountAmount"`
	TotalAmount     string          `json:"totalAmount"`
	OrderStatus     string          `json:"orderStatus"`
	PaymentStatus   string          `json:"paymentStatus"`
	// Gateway order id for ONLINE payments, empty for COD.
	GatewayOrderID string    `json:"gatewayOrderId,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// CanTransition reports whether an admin move from one order status to
// another is allowed.
func CanTransition(from, to string) bool {
	if from == to {
		return false
	}
	switch to {
	case StatusShipped:
		return from == StatusPending
	case StatusDelivered:
		return from == StatusShipped
	case StatusCancelled:
		return from == StatusPending || from == StatusShipped
	default:
		return false
	}
}

// ValidStatus reports whether s is a known order status.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}
