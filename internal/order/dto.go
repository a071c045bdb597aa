package order

// CreateOrderRequest is the checkout submission payload. Totals are the
// client's projection; the server recomputes and rejects a mismatch.
// swagger:model CreateOrderRequest
type CreateOrderRequest struct {
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string          `json:"paymentMethod" example:"COD"`
	ShippingCharge  string          `json:"shippingCharge" example:"30"`
	CouponCode      string          `json:"couponCode,omitempty" example:"WELCOME10"`
	DiscountAmount  string          `json:"discountAmount" example:"50"`
	TotalAmount     string          `json:"totalAmount" example:"480"`
}

// UpdateStatusRequest is the admin lifecycle payload.
// swagger:model UpdateStatusRequest
type UpdateStatusRequest struct {
	Status string `json:"status" example:"Shipped"`
}
