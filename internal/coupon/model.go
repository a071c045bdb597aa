package coupon

import "time"

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

type Coupon struct {
	ID                 string    `json:"id"`
	Code               string    `json:"code"` // stored uppercase
	DiscountPercentage int       `json:"discountPercentage"`
	// Eligibility bounds on the cart subtotal (NUMERIC as string, "0" max = unbounded)
	MinPurchase string    `json:"minPurchase"`
	MaxPurchase string    `json:"maxPurchase"`
	UsageLimit  int       `json:"usageLimit"` // 0 = unlimited
	UsedCount   int       `json:"usedCount"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateCouponRequest payload of creation.
// swagger:model CreateCouponRequest
type CreateCouponRequest struct {
	Code               string `json:"code"               example:"WELCOME10"`
	DiscountPercentage int    `json:"discountPercentage" example:"10"`
	MinPurchase        string `json:"minPurchase"        example:"100"`
	MaxPurchase        string `json:"maxPurchase"        example:"0"`
	UsageLimit         int    `json:"usageLimit"         example:"500"`
	Status             string `json:"status"             example:"active"`
}

// UpdateCouponRequest payload of partial update.
// swagger:model UpdateCouponRequest
type UpdateCouponRequest struct {
	DiscountPercentage *int    `json:"discountPercentage"`
	MinPurchase        *string `json:"minPurchase"`
	MaxPurchase        *string `json:"maxPurchase"`
	UsageLimit         *int    `json:"usageLimit"`
	Status             *string `json:"status"`
}
