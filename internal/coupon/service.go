package coupon

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// RejectionError carries the user-facing message for an ineligible coupon.
// The message is surfaced verbatim to the customer.
type RejectionError struct{ Message string }

func (e *RejectionError) Error() string { return e.Message }

func Reject(msg string) error { return &RejectionError{Message: msg} }

// IsRejection reports whether err is a coupon rejection (as opposed to an
// infrastructure failure).
func IsRejection(err error) bool {
	var r *RejectionError
	return errors.As(err, &r)
}

// Normalize trims and uppercases a user-supplied coupon code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

// Validate decides whether code can be applied to a cart with the given
// subtotal. The service owns every eligibility decision: active status,
// purchase bounds and usage limit. Callers only relay the outcome.
func (s *Service) Validate(ctx context.Context, code string, subtotal decimal.Decimal) (*Coupon, error) {
	code = Normalize(code)
	if code == "" {
		return nil, Reject("coupon code is required")
	}

	c, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, Reject("invalid coupon code")
		}
		return nil, err
	}

	if c.Status != StatusActive {
		return nil, Reject("this coupon is no longer active")
	}
	if c.UsageLimit > 0 && c.UsedCount >= c.UsageLimit {
		return nil, Reject("coupon usage limit reached")
	}

	min, err := decimal.NewFromString(c.MinPurchase)
	if err != nil {
		return nil, fmt.Errorf("coupon %s: bad min_purchase %q", c.Code, c.MinPurchase)
	}
	if subtotal.LessThan(min) {
		return nil, Reject(fmt.Sprintf("minimum purchase of %s required for this coupon", min))
	}

	max, err := decimal.NewFromString(c.MaxPurchase)
	if err != nil {
		return nil, fmt.Errorf("coupon %s: bad max_purchase %q", c.Code, c.MaxPurchase)
	}
	if max.IsPositive() && subtotal.GreaterThan(max) {
		return nil, Reject(fmt.Sprintf("this coupon only applies to orders up to %s", max))
	}

	return c, nil
}
