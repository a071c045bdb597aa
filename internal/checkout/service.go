// Package checkout orchestrates the purchase flow: coupon application,
// pricing, order submission and the handoff to the hosted payment gateway.
// All pricing decisions are made here, server-side; anything the client sent
// is treated as a projection.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kartify/storefront/internal/cart"
	"github.com/kartify/storefront/internal/coupon"
	"github.com/kartify/storefront/internal/order"
	"github.com/kartify/storefront/internal/payment"
	"github.com/kartify/storefront/internal/pricing"
)

var (
	// ErrBusy means another coupon/submit request for the same customer is
	// still in flight. Requests are serialized, never queued.
	ErrBusy = errors.New("another checkout request is in progress")

	// ErrTotalMismatch means the client's projected total disagrees with the
	// server calculation.
	ErrTotalMismatch = errors.New("order total does not match the server calculation")
)

// ValidationError reports per-field shipping address problems. It is raised
// before any repository or gateway call.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return "invalid shipping details" }

var (
	phoneRe  = regexp.MustCompile(`^[0-9]{10}$`)
	postalRe = regexp.MustCompile(`^[0-9]{6}$`)
)

// ValidateAddress checks every shipping field. Returns nil when valid.
func ValidateAddress(a order.ShippingAddress) *ValidationError {
	fields := map[string]string{}
	if strings.TrimSpace(a.Name) == "" {
		fields["name"] = "name is required"
	}
	if !phoneRe.MatchString(a.Phone) {
		fields["phone"] = "phone must be 10 digits"
	}
	if strings.TrimSpace(a.Street) == "" {
		fields["street"] = "street is required"
	}
	if strings.TrimSpace(a.City) == "" {
		fields["city"] = "city is required"
	}
	if strings.TrimSpace(a.State) == "" {
		fields["state"] = "state is required"
	}
	if !postalRe.MatchString(a.PostalCode) {
		fields["postalCode"] = "postal code must be 6 digits"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// CartReader is the slice of the cart service the checkout needs.
type CartReader interface {
	Subtotal(ctx context.Context, userID string) (decimal.Decimal, []cart.Line, error)
	Clear(ctx context.Context, userID string) error
}

// CouponValidator decides coupon eligibility; the checkout only relays.
type CouponValidator interface {
	Validate(ctx context.Context, code string, subtotal decimal.Decimal) (*coupon.Coupon, error)
}

// CouponCounter burns one use of a coupon at order creation.
type CouponCounter interface {
	IncrementUsage(ctx context.Context, code string) error
}

// GatewayClient registers online payments with the hosted gateway.
type GatewayClient interface {
	CreateOrder(ctx context.Context, amount decimal.Decimal, currency, receipt string) (*payment.GatewayOrder, error)
}

// Result of a submitted order. Gateway is nil for COD; for ONLINE it is the
// payment-session descriptor the hosted modal needs.
type Result struct {
	Order   *order.Order          `json:"order"`
	Items   []order.Item          `json:"items"`
	Gateway *payment.GatewayOrder `json:"razorpayOrder,omitempty"`
}

type Service struct {
	sessions SessionStore
	cart     CartReader
	coupons  CouponValidator
	usage    CouponCounter
	orders   order.Repository
	gateway  GatewayClient
	calc     pricing.Calculator
	log      *slog.Logger

	mu    sync.Mutex
	locks map[string]*userLock
}

func NewService(sessions SessionStore, cartSvc CartReader, coupons CouponValidator,
	usage CouponCounter, orders order.Repository, gateway GatewayClient,
	calc pricing.Calculator, log *slog.Logger) *Service {
	return &Service{
		sessions: sessions,
		cart:     cartSvc,
		coupons:  coupons,
		usage:    usage,
		orders:   orders,
		gateway:  gateway,
		calc:     calc,
		log:      log,
		locks:    map[string]*userLock{},
	}
}

// userLock serializes coupon application and order submission per customer,
// so a coupon cannot land after totals were already sent to the gateway.
// Scope is this process only; the session store does not arbitrate across
// instances.
type userLock struct {
	mu   sync.Mutex
	refs int
}

// acquire returns the customer's checkout lock, or false when another
// request for the same customer already holds it.
func (s *Service) acquire(userID string) (*userLock, bool) {
	s.mu.Lock()
	l, ok := s.locks[userID]
	if !ok {
		l = &userLock{}
		s.locks[userID] = l
	}
	l.refs++
	s.mu.Unlock()

	if !l.mu.TryLock() {
		s.release(userID, l)
		return nil, false
	}
	return l, true
}

// release drops one reference and prunes the map entry once nobody holds or
// waits on it, so the lock table does not grow with the user base.
func (s *Service) release(userID string, l *userLock) {
	s.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(s.locks, userID)
	}
	s.mu.Unlock()
}

func (s *Service) unlock(userID string, l *userLock) {
	l.mu.Unlock()
	s.release(userID, l)
}

// ApplyCoupon validates code against the current cart and stores the result
// in the checkout session. A rejection leaves any previously applied coupon
// untouched.
func (s *Service) ApplyCoupon(ctx context.Context, userID, code string) (*AppliedCoupon, error) {
	if coupon.Normalize(code) == "" {
		return nil, coupon.Reject("coupon code is required")
	}

	l, ok := s.acquire(userID)
	if !ok {
		return nil, ErrBusy
	}
	defer s.unlock(userID, l)

	sess, err := s.sessions.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	prev := sess.State
	sess.State = StateValidating
	if err := s.sessions.Put(ctx, userID, sess); err != nil {
		return nil, err
	}
	// Restores prev on any outcome that is not a successful application.
	restore := func() {
		sess.State = prev
		if err := s.sessions.Put(ctx, userID, sess); err != nil {
			s.log.Warn("session restore failed", "user", userID, "err", err)
		}
	}

	subtotal, _, err := s.cart.Subtotal(ctx, userID)
	if err != nil {
		restore()
		if errors.Is(err, cart.ErrEmpty) {
			return nil, coupon.Reject("your cart is empty")
		}
		return nil, err
	}

	c, err := s.coupons.Validate(ctx, code, subtotal)
	if err != nil {
		restore()
		return nil, err
	}

	// Shipping depends on the payment method chosen later; the coupon quote
	// carries the discount against the bare subtotal.
	totals := s.calc.Compute(subtotal, pricing.MethodOnline, c.DiscountPercentage)
	applied := &AppliedCoupon{
		Code:               c.Code,
		DiscountPercentage: c.DiscountPercentage,
		Discount:           totals.DiscountAmount.String(),
		FinalTotal:         totals.FinalTotal.String(),
	}

	sess.Coupon = applied
	sess.State = StateIdle
	if err := s.sessions.Put(ctx, userID, sess); err != nil {
		return nil, err
	}
	return applied, nil
}

// RemoveCoupon clears the applied coupon locally. No validation round trip.
func (s *Service) RemoveCoupon(ctx context.Context, userID string) error {
	l, ok := s.acquire(userID)
	if !ok {
		return ErrBusy
	}
	defer s.unlock(userID, l)

	sess, err := s.sessions.Get(ctx, userID)
	if err != nil {
		return err
	}
	if sess.Coupon == nil {
		return nil
	}
	sess.Coupon = nil
	return s.sessions.Put(ctx, userID, sess)
}

// Quote returns the pricing breakdown for the current cart, applied coupon
// and chosen payment method. Used by the checkout page; carries no state.
func (s *Service) Quote(ctx context.Context, userID, method string) (*pricing.Totals, error) {
	if !pricing.ValidMethod(method) {
		return nil, fmt.Errorf("unknown payment method %q", method)
	}
	subtotal, _, err := s.cart.Subtotal(ctx, userID)
	if err != nil {
		return nil, err
	}
	pct := 0
	sess, err := s.sessions.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sess.Coupon != nil {
		pct = sess.Coupon.DiscountPercentage
	}
	t := s.calc.Compute(subtotal, method, pct)
	return &t, nil
}

// SubmitOrder validates, prices and persists the order exactly once.
// COD orders are final on return; ONLINE orders come back with the gateway
// session descriptor and stay AwaitingPayment until confirmed.
func (s *Service) SubmitOrder(ctx context.Context, userID string, req order.CreateOrderRequest) (*Result, error) {
	if verr := ValidateAddress(req.ShippingAddress); verr != nil {
		return nil, verr
	}
	if !pricing.ValidMethod(req.PaymentMethod) {
		return nil, &ValidationError{Fields: map[string]string{"paymentMethod": "payment method must be COD or ONLINE"}}
	}

	l, ok := s.acquire(userID)
	if !ok {
		return nil, ErrBusy
	}
	defer s.unlock(userID, l)

	sess, err := s.sessions.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	prev := sess.State
	sess.State = StateSubmitting
	if err := s.sessions.Put(ctx, userID, sess); err != nil {
		return nil, err
	}
	// Outcomes that leave no order behind return the session to its prior
	// state; infrastructure failures park it in Failed.
	setState := func(st State) {
		sess.State = st
		if err := s.sessions.Put(ctx, userID, sess); err != nil {
			s.log.Warn("session update failed", "user", userID, "err", err)
		}
	}

	subtotal, lines, err := s.cart.Subtotal(ctx, userID)
	if err != nil {
		setState(prev)
		if errors.Is(err, cart.ErrEmpty) {
			return nil, coupon.Reject("your cart is empty")
		}
		return nil, err
	}

	// The coupon is re-validated at creation time; the session copy is only
	// the customer's quote.
	pct := 0
	code := ""
	if sess.Coupon != nil {
		c, err := s.coupons.Validate(ctx, sess.Coupon.Code, subtotal)
		if err != nil {
			if coupon.IsRejection(err) {
				sess.Coupon = nil
				setState(StateIdle)
			} else {
				setState(prev)
			}
			return nil, err
		}
		pct = c.DiscountPercentage
		code = c.Code
	}

	totals := s.calc.Compute(subtotal, req.PaymentMethod, pct)

	// The client's projected total is advisory; a disagreement means the cart
	// changed under it and the customer must re-review.
	if req.TotalAmount != "" {
		claimed, err := decimal.NewFromString(req.TotalAmount)
		if err != nil || !claimed.Equal(totals.FinalTotal) {
			setState(prev)
			return nil, ErrTotalMismatch
		}
	}

	// The usage counter is burned before the order exists, through the
	// guarded repo update, so the limit can never be overshot by a race
	// between validation and creation. Exhaustion here fails the submission.
	if code != "" {
		if err := s.usage.IncrementUsage(ctx, code); err != nil {
			if errors.Is(err, coupon.ErrNotFound) {
				sess.Coupon = nil
				setState(StateIdle)
				return nil, coupon.Reject("coupon usage limit reached")
			}
			setState(StateFailed)
			return nil, err
		}
	}

	o := &order.Order{
		ID:              uuid.NewString(),
		UserID:          userID,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		ShippingCharge:  totals.ShippingCharge.String(),
		CouponCode:      code,
		DiscountAmount:  totals.DiscountAmount.String(),
		TotalAmount:     totals.FinalTotal.String(),
		OrderStatus:     order.StatusPending,
		PaymentStatus:   order.PaymentPending,
	}

	items := make([]order.Item, 0, len(lines))
	for _, ln := range lines {
		items = append(items, order.Item{
			ID:        uuid.NewString(),
			OrderID:   o.ID,
			ProductID: ln.ProductID,
			Name:      ln.Name,
			Price:     ln.Price,
			Quantity:  ln.Quantity,
			Photo:     ln.Photo,
		})
	}

	var gw *payment.GatewayOrder
	if req.PaymentMethod == pricing.MethodOnline {
		gw, err = s.gateway.CreateOrder(ctx, totals.FinalTotal, "INR", o.ID)
		if err != nil {
			setState(StateFailed)
			return nil, fmt.Errorf("payment gateway: %w", err)
		}
		o.GatewayOrderID = gw.ID
	}

	if err := s.orders.Create(ctx, o, items); err != nil {
		setState(StateFailed)
		return nil, err
	}

	if err := s.cart.Clear(ctx, userID); err != nil {
		s.log.Warn("cart clear failed", "user", userID, "err", err)
	}

	sess.Coupon = nil
	if req.PaymentMethod == pricing.MethodOnline {
		sess.PendingOrderID = o.ID
		setState(StateAwaitingPayment)
	} else {
		sess.PendingOrderID = ""
		setState(StateConfirmed)
	}

	return &Result{Order: o, Items: items, Gateway: gw}, nil
}
