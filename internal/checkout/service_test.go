package checkout

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/kartify/storefront/internal/cart"
	"github.com/kartify/storefront/internal/coupon"
	ord "github.com/kartify/storefront/internal/order"
	"github.com/kartify/storefront/internal/payment"
	"github.com/kartify/storefront/internal/pricing"
)

//
// ---------- STUBS ----------
//

type memSessions struct {
	data map[string]*Session
	// every state written, in order
	states []State
}

func newMemSessions() *memSessions { return &memSessions{data: map[string]*Session{}} }

func (m *memSessions) Get(ctx context.Context, userID string) (*Session, error) {
	if s, ok := m.data[userID]; ok {
		cp := *s
		return &cp, nil
	}
	return &Session{State: StateIdle}, nil
}

func (m *memSessions) Put(ctx context.Context, userID string, s *Session) error {
	cp := *s
	m.data[userID] = &cp
	m.states = append(m.states, s.State)
	return nil
}

func (m *memSessions) Clear(ctx context.Context, userID string) error {
	delete(m.data, userID)
	return nil
}

// stubCart returns a fixed subtotal and counts reads.
type stubCart struct {
	subtotal string
	lines    []cart.Line
	reads    int
	cleared  int
}

func (s *stubCart) Subtotal(ctx context.Context, userID string) (decimal.Decimal, []cart.Line, error) {
	s.reads++
	if s.subtotal == "" {
		return decimal.Zero, nil, cart.ErrEmpty
	}
	return decimal.RequireFromString(s.subtotal), s.lines, nil
}

func (s *stubCart) Clear(ctx context.Context, userID string) error {
	s.cleared++
	return nil
}

// stubCoupons validates a single known code and counts calls.
type stubCoupons struct {
	known *coupon.Coupon
	calls int
	// when set, Validate rejects with this message even for the known code
	rejectWith string
}

func (s *stubCoupons) Validate(ctx context.Context, code string, subtotal decimal.Decimal) (*coupon.Coupon, error) {
	s.calls++
	code = coupon.Normalize(code)
	if s.rejectWith != "" {
		return nil, coupon.Reject(s.rejectWith)
	}
	if s.known == nil || s.known.Code != code {
		return nil, coupon.Reject("invalid coupon code")
	}
	cp := *s.known
	return &cp, nil
}

type stubUsage struct {
	calls int
	err   error
}

func (s *stubUsage) IncrementUsage(ctx context.Context, code string) error {
	s.calls++
	return s.err
}

// stubOrders keeps the last created order in memory.
type stubOrders struct {
	lastOrder *ord.Order
	lastItems []ord.Item
	creates   int
}

func (s *stubOrders) Create(ctx context.Context, o *ord.Order, items []ord.Item) error {
	cp := *o
	s.lastOrder = &cp
	s.lastItems = append([]ord.Item(nil), items...)
	s.creates++
	return nil
}

func (s *stubOrders) GetByID(ctx context.Context, id string) (*ord.Order, []ord.Item, error) {
	if s.lastOrder == nil || s.lastOrder.ID != id {
		return nil, nil, ord.ErrNotFound
	}
	return s.lastOrder, s.lastItems, nil
}

func (s *stubOrders) GetByGatewayOrderID(ctx context.Context, gid string) (*ord.Order, error) {
	if s.lastOrder == nil || s.lastOrder.GatewayOrderID != gid {
		return nil, ord.ErrNotFound
	}
	return s.lastOrder, nil
}

func (s *stubOrders) ListByUser(ctx context.Context, userID string, limit, offset int) ([]ord.Order, error) {
	return nil, nil
}

func (s *stubOrders) List(ctx context.Context, status string, limit, offset int) ([]ord.Order, error) {
	return nil, nil
}

func (s *stubOrders) GetItems(ctx context.Context, orderID string) ([]ord.Item, error) {
	return s.lastItems, nil
}

func (s *stubOrders) UpdateStatus(ctx context.Context, id, status string) error { return nil }
func (s *stubOrders) UpdatePaymentStatus(ctx context.Context, id, ps string) error {
	if s.lastOrder != nil && s.lastOrder.ID == id {
		s.lastOrder.PaymentStatus = ps
	}
	return nil
}

type stubGateway struct {
	calls      int
	lastAmount decimal.Decimal
	err        error
}

func (s *stubGateway) CreateOrder(ctx context.Context, amount decimal.Decimal, currency, receipt string) (*payment.GatewayOrder, error) {
	s.calls++
	s.lastAmount = amount
	if s.err != nil {
		return nil, s.err
	}
	return &payment.GatewayOrder{ID: "order_gw1", Amount: amount.Mul(decimal.NewFromInt(100)).IntPart(), Currency: currency}, nil
}

type fixture struct {
	svc      *Service
	sessions *memSessions
	cart     *stubCart
	coupons  *stubCoupons
	usage    *stubUsage
	orders   *stubOrders
	gateway  *stubGateway
}

func newFixture(subtotal string) *fixture {
	f := &fixture{
		sessions: newMemSessions(),
		cart: &stubCart{subtotal: subtotal, lines: []cart.Line{
			{ProductID: "p1", Name: "Mouse", Price: subtotal, Quantity: 1},
		}},
		coupons: &stubCoupons{known: &coupon.Coupon{Code: "SAVE10", DiscountPercentage: 10, Status: coupon.StatusActive}},
		usage:   &stubUsage{},
		orders:  &stubOrders{},
		gateway: &stubGateway{},
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.svc = NewService(f.sessions, f.cart, f.coupons, f.usage, f.orders, f.gateway, pricing.New(30), log)
	return f
}

func addr() ord.ShippingAddress {
	return ord.ShippingAddress{
		Name: "Asha Rao", Phone: "9876543210", Street: "12 MG Road",
		City: "Bengaluru", State: "Karnataka", PostalCode: "560001",
	}
}

//
// ---------- TESTS ----------
//

func TestSubmitOrder_MissingPhone_NoDownstreamCalls(t *testing.T) {
	f := newFixture("500")

	bad := addr()
	bad.Phone = ""
	_, err := f.svc.SubmitOrder(context.Background(), "u1", ord.CreateOrderRequest{
		ShippingAddress: bad, PaymentMethod: pricing.MethodCOD,
	})

	verr, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("err=%v, want ValidationError", err)
	}
	if verr.Fields["phone"] == "" {
		t.Fatalf("fields=%v, want phone message", verr.Fields)
	}
	if f.cart.reads != 0 || f.coupons.calls != 0 || f.gateway.calls != 0 || f.orders.creates != 0 {
		t.Fatalf("downstream calls made on local validation failure: cart=%d coupons=%d gateway=%d orders=%d",
			f.cart.reads, f.coupons.calls, f.gateway.calls, f.orders.creates)
	}
}

func TestValidateAddress_FieldMessages(t *testing.T) {
	verr := ValidateAddress(ord.ShippingAddress{Phone: "12345", PostalCode: "12"})
	if verr == nil {
		t.Fatal("expected validation error")
	}
	for _, field := range []string{"name", "phone", "street", "city", "state", "postalCode"} {
		if verr.Fields[field] == "" {
			t.Errorf("missing message for %s: %v", field, verr.Fields)
		}
	}
	if ValidateAddress(addr()) != nil {
		t.Fatal("valid address rejected")
	}
}

func TestSubmitOrder_COD_NoCoupon(t *testing.T) {
	f := newFixture("500")

	res, err := f.svc.SubmitOrder(context.Background(), "u1", ord.CreateOrderRequest{
		ShippingAddress: addr(), PaymentMethod: pricing.MethodCOD,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	o := res.Order
	if o.ShippingCharge != "30" || o.DiscountAmount != "0" || o.TotalAmount != "530" {
		t.Fatalf("totals: shipping=%s discount=%s total=%s", o.ShippingCharge, o.DiscountAmount, o.TotalAmount)
	}
	if o.OrderStatus != ord.StatusPending || o.PaymentStatus != ord.PaymentPending {
		t.Fatalf("status=%s payment=%s", o.OrderStatus, o.PaymentStatus)
	}
	if res.Gateway != nil || f.gateway.calls != 0 {
		t.Fatal("COD must not touch the gateway")
	}
	if f.cart.cleared != 1 {
		t.Fatalf("cart cleared %d times", f.cart.cleared)
	}
	if sess := f.sessions.data["u1"]; sess == nil || sess.State != StateConfirmed {
		t.Fatalf("session=%+v, want Confirmed", sess)
	}
}

func TestSubmitOrder_COD_WithCoupon(t *testing.T) {
	f := newFixture("500")
	ctx := context.Background()

	if _, err := f.svc.ApplyCoupon(ctx, "u1", "save10"); err != nil {
		t.Fatalf("apply: %v", err)
	}
	res, err := f.svc.SubmitOrder(ctx, "u1", ord.CreateOrderRequest{
		ShippingAddress: addr(), PaymentMethod: pricing.MethodCOD,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	o := res.Order
	if o.DiscountAmount != "50" || o.TotalAmount != "480" || o.CouponCode != "SAVE10" {
		t.Fatalf("order=%+v", o)
	}
	if f.usage.calls != 1 {
		t.Fatalf("usage increments=%d, want 1", f.usage.calls)
	}
}

func TestSubmitOrder_Online_HandsOffToGateway(t *testing.T) {
	f := newFixture("500")
	ctx := context.Background()

	_, _ = f.svc.ApplyCoupon(ctx, "u1", "SAVE10")
	res, err := f.svc.SubmitOrder(ctx, "u1", ord.CreateOrderRequest{
		ShippingAddress: addr(), PaymentMethod: pricing.MethodOnline,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Order.TotalAmount != "450" || res.Order.ShippingCharge != "0" {
		t.Fatalf("order=%+v", res.Order)
	}
	if res.Gateway == nil || res.Gateway.ID != "order_gw1" {
		t.Fatalf("gateway descriptor missing: %+v", res.Gateway)
	}
	if !f.gateway.lastAmount.Equal(decimal.RequireFromString("450")) {
		t.Fatalf("gateway amount=%s, want 450", f.gateway.lastAmount)
	}
	if res.Order.GatewayOrderID != "order_gw1" {
		t.Fatalf("order missing gateway id: %+v", res.Order)
	}
	if sess := f.sessions.data["u1"]; sess == nil || sess.State != StateAwaitingPayment || sess.PendingOrderID != res.Order.ID {
		t.Fatalf("session=%+v, want AwaitingPayment", sess)
	}
}

func TestApplyCoupon_RejectionLeavesAppliedStateUntouched(t *testing.T) {
	f := newFixture("500")
	ctx := context.Background()

	applied, err := f.svc.ApplyCoupon(ctx, "u1", "SAVE10")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if applied.Discount != "50" || applied.FinalTotal != "450" {
		t.Fatalf("applied=%+v", applied)
	}

	_, err = f.svc.ApplyCoupon(ctx, "u1", "EXPIRED")
	if !coupon.IsRejection(err) {
		t.Fatalf("err=%v, want rejection", err)
	}

	sess := f.sessions.data["u1"]
	if sess == nil || sess.Coupon == nil || sess.Coupon.Code != "SAVE10" {
		t.Fatalf("prior coupon lost: %+v", sess)
	}
	q, err := f.svc.Quote(ctx, "u1", pricing.MethodOnline)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if !q.FinalTotal.Equal(decimal.RequireFromString("450")) {
		t.Fatalf("final total changed after rejection: %s", q.FinalTotal)
	}
}

func TestApplyCoupon_EmptyCode_NoCalls(t *testing.T) {
	f := newFixture("500")
	_, err := f.svc.ApplyCoupon(context.Background(), "u1", "   ")
	if !coupon.IsRejection(err) {
		t.Fatalf("err=%v, want rejection", err)
	}
	if f.cart.reads != 0 || f.coupons.calls != 0 {
		t.Fatalf("downstream calls on empty code: cart=%d coupons=%d", f.cart.reads, f.coupons.calls)
	}
}

func TestRemoveCoupon_RestoresNoCouponTotal(t *testing.T) {
	f := newFixture("500")
	ctx := context.Background()

	before, _ := f.svc.Quote(ctx, "u1", pricing.MethodCOD)
	_, _ = f.svc.ApplyCoupon(ctx, "u1", "SAVE10")
	couponCalls := f.coupons.calls

	if err := f.svc.RemoveCoupon(ctx, "u1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if f.coupons.calls != couponCalls {
		t.Fatal("remove must not call the coupon service")
	}

	after, _ := f.svc.Quote(ctx, "u1", pricing.MethodCOD)
	if !before.FinalTotal.Equal(after.FinalTotal) {
		t.Fatalf("total not restored: %s vs %s", before.FinalTotal, after.FinalTotal)
	}
}

func TestSubmitOrder_TotalMismatchRejected(t *testing.T) {
	f := newFixture("500")

	_, err := f.svc.SubmitOrder(context.Background(), "u1", ord.CreateOrderRequest{
		ShippingAddress: addr(), PaymentMethod: pricing.MethodCOD, TotalAmount: "999",
	})
	if err != ErrTotalMismatch {
		t.Fatalf("err=%v, want ErrTotalMismatch", err)
	}
	if f.orders.creates != 0 {
		t.Fatal("order persisted despite mismatch")
	}
}

func TestSubmitOrder_MatchingProjectionAccepted(t *testing.T) {
	f := newFixture("500")

	res, err := f.svc.SubmitOrder(context.Background(), "u1", ord.CreateOrderRequest{
		ShippingAddress: addr(), PaymentMethod: pricing.MethodCOD, TotalAmount: "530",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Order.TotalAmount != "530" {
		t.Fatalf("total=%s", res.Order.TotalAmount)
	}
}

func TestSubmitOrder_CouponWentStale_DroppedAndRejected(t *testing.T) {
	f := newFixture("500")
	ctx := context.Background()

	_, _ = f.svc.ApplyCoupon(ctx, "u1", "SAVE10")
	f.coupons.rejectWith = "Coupon expired"

	_, err := f.svc.SubmitOrder(ctx, "u1", ord.CreateOrderRequest{
		ShippingAddress: addr(), PaymentMethod: pricing.MethodCOD,
	})
	if !coupon.IsRejection(err) || err.Error() != "Coupon expired" {
		t.Fatalf("err=%v, want server message verbatim", err)
	}
	if f.orders.creates != 0 {
		t.Fatal("order persisted with stale coupon")
	}
	if sess := f.sessions.data["u1"]; sess.Coupon != nil {
		t.Fatalf("stale coupon kept: %+v", sess.Coupon)
	}
}

func TestSubmitOrder_EmptyCart(t *testing.T) {
	f := newFixture("") // empty cart
	_, err := f.svc.SubmitOrder(context.Background(), "u1", ord.CreateOrderRequest{
		ShippingAddress: addr(), PaymentMethod: pricing.MethodCOD,
	})
	if !coupon.IsRejection(err) {
		t.Fatalf("err=%v, want rejection", err)
	}
}

func TestSerialization_BusyWhileLocked(t *testing.T) {
	f := newFixture("500")

	l, ok := f.svc.acquire("u1")
	if !ok {
		t.Fatal("could not take an uncontended lock")
	}

	if _, err := f.svc.ApplyCoupon(context.Background(), "u1", "SAVE10"); err != ErrBusy {
		t.Fatalf("apply err=%v, want ErrBusy", err)
	}
	if _, err := f.svc.SubmitOrder(context.Background(), "u1", ord.CreateOrderRequest{
		ShippingAddress: addr(), PaymentMethod: pricing.MethodCOD,
	}); err != ErrBusy {
		t.Fatalf("submit err=%v, want ErrBusy", err)
	}

	f.svc.unlock("u1", l)
}

func TestSerialization_LockTablePruned(t *testing.T) {
	f := newFixture("500")
	ctx := context.Background()

	_, _ = f.svc.ApplyCoupon(ctx, "u1", "SAVE10")
	if _, err := f.svc.SubmitOrder(ctx, "u1", ord.CreateOrderRequest{
		ShippingAddress: addr(), PaymentMethod: pricing.MethodCOD,
	}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	// contended acquire must not leave an entry behind either
	l, _ := f.svc.acquire("u2")
	if _, err := f.svc.ApplyCoupon(ctx, "u2", "SAVE10"); err != ErrBusy {
		t.Fatalf("err=%v, want ErrBusy", err)
	}
	f.svc.unlock("u2", l)

	f.svc.mu.Lock()
	n := len(f.svc.locks)
	f.svc.mu.Unlock()
	if n != 0 {
		t.Fatalf("lock table holds %d entries after all requests finished", n)
	}
}

func TestSubmitOrder_UsageExhaustedBeforeCreate(t *testing.T) {
	f := newFixture("500")
	ctx := context.Background()

	if _, err := f.svc.ApplyCoupon(ctx, "u1", "SAVE10"); err != nil {
		t.Fatalf("apply: %v", err)
	}
	// the guarded repo update reports the limit was consumed after Validate
	f.usage.err = coupon.ErrNotFound

	_, err := f.svc.SubmitOrder(ctx, "u1", ord.CreateOrderRequest{
		ShippingAddress: addr(), PaymentMethod: pricing.MethodCOD,
	})
	if !coupon.IsRejection(err) {
		t.Fatalf("err=%v, want rejection", err)
	}
	if f.orders.creates != 0 {
		t.Fatal("order persisted with a discount past the usage limit")
	}
	if f.gateway.calls != 0 {
		t.Fatal("gateway called for a rejected submission")
	}
	sess := f.sessions.data["u1"]
	if sess.Coupon != nil {
		t.Fatalf("exhausted coupon kept: %+v", sess.Coupon)
	}
	if sess.State != StateIdle {
		t.Fatalf("state=%s, want Idle", sess.State)
	}
}

func TestSubmitOrder_GatewayFailure_SessionFailed(t *testing.T) {
	f := newFixture("500")
	f.gateway.err = context.DeadlineExceeded

	_, err := f.svc.SubmitOrder(context.Background(), "u1", ord.CreateOrderRequest{
		ShippingAddress: addr(), PaymentMethod: pricing.MethodOnline,
	})
	if err == nil {
		t.Fatal("expected gateway error")
	}
	if f.orders.creates != 0 {
		t.Fatal("order persisted despite gateway failure")
	}
	if sess := f.sessions.data["u1"]; sess == nil || sess.State != StateFailed {
		t.Fatalf("session=%+v, want Failed", sess)
	}
}

func TestCheckoutStates_Persisted(t *testing.T) {
	f := newFixture("500")
	ctx := context.Background()

	if _, err := f.svc.ApplyCoupon(ctx, "u1", "SAVE10"); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, err := f.svc.SubmitOrder(ctx, "u1", ord.CreateOrderRequest{
		ShippingAddress: addr(), PaymentMethod: pricing.MethodCOD,
	}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	want := []State{StateValidating, StateIdle, StateSubmitting, StateConfirmed}
	if len(f.sessions.states) != len(want) {
		t.Fatalf("states=%v, want %v", f.sessions.states, want)
	}
	for i, st := range want {
		if f.sessions.states[i] != st {
			t.Fatalf("states=%v, want %v", f.sessions.states, want)
		}
	}
}
