package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/kartify/storefront/internal/order"
)

var (
	ErrBadSignature = errors.New("payment signature mismatch")
	ErrNotCaptured  = errors.New("payment not captured by gateway")
)

// Gateway is the slice of Client the confirmer needs.
type Gateway interface {
	FetchOrder(ctx context.Context, gatewayOrderID string) (*GatewayOrder, error)
	VerifySignature(gatewayOrderID, paymentID, signature string) bool
}

// Confirmer reconciles a payment-success callback against the gateway before
// anything is marked paid. The callback alone is never trusted: the signature
// must verify and the gateway must report the order as paid.
type Confirmer struct {
	gateway Gateway
	orders  order.Repository
}

func NewConfirmer(gateway Gateway, orders order.Repository) *Confirmer {
	return &Confirmer{gateway: gateway, orders: orders}
}

// Confirm handles the customer-facing callback from the hosted modal.
func (c *Confirmer) Confirm(ctx context.Context, gatewayOrderID, paymentID, signature string) (*order.Order, error) {
	if !c.gateway.VerifySignature(gatewayOrderID, paymentID, signature) {
		return nil, ErrBadSignature
	}
	return c.settle(ctx, gatewayOrderID)
}

// HandleWebhook handles the gateway's server-to-server notification. The
// payload signature is checked by the caller against the raw body; here we
// only reconcile state.
func (c *Confirmer) HandleWebhook(ctx context.Context, gatewayOrderID string) error {
	_, err := c.settle(ctx, gatewayOrderID)
	return err
}

func (c *Confirmer) settle(ctx context.Context, gatewayOrderID string) (*order.Order, error) {
	o, err := c.orders.GetByGatewayOrderID(ctx, gatewayOrderID)
	if err != nil {
		return nil, err
	}
	if o.PaymentStatus == order.PaymentPaid {
		return o, nil // already settled, idempotent
	}

	g, err := c.gateway.FetchOrder(ctx, gatewayOrderID)
	if err != nil {
		return nil, fmt.Errorf("reconcile with gateway: %w", err)
	}
	if g.Status != "paid" {
		return nil, ErrNotCaptured
	}

	if err := c.orders.UpdatePaymentStatus(ctx, o.ID, order.PaymentPaid); err != nil {
		return nil, err
	}
	o.PaymentStatus = order.PaymentPaid
	return o, nil
}
