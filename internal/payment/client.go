// Package payment talks to the hosted payment gateway (a Razorpay-compatible
// REST surface) and decides when an online payment counts as captured.
package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// GatewayOrder is the payment-session descriptor handed to the hosted
// checkout modal: {id, amount, currency}.
type GatewayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"` // minor units (paise)
	Currency string `json:"currency"`
	Receipt  string `json:"receipt,omitempty"`
	Status   string `json:"status,omitempty"` // created | attempted | paid
}

type Client struct {
	HTTP      *http.Client
	BaseURL   string
	KeyID     string
	KeySecret string
}

func NewClient(baseURL, keyID, keySecret string) *Client {
	return &Client{
		HTTP:      &http.Client{Timeout: 10 * time.Second},
		BaseURL:   baseURL,
		KeyID:     keyID,
		KeySecret: keySecret,
	}
}

// CreateOrder registers the payable amount with the gateway and returns the
// session descriptor for the hosted modal. amount is in rupees; the gateway
// wants minor units.
func (c *Client) CreateOrder(ctx context.Context, amount decimal.Decimal, currency, receipt string) (*GatewayOrder, error) {
	payload := map[string]any{
		"amount":   amount.Mul(decimal.NewFromInt(100)).IntPart(),
		"currency": currency,
		"receipt":  receipt,
	}
	body, _ := json.Marshal(payload)

	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/orders", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.KeyID, c.KeySecret)

	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("gateway create order: %s", res.Status)
	}

	var out GatewayOrder
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, fmt.Errorf("gateway create order: empty id")
	}
	return &out, nil
}

// FetchOrder reads the gateway's view of an order. This is the authoritative
// capture state; the modal's success callback is only a hint.
func (c *Client) FetchOrder(ctx context.Context, gatewayOrderID string) (*GatewayOrder, error) {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/orders/"+gatewayOrderID, nil)
	req.SetBasicAuth(c.KeyID, c.KeySecret)

	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("gateway order not found")
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway fetch order: %s", res.Status)
	}

	var out GatewayOrder
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifySignature checks the HMAC-SHA256 the gateway computes over
// "<gateway_order_id>|<payment_id>".
func (c *Client) VerifySignature(gatewayOrderID, paymentID, signature string) bool {
	return c.verify([]byte(gatewayOrderID+"|"+paymentID), signature)
}

// VerifyWebhook checks the HMAC-SHA256 the gateway puts on webhook bodies.
func (c *Client) VerifyWebhook(body []byte, signature string) bool {
	return c.verify(body, signature)
}

func (c *Client) verify(payload []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(c.KeySecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
