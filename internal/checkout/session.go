package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// State of a customer's checkout. Explicit, instead of loading/updating
// booleans, so impossible combinations cannot be represented.
type State string

const (
	StateIdle            State = "Idle"
	StateValidating      State = "Validating"
	StateSubmitting      State = "Submitting"
	StateAwaitingPayment State = "AwaitingPayment"
	StateConfirmed       State = "Confirmed"
	StateFailed          State = "Failed"
)

// AppliedCoupon is the transient result of a successful coupon validation.
// It lives in the checkout session only, never in Postgres.
type AppliedCoupon struct {
	Code               string `json:"code"`
	DiscountPercentage int    `json:"discountPercentage"`
	Discount           string `json:"discount"`
	FinalTotal         string `json:"finalTotal"`
}

// Session is the per-customer checkout state.
type Session struct {
	State  State          `json:"state"`
	Coupon *AppliedCoupon `json:"coupon,omitempty"`
	// Order id held while AwaitingPayment, so a dismissed modal can resume.
	PendingOrderID string `json:"pendingOrderId,omitempty"`
}

// SessionStore persists checkout sessions. A missing session reads as Idle.
type SessionStore interface {
	Get(ctx context.Context, userID string) (*Session, error)
	Put(ctx context.Context, userID string, s *Session) error
	Clear(ctx context.Context, userID string) error
}

const sessionTTL = 24 * time.Hour

type RedisSessionStore struct{ rdb *redis.Client }

func NewRedisSessionStore(rdb *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{rdb: rdb}
}

func sessionKey(userID string) string { return "checkout:" + userID }

func (s *RedisSessionStore) Get(ctx context.Context, userID string) (*Session, error) {
	raw, err := s.rdb.Get(ctx, sessionKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return &Session{State: StateIdle}, nil
	}
	if err != nil {
		return nil, err
	}
	var out Session
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	if out.State == "" {
		out.State = StateIdle
	}
	return &out, nil
}

func (s *RedisSessionStore) Put(ctx context.Context, userID string, sess *Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, sessionKey(userID), raw, sessionTTL).Err()
}

func (s *RedisSessionStore) Clear(ctx context.Context, userID string) error {
	return s.rdb.Del(ctx, sessionKey(userID)).Err()
}
