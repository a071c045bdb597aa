// Package cart keeps the per-customer shopping cart in Redis. The product
// table stays the source of truth for names and prices: every read refreshes
// line data and recomputes the subtotal.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrEmpty = errors.New("cart is empty")

type Line struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Price     string `json:"price"`
	Quantity  int    `json:"quantity"`
	Photo     string `json:"photo,omitempty"`
}

type Cart struct {
	Lines       []Line `json:"items"`
	TotalAmount string `json:"totalAmount"`
}

// Store persists raw cart lines per user.
type Store interface {
	Get(ctx context.Context, userID string) ([]Line, error)
	Put(ctx context.Context, userID string, lines []Line) error
	Clear(ctx context.Context, userID string) error
}

const cartTTL = 30 * 24 * time.Hour

type RedisStore struct{ rdb *redis.Client }

func NewRedisStore(rdb *redis.Client) *RedisStore { return &RedisStore{rdb: rdb} }

func key(userID string) string { return "cart:" + userID }

func (s *RedisStore) Get(ctx context.Context, userID string) ([]Line, error) {
	raw, err := s.rdb.Get(ctx, key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var lines []Line
	if err := json.Unmarshal(raw, &lines); err != nil {
		return nil, err
	}
	return lines, nil
}

func (s *RedisStore) Put(ctx context.Context, userID string, lines []Line) error {
	if len(lines) == 0 {
		return s.Clear(ctx, userID)
	}
	raw, err := json.Marshal(lines)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, key(userID), raw, cartTTL).Err()
}

func (s *RedisStore) Clear(ctx context.Context, userID string) error {
	return s.rdb.Del(ctx, key(userID)).Err()
}
