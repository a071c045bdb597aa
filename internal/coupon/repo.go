package coupon

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound     = errors.New("coupon not found")
	ErrAlreadyExist = errors.New("coupon already exists")
)

type Repository interface {
	Create(ctx context.Context, c *Coupon) error
	GetByCode(ctx context.Context, code string) (*Coupon, error)
	List(ctx context.Context, limit, offset int) ([]Coupon, error)
	Update(ctx context.Context, c *Coupon) error
	Delete(ctx context.Context, code string) (bool, error)
	// IncrementUsage bumps used_count only while it is still under the limit.
	IncrementUsage(ctx context.Context, code string) error
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

func (r *PGRepo) Create(ctx context.Context, c *Coupon) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.db.Exec(ctx, `
		INSERT INTO coupons (id, code, discount_percentage, min_purchase, max_purchase, usage_limit, used_count, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,0,$7,NOW(),NOW())
	`, c.ID, c.Code, c.DiscountPercentage, c.MinPurchase, c.MaxPurchase, c.UsageLimit, c.Status)
	if err != nil {
		// UNIQUE on code
		return ErrAlreadyExist
	}
	return nil
}

func (r *PGRepo) GetByCode(ctx context.Context, code string) (*Coupon, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var c Coupon
	err := r.db.QueryRow(ctx, `
		SELECT id, code, discount_percentage, min_purchase::text, max_purchase::text, usage_limit, used_count, status, created_at, updated_at
		FROM coupons WHERE code=$1
	`, code).Scan(&c.ID, &c.Code, &c.DiscountPercentage, &c.MinPurchase, &c.MaxPurchase, &c.UsageLimit, &c.UsedCount, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (r *PGRepo) List(ctx context.Context, limit, offset int) ([]Coupon, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, code, discount_percentage, min_purchase::text, max_purchase::text, usage_limit, used_count, status, created_at, updated_at
		FROM coupons ORDER BY created_at DESC LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Coupon
	for rows.Next() {
		var c Coupon
		if err := rows.Scan(&c.ID, &c.Code, &c.DiscountPercentage, &c.MinPurchase, &c.MaxPurchase, &c.UsageLimit, &c.UsedCount, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PGRepo) Update(ctx context.Context, c *Coupon) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE coupons
		SET discount_percentage = $2,
		    min_purchase = $3,
		    max_purchase = $4,
		    usage_limit = $5,
		    status = $6,
		    updated_at = NOW()
		WHERE code = $1
	`, c.Code, c.DiscountPercentage, c.MinPurchase, c.MaxPurchase, c.UsageLimit, c.Status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) Delete(ctx context.Context, code string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cmd, err := r.db.Exec(ctx, `DELETE FROM coupons WHERE code=$1`, code)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *PGRepo) IncrementUsage(ctx context.Context, code string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE coupons
		SET used_count = used_count + 1, updated_at = NOW()
		WHERE code = $1 AND (usage_limit = 0 OR used_count < usage_limit)
	`, code)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
