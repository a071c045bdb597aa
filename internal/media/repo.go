// Package media manages homepage banner records. Banners are URL records
// only; file storage lives outside this service.
package media

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("banner not found")

type Banner struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	ImageURL  string    `json:"imageUrl"`
	LinkURL   string    `json:"linkUrl,omitempty"`
	Position  int       `json:"position"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateBannerRequest payload of creation.
// swagger:model CreateBannerRequest
type CreateBannerRequest struct {
	Title    string `json:"title"`
	ImageURL string `json:"imageUrl"`
	LinkURL  string `json:"linkUrl"`
	Position int    `json:"position"`
	Active   *bool  `json:"active"`
}

type Repository interface {
	Create(ctx context.Context, b *Banner) error
	ListActive(ctx context.Context) ([]Banner, error)
	List(ctx context.Context) ([]Banner, error)
	Update(ctx context.Context, b *Banner) error
	Delete(ctx context.Context, id string) (bool, error)
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

func (r *PGRepo) Create(ctx context.Context, b *Banner) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.db.Exec(ctx, `
		INSERT INTO banners (id, title, image_url, link_url, position, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,NOW(),NOW())
	`, b.ID, b.Title, b.ImageURL, b.LinkURL, b.Position, b.Active)
	return err
}

func (r *PGRepo) ListActive(ctx context.Context) ([]Banner, error) {
	return r.list(ctx, true)
}

func (r *PGRepo) List(ctx context.Context) ([]Banner, error) {
	return r.list(ctx, false)
}

func (r *PGRepo) list(ctx context.Context, activeOnly bool) ([]Banner, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT id, title, image_url, link_url, position, active, created_at, updated_at
		FROM banners
		WHERE ($1 = false OR active)
		ORDER BY position ASC, created_at DESC
	`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Banner
	for rows.Next() {
		var b Banner
		if err := rows.Scan(&b.ID, &b.Title, &b.ImageURL, &b.LinkURL, &b.Position, &b.Active, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *PGRepo) Update(ctx context.Context, b *Banner) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE banners
		SET title = COALESCE(NULLIF($2,''), title),
		    image_url = COALESCE(NULLIF($3,''), image_url),
		    link_url = $4,
		    position = $5,
		    active = $6,
		    updated_at = NOW()
		WHERE id = $1
	`, b.ID, b.Title, b.ImageURL, b.LinkURL, b.Position, b.Active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) Delete(ctx context.Context, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cmd, err := r.db.Exec(ctx, `DELETE FROM banners WHERE id=$1`, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}
