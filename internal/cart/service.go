package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/kartify/storefront/internal/product"
)

var (
	ErrProductNotFound   = product.ErrNotFound
	ErrInsufficientStock = errors.New("insufficient stock")
)

type Service struct {
	store    Store
	products product.Repository
}

func NewService(store Store, products product.Repository) *Service {
	return &Service{store: store, products: products}
}

// SetItem sets the quantity of a product in the user's cart. Quantity 0
// removes the line. Stock is checked against the catalogue at write time;
// it is re-checked at order creation, where the server stays authoritative.
func (s *Service) SetItem(ctx context.Context, userID, productID string, quantity int) error {
	if quantity < 0 {
		return fmt.Errorf("quantity must be >= 0")
	}

	lines, err := s.store.Get(ctx, userID)
	if err != nil {
		return err
	}

	if quantity == 0 {
		out := lines[:0]
		for _, l := range lines {
			if l.ProductID != productID {
				out = append(out, l)
			}
		}
		return s.store.Put(ctx, userID, out)
	}

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return err
	}
	if p.Stock < quantity {
		return ErrInsufficientStock
	}

	photo := ""
	if len(p.Photos) > 0 {
		photo = p.Photos[0]
	}
	line := Line{ProductID: p.ID, Name: p.Name, Price: p.Price, Quantity: quantity, Photo: photo}

	replaced := false
	for i := range lines {
		if lines[i].ProductID == productID {
			lines[i] = line
			replaced = true
			break
		}
	}
	if !replaced {
		lines = append(lines, line)
	}
	return s.store.Put(ctx, userID, lines)
}

// Get returns the cart with lines refreshed against the catalogue and the
// subtotal recomputed. Lines whose product was removed are dropped.
func (s *Service) Get(ctx context.Context, userID string) (*Cart, error) {
	lines, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	fresh := make([]Line, 0, len(lines))
	total := decimal.Zero
	for _, l := range lines {
		p, err := s.products.GetByID(ctx, l.ProductID)
		if err != nil {
			if errors.Is(err, product.ErrNotFound) {
				continue
			}
			return nil, err
		}
		l.Name = p.Name
		l.Price = p.Price
		if len(p.Photos) > 0 {
			l.Photo = p.Photos[0]
		}
		price, err := decimal.NewFromString(p.Price)
		if err != nil {
			return nil, fmt.Errorf("product %s: bad price %q", p.ID, p.Price)
		}
		total = total.Add(price.Mul(decimal.NewFromInt(int64(l.Quantity))))
		fresh = append(fresh, l)
	}

	if len(fresh) != len(lines) {
		if err := s.store.Put(ctx, userID, fresh); err != nil {
			return nil, err
		}
	}
	return &Cart{Lines: fresh, TotalAmount: total.String()}, nil
}

// Subtotal returns the current cart subtotal. ErrEmpty when there are no lines.
func (s *Service) Subtotal(ctx context.Context, userID string) (decimal.Decimal, []Line, error) {
	c, err := s.Get(ctx, userID)
	if err != nil {
		return decimal.Zero, nil, err
	}
	if len(c.Lines) == 0 {
		return decimal.Zero, nil, ErrEmpty
	}
	sub, err := decimal.NewFromString(c.TotalAmount)
	if err != nil {
		return decimal.Zero, nil, err
	}
	return sub, c.Lines, nil
}

func (s *Service) Clear(ctx context.Context, userID string) error {
	return s.store.Clear(ctx, userID)
}
