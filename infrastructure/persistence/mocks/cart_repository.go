package mocks

import (
	"context"

	"marketplace/domain/cart"
)

// MockCartRepository 内存购物车
type MockCartRepository struct {
	store *Store
}

func NewMockCartRepository(store *Store) *MockCartRepository {
	return &MockCartRepository{store: store}
}

func (r *MockCartRepository) Lines(ctx context.Context, customerID string) ([]cart.Line, error) {
	var out []cart.Line
	r.store.with(ctx, func() {
		out = append(out, r.store.carts[customerID]...)
	})
	return out, nil
}

func (r *MockCartRepository) Set(ctx context.Context, line cart.Line) error {
	r.store.with(ctx, func() {
		current := r.store.carts[line.CustomerID]
		next := make([]cart.Line, 0, len(current)+1)
		replaced := false
		for _, l := range current {
			if l.ProductID == line.ProductID {
				replaced = true
				if line.Quantity > 0 {
					next = append(next, line)
				}
				continue
			}
			next = append(next, l)
		}
		if !replaced && line.Quantity > 0 {
			next = append(next, line)
		}
		r.store.carts[line.CustomerID] = next
	})
	return nil
}

func (r *MockCartRepository) Clear(ctx context.Context, customerID string) error {
	r.store.with(ctx, func() { delete(r.store.carts, customerID) })
	return nil
}

var _ cart.Repository = (*MockCartRepository)(nil)
