package mocks

import (
	"context"
	"slices"
	"time"

	"marketplace/domain/inventory"
)

// MockInventoryRepository 内存库存仓储
type MockInventoryRepository struct {
	store *Store
}

func NewMockInventoryRepository(store *Store) *MockInventoryRepository {
	return &MockInventoryRepository{store: store}
}

func (r *MockInventoryRepository) NextIdentity() string { return newID() }

func (r *MockInventoryRepository) SaveProduct(ctx context.Context, p *inventory.Product) error {
	var err error
	r.store.with(ctx, func() {
		current, exists := r.store.products[p.ID()]
		if (p.IsNew() && exists) || (!p.IsNew() && (!exists || current.Version != p.Version())) {
			err = inventory.ErrConcurrentModification
			return
		}
		dto := p.Snapshot()
		dto.Version = p.Version() + 1
		r.store.products[p.ID()] = dto
	})
	if err != nil {
		return err
	}
	p.ClearDirtyTracking()
	return nil
}

func (r *MockInventoryRepository) FindProductByID(ctx context.Context, id string) (*inventory.Product, error) {
	var (
		dto inventory.ProductDTO
		ok  bool
	)
	r.store.with(ctx, func() { dto, ok = r.store.products[id] })
	if !ok {
		return nil, inventory.NewProductNotFoundError(id)
	}
	return inventory.RebuildProduct(dto), nil
}

func (r *MockInventoryRepository) FindProductsByIDs(ctx context.Context, ids []string) (map[string]*inventory.Product, error) {
	out := make(map[string]*inventory.Product, len(ids))
	r.store.with(ctx, func() {
		for _, id := range ids {
			if dto, ok := r.store.products[id]; ok {
				out[id] = inventory.RebuildProduct(dto)
			}
		}
	})
	return out, nil
}

func (r *MockInventoryRepository) AdjustStock(ctx context.Context, productID string, delta int) error {
	var err error
	r.store.with(ctx, func() {
		dto, ok := r.store.products[productID]
		if !ok {
			err = inventory.NewProductNotFoundError(productID)
			return
		}
		if dto.Stock+delta < 0 {
			err = inventory.NewInsufficientStockError([]inventory.Shortfall{{ProductID: productID, Requested: -delta, Available: dto.Stock}})
			return
		}
		dto.Stock += delta
		dto.Version++
		r.store.products[productID] = dto
	})
	return err
}

func (r *MockInventoryRepository) SaveReservations(ctx context.Context, rows []inventory.Reservation) error {
	r.store.with(ctx, func() {
		for _, row := range rows {
			r.store.reservations[row.ID] = row
		}
	})
	return nil
}

func (r *MockInventoryRepository) FindReservations(ctx context.Context, merchantOrderID string) ([]inventory.Reservation, error) {
	var rows []inventory.Reservation
	r.store.with(ctx, func() {
		for _, row := range r.store.reservations {
			if row.MerchantOrderID == merchantOrderID {
				rows = append(rows, row)
			}
		}
	})
	slices.SortFunc(rows, func(a, b inventory.Reservation) int {
		if a.OrderItemID < b.OrderItemID {
			return -1
		}
		if a.OrderItemID > b.OrderItemID {
			return 1
		}
		return 0
	})
	return rows, nil
}

func (r *MockInventoryRepository) TransitionReservation(ctx context.Context, id string, from []inventory.ReservationStatus, to inventory.ReservationStatus, now time.Time) (bool, error) {
	changed := false
	r.store.with(ctx, func() {
		row, ok := r.store.reservations[id]
		if !ok || !slices.Contains(from, row.Status) {
			return
		}
		row.Status = to
		row.UpdatedAt = now
		r.store.reservations[id] = row
		changed = true
	})
	return changed, nil
}

var _ inventory.Repository = (*MockInventoryRepository)(nil)
