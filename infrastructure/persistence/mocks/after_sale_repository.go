package mocks

import (
	"context"
	"sort"

	"marketplace/domain/aftersale"
	"marketplace/domain/shared"
)

// MockAfterSaleRepository 内存售后申请仓储
type MockAfterSaleRepository struct {
	store *Store
}

func NewMockAfterSaleRepository(store *Store) *MockAfterSaleRepository {
	return &MockAfterSaleRepository{store: store}
}

func (r *MockAfterSaleRepository) NextIdentity() string { return newID() }

func (r *MockAfterSaleRepository) Save(ctx context.Context, req *aftersale.Request) error {
	var err error
	r.store.with(ctx, func() {
		current, exists := r.store.afterSales[req.ID()]
		if req.IsNew() {
			if exists {
				err = shared.NewDomainError(aftersale.ErrConcurrentModification, "after_sale", "after-sale request "+req.ID()+" already exists")
				return
			}
		} else if !exists || current.Version != req.Version() {
			err = shared.NewDomainError(aftersale.ErrConcurrentModification, "after_sale", "after-sale request "+req.ID()+" was modified concurrently")
			return
		}
		dto := req.Snapshot()
		dto.Version = req.Version() + 1
		r.store.afterSales[req.ID()] = dto
	})
	if err != nil {
		return err
	}
	req.IncrementVersionForSave()
	req.ClearDirtyTracking()
	return nil
}

func (r *MockAfterSaleRepository) FindByID(ctx context.Context, id string) (*aftersale.Request, error) {
	var (
		dto aftersale.ReconstructionDTO
		ok  bool
	)
	r.store.with(ctx, func() { dto, ok = r.store.afterSales[id] })
	if !ok {
		return nil, shared.NewDomainError(aftersale.ErrRequestNotFound, "after_sale", "after-sale request not found: "+id)
	}
	return aftersale.RebuildFromDTO(dto), nil
}

func (r *MockAfterSaleRepository) FindByOrderID(ctx context.Context, merchantOrderID string) ([]*aftersale.Request, error) {
	var dtos []aftersale.ReconstructionDTO
	r.store.with(ctx, func() {
		for _, dto := range r.store.afterSales {
			if dto.MerchantOrderID == merchantOrderID {
				dtos = append(dtos, dto)
			}
		}
	})
	sort.Slice(dtos, func(i, j int) bool { return dtos[i].CreatedAt.After(dtos[j].CreatedAt) })
	out := make([]*aftersale.Request, len(dtos))
	for i, dto := range dtos {
		out[i] = aftersale.RebuildFromDTO(dto)
	}
	return out, nil
}

func (r *MockAfterSaleRepository) HasOpenForItem(ctx context.Context, orderItemID string) (bool, error) {
	found := false
	r.store.with(ctx, func() {
		for _, dto := range r.store.afterSales {
			if dto.OrderItemID == orderItemID && dto.Status.IsOpen() {
				found = true
				return
			}
		}
	})
	return found, nil
}

func (r *MockAfterSaleRepository) HasOpenForOrder(ctx context.Context, merchantOrderID string) (bool, error) {
	found := false
	r.store.with(ctx, func() {
		for _, dto := range r.store.afterSales {
			if dto.MerchantOrderID == merchantOrderID && dto.Status.IsOpen() {
				found = true
				return
			}
		}
	})
	return found, nil
}

var _ aftersale.Repository = (*MockAfterSaleRepository)(nil)
