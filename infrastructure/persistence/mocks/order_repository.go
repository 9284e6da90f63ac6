package mocks

import (
	"context"
	"sort"

	"marketplace/domain/order"
)

// MockOrderRepository 内存商户订单仓储
type MockOrderRepository struct {
	store *Store
}

// NewMockOrderRepository Create Mock order repository
func NewMockOrderRepository(store *Store) *MockOrderRepository {
	return &MockOrderRepository{store: store}
}

func (r *MockOrderRepository) NextIdentity() string {
	return newID()
}

func (r *MockOrderRepository) SaveGroup(ctx context.Context, g *order.OrderGroup) error {
	var err error
	r.store.with(ctx, func() {
		current, exists := r.store.groups[g.ID()]
		switch {
		case g.IsNew() && exists:
			err = order.NewConcurrentModificationError("order_group", g.ID())
		case !g.IsNew() && (!exists || current.Version != g.Version()):
			err = order.NewConcurrentModificationError("order_group", g.ID())
		}
		if err != nil {
			return
		}
		dto := g.Snapshot()
		dto.Version = g.Version() + 1
		r.store.groups[g.ID()] = dto
	})
	if err != nil {
		return err
	}
	g.IncrementVersionForSave()
	g.ClearDirtyTracking()
	return nil
}

func (r *MockOrderRepository) FindGroupByID(ctx context.Context, id string) (*order.OrderGroup, error) {
	var (
		dto order.GroupDTO
		ok  bool
	)
	r.store.with(ctx, func() { dto, ok = r.store.groups[id] })
	if !ok {
		return nil, order.NewGroupNotFoundError(id)
	}
	return order.RebuildGroup(dto), nil
}

func (r *MockOrderRepository) Save(ctx context.Context, o *order.MerchantOrder) error {
	var err error
	r.store.with(ctx, func() {
		current, exists := r.store.orders[o.ID()]
		switch {
		case o.IsNew() && exists:
			err = order.NewConcurrentModificationError("merchant_order", o.ID())
		case !o.IsNew() && (!exists || current.Version != o.Version()):
			err = order.NewConcurrentModificationError("merchant_order", o.ID())
		}
		if err != nil {
			return
		}
		dto := o.Snapshot()
		dto.Version = o.Version() + 1
		r.store.orders[o.ID()] = dto
	})
	if err != nil {
		return err
	}
	o.IncrementVersionForSave()
	o.ClearDirtyTracking()
	return nil
}

func (r *MockOrderRepository) FindByID(ctx context.Context, id string) (*order.MerchantOrder, error) {
	var (
		dto order.ReconstructionDTO
		ok  bool
	)
	r.store.with(ctx, func() { dto, ok = r.store.orders[id] })
	if !ok {
		return nil, order.NewOrderNotFoundError(id)
	}
	return order.RebuildFromDTO(dto), nil
}

func (r *MockOrderRepository) FindByGroupID(ctx context.Context, groupID string) ([]*order.MerchantOrder, error) {
	var dtos []order.ReconstructionDTO
	r.store.with(ctx, func() {
		for _, dto := range r.store.orders {
			if dto.GroupID == groupID && !dto.Deleted {
				dtos = append(dtos, dto)
			}
		}
	})
	sort.Slice(dtos, func(i, j int) bool {
		if dtos[i].CreatedAt.Equal(dtos[j].CreatedAt) {
			return dtos[i].ID < dtos[j].ID
		}
		return dtos[i].CreatedAt.Before(dtos[j].CreatedAt)
	})
	out := make([]*order.MerchantOrder, len(dtos))
	for i, dto := range dtos {
		out[i] = order.RebuildFromDTO(dto)
	}
	return out, nil
}

func (r *MockOrderRepository) Find(ctx context.Context, spec order.Specification, page order.Page) ([]*order.MerchantOrder, int64, error) {
	page = page.Normalize()
	var matched []*order.MerchantOrder
	r.store.with(ctx, func() {
		for _, dto := range r.store.orders {
			o := order.RebuildFromDTO(dto)
			if spec == nil || spec.IsSatisfiedBy(ctx, o) {
				matched = append(matched, o)
			}
		}
	})
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt().Equal(matched[j].CreatedAt()) {
			return matched[i].ID() > matched[j].ID()
		}
		return matched[i].CreatedAt().After(matched[j].CreatedAt())
	})
	total := int64(len(matched))
	start := page.Offset()
	if start >= len(matched) {
		return nil, total, nil
	}
	end := min(start+page.Size, len(matched))
	return matched[start:end], total, nil
}

var _ order.Repository = (*MockOrderRepository)(nil)
