package mocks

import (
	"context"
	"sort"

	"marketplace/domain/cancellation"
	"marketplace/domain/shared"
)

// MockCancelRequestRepository 内存取消申请仓储
type MockCancelRequestRepository struct {
	store *Store
}

func NewMockCancelRequestRepository(store *Store) *MockCancelRequestRepository {
	return &MockCancelRequestRepository{store: store}
}

func (r *MockCancelRequestRepository) NextIdentity() string { return newID() }

func (r *MockCancelRequestRepository) Save(ctx context.Context, req *cancellation.Request) error {
	var err error
	r.store.with(ctx, func() {
		current, exists := r.store.cancelReqs[req.ID()]
		if req.IsNew() {
			if exists {
				err = shared.NewDomainError(cancellation.ErrConcurrentModification, "cancel_request", "cancel request "+req.ID()+" already exists")
				return
			}
			// (merchant_order_id, user_id) 上最多一个 PENDING
			for _, other := range r.store.cancelReqs {
				if other.MerchantOrderID == req.MerchantOrderID() && other.UserID == req.UserID() && other.Status == cancellation.StatusPending {
					err = shared.NewDomainError(cancellation.ErrConcurrentModification, "cancel_request", "a pending cancel request already exists")
					return
				}
			}
		} else if !exists || current.Version != req.Version() {
			err = shared.NewDomainError(cancellation.ErrConcurrentModification, "cancel_request", "cancel request "+req.ID()+" was modified concurrently")
			return
		}
		dto := req.Snapshot()
		dto.Version = req.Version() + 1
		r.store.cancelReqs[req.ID()] = dto
	})
	if err != nil {
		return err
	}
	req.IncrementVersionForSave()
	req.ClearDirtyTracking()
	return nil
}

func (r *MockCancelRequestRepository) FindByID(ctx context.Context, id string) (*cancellation.Request, error) {
	var (
		dto cancellation.ReconstructionDTO
		ok  bool
	)
	r.store.with(ctx, func() { dto, ok = r.store.cancelReqs[id] })
	if !ok {
		return nil, shared.NewDomainError(cancellation.ErrRequestNotFound, "cancel_request", "cancel request not found: "+id)
	}
	return cancellation.RebuildFromDTO(dto), nil
}

func (r *MockCancelRequestRepository) FindPending(ctx context.Context, merchantOrderID, userID string) (*cancellation.Request, error) {
	var found *cancellation.ReconstructionDTO
	r.store.with(ctx, func() {
		for _, dto := range r.store.cancelReqs {
			if dto.MerchantOrderID == merchantOrderID && dto.UserID == userID && dto.Status == cancellation.StatusPending {
				d := dto
				found = &d
				return
			}
		}
	})
	if found == nil {
		return nil, nil
	}
	return cancellation.RebuildFromDTO(*found), nil
}

func (r *MockCancelRequestRepository) PendingOrderIDs(ctx context.Context, merchantOrderIDs []string) (map[string]bool, error) {
	wanted := make(map[string]bool, len(merchantOrderIDs))
	for _, id := range merchantOrderIDs {
		wanted[id] = true
	}
	out := make(map[string]bool)
	r.store.with(ctx, func() {
		for _, dto := range r.store.cancelReqs {
			if dto.Status == cancellation.StatusPending && wanted[dto.MerchantOrderID] {
				out[dto.MerchantOrderID] = true
			}
		}
	})
	return out, nil
}

func (r *MockCancelRequestRepository) List(ctx context.Context, filter cancellation.Filter) ([]*cancellation.Request, error) {
	var dtos []cancellation.ReconstructionDTO
	r.store.with(ctx, func() {
		for _, dto := range r.store.cancelReqs {
			if filter.MerchantID != "" && dto.MerchantID != filter.MerchantID {
				continue
			}
			if filter.Status != "" && dto.Status != filter.Status {
				continue
			}
			dtos = append(dtos, dto)
		}
	})
	sort.Slice(dtos, func(i, j int) bool { return dtos[i].CreatedAt.After(dtos[j].CreatedAt) })
	if filter.Limit > 0 && len(dtos) > filter.Limit {
		dtos = dtos[:filter.Limit]
	}
	out := make([]*cancellation.Request, len(dtos))
	for i, dto := range dtos {
		out[i] = cancellation.RebuildFromDTO(dto)
	}
	return out, nil
}

var _ cancellation.Repository = (*MockCancelRequestRepository)(nil)
