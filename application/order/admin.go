package order

import (
	"context"

	"marketplace/domain/audit"
	"marketplace/domain/inventory"
	"marketplace/domain/order"
	"marketplace/domain/shared"
)

// VoidOrder 商家或管理员作废订单。
// CREATED/PAID 退款并回补库存；SHIPPED/DELIVERED 只改状态，货物已发出不回补。
func (s *ApplicationService) VoidOrder(ctx context.Context, actor shared.Actor, orderID string, req VoidRequest) (*StatusChangeResponse, error) {
	if err := actor.RequireRole(shared.RoleMerchant, shared.RoleAdmin); err != nil {
		return nil, err
	}
	operator := func(o *order.MerchantOrder) error {
		return authorizeOperator(actor, o.MerchantID(), "merchant_order", o.ID())
	}

	swept, err := s.sweepOrder(ctx, actor, orderID, operator)
	if err != nil {
		return nil, err
	}
	if swept.expired {
		return nil, expiryRace(swept.order)
	}

	now := s.clock.Now()
	var (
		outcome order.VoidOutcome
		restock inventory.Restock
	)
	err = s.execute(ctx, func(ctx context.Context, uow shared.UnitOfWork) error {
		restock = inventory.Restock{}

		o, err := s.loadOrder(ctx, actor, orderID)
		if err != nil {
			return err
		}
		if err := operator(o); err != nil {
			return err
		}
		if outcome, err = o.Void(actor.Role, req.Reason, now); err != nil {
			return err
		}
		if outcome.RestoreStock {
			if restock, err = s.ledger.Release(ctx, o.ID(), now); err != nil {
				return err
			}
		}
		if err := s.orders.Save(ctx, o); err != nil {
			return err
		}
		uow.RegisterDirty(o)
		return nil
	})
	if err != nil {
		return nil, err
	}

	action := audit.ActionOrderVoidMerchant
	if actor.IsAdmin() {
		action = audit.ActionOrderVoidAdmin
	}
	s.audit.Record(ctx, actor, action, audit.TargetMerchantOrder, orderID, map[string]any{
		"status_before":  string(outcome.StatusBefore),
		"status_after":   string(outcome.StatusAfter),
		"reason":         req.Reason,
		"refunded":       outcome.Refunded,
		"restored_units": restock.Total(),
	})
	s.reportRestock(ctx, actor, orderID, restock)

	return &StatusChangeResponse{
		OrderID:       orderID,
		StatusBefore:  string(outcome.StatusBefore),
		Status:        string(outcome.StatusAfter),
		Changed:       true,
		Refunded:      outcome.Refunded,
		RestoredUnits: restock.Total(),
	}, nil
}

// UpdateOrderStatus 管理员直接覆盖订单状态。
// 目标与当前相同时不做修改；从 CREATED/PAID 覆盖到取消状态时按台账回补库存，同一行只回补一次。
func (s *ApplicationService) UpdateOrderStatus(ctx context.Context, actor shared.Actor, orderID string, req UpdateOrderStatusRequest) (*StatusChangeResponse, error) {
	if err := actor.RequireRole(shared.RoleAdmin); err != nil {
		return nil, err
	}
	target, ok := order.ParseStatus(req.Status)
	if !ok {
		return nil, shared.NewValidationError("merchant_order", "status", "unknown order status "+req.Status)
	}

	now := s.clock.Now()
	var (
		outcome order.OverrideOutcome
		restock inventory.Restock
	)
	err := s.execute(ctx, func(ctx context.Context, uow shared.UnitOfWork) error {
		restock = inventory.Restock{}

		o, err := s.loadOrder(ctx, actor, orderID)
		if err != nil {
			return err
		}
		if outcome, err = o.OverrideStatus(target, req.Note, now); err != nil {
			return err
		}
		if !outcome.Changed {
			return nil
		}
		if outcome.RestoreStock {
			if restock, err = s.ledger.Release(ctx, o.ID(), now); err != nil {
				return err
			}
		}
		if err := s.orders.Save(ctx, o); err != nil {
			return err
		}
		uow.RegisterDirty(o)
		return nil
	})
	if err != nil {
		return nil, err
	}

	resp := &StatusChangeResponse{
		OrderID:       orderID,
		StatusBefore:  string(outcome.StatusBefore),
		Status:        string(target),
		Changed:       outcome.Changed,
		Refunded:      outcome.Refunded,
		RestoredUnits: restock.Total(),
	}
	if !outcome.Changed {
		return resp, nil
	}

	s.audit.Record(ctx, actor, audit.ActionAdminOrderStatusUpdate, audit.TargetMerchantOrder, orderID, map[string]any{
		"from":           resp.StatusBefore,
		"to":             resp.Status,
		"note":           req.Note,
		"refunded":       outcome.Refunded,
		"restored_units": restock.Total(),
	})
	s.reportRestock(ctx, actor, orderID, restock)
	return resp, nil
}

// RemoveOrder 管理员软删除订单
func (s *ApplicationService) RemoveOrder(ctx context.Context, actor shared.Actor, orderID string, req RemoveRequest) (*StatusChangeResponse, error) {
	if err := actor.RequireRole(shared.RoleAdmin); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	var status order.Status
	err := s.execute(ctx, func(ctx context.Context, uow shared.UnitOfWork) error {
		o, err := s.loadOrder(ctx, actor, orderID)
		if err != nil {
			return err
		}
		if err := o.Remove(actor.ID, req.Reason, now); err != nil {
			return err
		}
		if err := s.orders.Save(ctx, o); err != nil {
			return err
		}
		uow.RegisterDirty(o)
		status = o.Status()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor, audit.ActionOrderRemove, audit.TargetMerchantOrder, orderID, map[string]any{
		"reason": req.Reason,
		"status": string(status),
	})
	return &StatusChangeResponse{
		OrderID:      orderID,
		StatusBefore: string(status),
		Status:       string(status),
		Changed:      true,
		Deleted:      true,
	}, nil
}
