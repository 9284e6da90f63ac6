package order

import (
	"context"
	"errors"

	"marketplace/domain/audit"
	"marketplace/domain/cancellation"
	"marketplace/domain/inventory"
	"marketplace/domain/order"
	"marketplace/domain/shared"
)

// GetCancelWindow 查询取消窗口；CREATED 订单已过期时先提交自动取消，再返回取消后的状态
func (s *ApplicationService) GetCancelWindow(ctx context.Context, actor shared.Actor, orderID string) (*CancelWindowResponse, error) {
	if err := actor.RequireRole(shared.RoleCustomer); err != nil {
		return nil, err
	}
	swept, err := s.sweepOrder(ctx, actor, orderID, func(o *order.MerchantOrder) error {
		return authorizeCustomer(actor, o)
	})
	if err != nil {
		return nil, err
	}

	o := swept.order
	pending := false
	if o.Status() == order.StatusPaid {
		r, err := s.cancelRequests.FindPending(ctx, o.ID(), actor.ID)
		if err != nil {
			return nil, err
		}
		pending = r != nil
	}
	now := s.clock.Now()
	return toCancelWindowResponse(o, o.CancelWindow(now, s.window), o.DisplayStatus(now, pending)), nil
}

// Cancel 顾客取消
//   - CREATED 且未过期：直接取消并回补库存
//   - PAID 且在支付后窗口内：退款、回补库存并取消
//   - PAID 且超出窗口：创建取消申请（已有待处理申请时直接返回该申请），订单状态不变
func (s *ApplicationService) Cancel(ctx context.Context, actor shared.Actor, orderID string, req CancelOrderRequest) (*CancelOrderResponse, error) {
	if err := actor.RequireRole(shared.RoleCustomer); err != nil {
		return nil, err
	}
	owner := func(o *order.MerchantOrder) error { return authorizeCustomer(actor, o) }

	swept, err := s.sweepOrder(ctx, actor, orderID, owner)
	if err != nil {
		return nil, err
	}
	if swept.expired {
		return nil, expiryRace(swept.order)
	}

	now := s.clock.Now()
	var (
		outcome order.CancelOutcome
		restock inventory.Restock
		request *cancellation.Request
		created bool
		status  order.Status
	)
	err = s.execute(ctx, func(ctx context.Context, uow shared.UnitOfWork) error {
		restock, request, created = inventory.Restock{}, nil, false

		o, err := s.loadOrder(ctx, actor, orderID)
		if err != nil {
			return err
		}
		if err := owner(o); err != nil {
			return err
		}
		if outcome, err = o.CancelByCustomer(now, s.window); err != nil {
			return err
		}
		status = o.Status()

		if outcome.Kind == order.ApprovalRequired {
			existing, err := s.cancelRequests.FindPending(ctx, o.ID(), actor.ID)
			if err != nil {
				return err
			}
			if existing != nil {
				request = existing
				return nil
			}
			request = cancellation.NewRequest(s.cancelRequests.NextIdentity(), o.ID(), o.MerchantID(), actor.ID, req.Reason, now)
			if err := s.cancelRequests.Save(ctx, request); err != nil {
				return err
			}
			uow.RegisterNew(request)
			created = true
			return nil
		}

		if restock, err = s.ledger.Release(ctx, o.ID(), now); err != nil {
			return err
		}
		if err := s.orders.Save(ctx, o); err != nil {
			return err
		}
		uow.RegisterDirty(o)
		return nil
	})
	if errors.Is(err, order.ErrPaymentWindowExpired) {
		return nil, s.resolveExpiry(ctx, actor, err, orderID)
	}
	if err != nil {
		return nil, err
	}

	if outcome.Kind == order.ApprovalRequired {
		if created {
			s.audit.Record(ctx, actor, audit.ActionOrderCancelRequestCreate, audit.TargetCancelRequest, request.ID(), map[string]any{
				"merchant_order_id": orderID,
				"reason":            request.Reason(),
			})
		}
		return &CancelOrderResponse{
			OrderID:                  orderID,
			RequiresMerchantApproval: true,
			RequestID:                request.ID(),
			RequestStatus:            string(request.Status()),
		}, nil
	}

	action := audit.ActionOrderCancelUser
	if outcome.Kind == order.CancelledAfterPayment {
		action = audit.ActionOrderCancelUserAfterPay
	}
	s.audit.Record(ctx, actor, action, audit.TargetMerchantOrder, orderID, map[string]any{
		"status_before":     string(outcome.StatusBefore),
		"remaining_seconds": int64(outcome.Remaining.Seconds()),
		"refunded":          outcome.Refunded,
		"restored_units":    restock.Total(),
		"reason":            req.Reason,
	})
	s.reportRestock(ctx, actor, orderID, restock)

	return &CancelOrderResponse{
		OrderID:   orderID,
		NewStatus: string(status),
		Refunded:  outcome.Refunded,
	}, nil
}

// ApproveCancelRequest 商家或管理员批准取消申请：退款、回补库存、取消订单
func (s *ApplicationService) ApproveCancelRequest(ctx context.Context, actor shared.Actor, requestID string, req DecisionRequest) (*CancelRequestResponse, error) {
	if err := actor.RequireRole(shared.RoleMerchant, shared.RoleAdmin); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	var (
		resp    *CancelRequestResponse
		outcome order.VoidOutcome
		restock inventory.Restock
	)
	err := s.execute(ctx, func(ctx context.Context, uow shared.UnitOfWork) error {
		resp, restock = nil, inventory.Restock{}

		r, err := s.cancelRequests.FindByID(ctx, requestID)
		if err != nil {
			return err
		}
		if err := authorizeOperator(actor, r.MerchantID(), "cancel_request", requestID); err != nil {
			return err
		}
		if err := r.Approve(actor.ID, req.Note, now); err != nil {
			return err
		}

		o, err := s.loadOrder(ctx, actor, r.MerchantOrderID())
		if err != nil {
			return err
		}
		if outcome, err = o.ApproveCancellation(actor.Role, now); err != nil {
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
		if err := s.cancelRequests.Save(ctx, r); err != nil {
			return err
		}
		uow.RegisterDirty(r)

		resp = toCancelRequestResponse(r)
		resp.OrderStatus = string(o.Status())
		resp.Refunded = outcome.Refunded
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor, audit.ActionOrderCancelRequestApprove, audit.TargetCancelRequest, requestID, map[string]any{
		"merchant_order_id": resp.MerchantOrderID,
		"note":              resp.MerchantNote,
		"status_before":     string(outcome.StatusBefore),
		"status_after":      string(outcome.StatusAfter),
		"refunded":          outcome.Refunded,
		"restored_units":    restock.Total(),
	})
	s.reportRestock(ctx, actor, resp.MerchantOrderID, restock)
	return resp, nil
}

// RejectCancelRequest 驳回取消申请：只记录决定，订单保持 PAID
func (s *ApplicationService) RejectCancelRequest(ctx context.Context, actor shared.Actor, requestID string, req DecisionRequest) (*CancelRequestResponse, error) {
	if err := actor.RequireRole(shared.RoleMerchant, shared.RoleAdmin); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	var resp *CancelRequestResponse
	err := s.execute(ctx, func(ctx context.Context, uow shared.UnitOfWork) error {
		r, err := s.cancelRequests.FindByID(ctx, requestID)
		if err != nil {
			return err
		}
		if err := authorizeOperator(actor, r.MerchantID(), "cancel_request", requestID); err != nil {
			return err
		}
		if err := r.Reject(actor.ID, req.Note, now); err != nil {
			return err
		}
		if err := s.cancelRequests.Save(ctx, r); err != nil {
			return err
		}
		uow.RegisterDirty(r)
		resp = toCancelRequestResponse(r)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor, audit.ActionOrderCancelRequestReject, audit.TargetCancelRequest, requestID, map[string]any{
		"merchant_order_id": resp.MerchantOrderID,
		"note":              resp.MerchantNote,
	})
	return resp, nil
}

// ListCancelRequests 商家看自己的申请，管理员看全部；最多返回最新 100 条
func (s *ApplicationService) ListCancelRequests(ctx context.Context, actor shared.Actor, status string) ([]CancelRequestResponse, error) {
	if err := actor.RequireRole(shared.RoleMerchant, shared.RoleAdmin); err != nil {
		return nil, err
	}
	st, ok := cancellation.ParseStatus(status)
	if !ok {
		return nil, shared.NewValidationError("cancel_request", "status", "unknown cancel request status "+status)
	}
	filter := cancellation.Filter{Status: st, Limit: 100}
	if actor.IsMerchant() {
		filter.MerchantID = actor.ID
	}

	requests, err := s.cancelRequests.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]CancelRequestResponse, 0, len(requests))
	for _, r := range requests {
		out = append(out, *toCancelRequestResponse(r))
	}
	return out, nil
}
