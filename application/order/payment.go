package order

import (
	"context"
	"errors"
	"time"

	"marketplace/domain/audit"
	"marketplace/domain/order"
	"marketplace/domain/payment"
	"marketplace/domain/shared"

	"go.uber.org/zap"
)

// Pay 支付单个子订单。
// 先做懒过期检查；过期则自动取消并返回 ExpiryRace。
// 网关拒绝时流水记为 FAILED 并提交，订单保持 CREATED，可重新支付。
func (s *ApplicationService) Pay(ctx context.Context, actor shared.Actor, orderID string, req PayRequest) (*PaymentResponse, error) {
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
	method := payment.ParseMethod(req.Method)
	var (
		resp       PaymentResponse
		declined   error
		groupPaid  bool
		groupID    string
		chargeFrom *order.MerchantOrder
	)
	err = s.execute(ctx, func(ctx context.Context, uow shared.UnitOfWork) error {
		declined, groupPaid, chargeFrom = nil, false, nil

		o, err := s.loadOrder(ctx, actor, orderID)
		if err != nil {
			return err
		}
		if err := owner(o); err != nil {
			return err
		}
		tx, err := o.StartPayment(s.orders.NextIdentity(), method, now)
		if err != nil {
			return err
		}

		tradeNo, chargeErr := s.gateway.Charge(ctx, tx)
		if chargeErr != nil {
			declined = chargeErr
			if err := o.FailPayment(now); err != nil {
				return err
			}
		} else if err := o.CompletePayment(tradeNo, now); err != nil {
			return err
		}
		if err := s.orders.Save(ctx, o); err != nil {
			return err
		}
		uow.RegisterDirty(o)

		if declined == nil {
			if groupPaid, err = s.settleGroup(ctx, uow, o.GroupID(), now); err != nil {
				return err
			}
		}
		resp = toPaymentResponse(o, tx)
		groupID = o.GroupID()
		chargeFrom = o
		return nil
	})
	if errors.Is(err, order.ErrPaymentWindowExpired) {
		return nil, s.resolveExpiry(ctx, actor, err, orderID)
	}
	if err != nil {
		return nil, err
	}

	if declined != nil {
		s.log.Warn("payment declined",
			zap.String("merchant_order_id", orderID),
			zap.String("payment_id", resp.PaymentID),
			zap.Error(declined))
		s.audit.Record(ctx, actor, audit.ActionPaymentFailed, audit.TargetPaymentTransaction, resp.PaymentID, map[string]any{
			"merchant_order_id": orderID,
			"method":            string(method),
			"reason":            declined.Error(),
		})
		return &resp, nil
	}

	s.audit.Record(ctx, actor, audit.ActionPaymentSuccess, audit.TargetPaymentTransaction, resp.PaymentID, map[string]any{
		"merchant_order_id": orderID,
		"method":            string(method),
		"amount":            chargeFrom.Subtotal().Amount(),
		"provider_trade_no": resp.ProviderTradeNo,
	})
	if groupPaid {
		s.log.Info("order group fully paid", zap.String("order_group_id", groupID))
	}
	return &resp, nil
}

// PayGroup 合并支付订单组内所有待支付子订单，整批原子提交。
// 任一子订单已过期时先自动取消这些子订单，再返回 ExpiryRace，其余子订单不支付。
func (s *ApplicationService) PayGroup(ctx context.Context, actor shared.Actor, groupID string, req PayRequest) (*GroupPaymentResponse, error) {
	if err := actor.RequireRole(shared.RoleCustomer); err != nil {
		return nil, err
	}
	group, err := s.orders.FindGroupByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.CustomerID() != actor.ID {
		return nil, shared.NewForbiddenError("order_group", "order group "+groupID+" does not belong to the customer")
	}
	if err := s.sweepGroup(ctx, actor, groupID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	method := payment.ParseMethod(req.Method)
	var resp *GroupPaymentResponse
	err = s.execute(ctx, func(ctx context.Context, uow shared.UnitOfWork) error {
		resp = nil

		orders, err := s.orders.FindByGroupID(ctx, groupID)
		if err != nil {
			return err
		}
		out := &GroupPaymentResponse{OrderGroupID: groupID}
		for _, o := range orders {
			if o.Status() != order.StatusCreated {
				continue
			}
			tx, err := o.StartPayment(s.orders.NextIdentity(), method, now)
			if err != nil {
				return err
			}
			tradeNo, chargeErr := s.gateway.Charge(ctx, tx)
			if chargeErr != nil {
				return payment.NewDeclinedError(o.ID(), chargeErr)
			}
			if err := o.CompletePayment(tradeNo, now); err != nil {
				return err
			}
			if err := s.orders.Save(ctx, o); err != nil {
				return err
			}
			uow.RegisterDirty(o)
			out.PaymentIDs = append(out.PaymentIDs, tx.ID())
			out.Payments = append(out.Payments, toPaymentResponse(o, tx))
		}
		if len(out.Payments) == 0 {
			return shared.NewStateConflictError("order_group", "order group "+groupID+" has no payable orders")
		}

		if _, err := s.settleGroup(ctx, uow, groupID, now); err != nil {
			return err
		}
		g, err := s.orders.FindGroupByID(ctx, groupID)
		if err != nil {
			return err
		}
		out.GroupStatus = string(g.Status())
		resp = out
		return nil
	})
	if errors.Is(err, order.ErrPaymentWindowExpired) {
		if sweepErr := s.sweepGroup(ctx, actor, groupID); sweepErr != nil {
			return nil, sweepErr
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	for _, p := range resp.Payments {
		s.audit.Record(ctx, actor, audit.ActionPaymentSuccess, audit.TargetPaymentTransaction, p.PaymentID, map[string]any{
			"merchant_order_id": p.OrderID,
			"method":            p.Method,
			"amount":            p.Amount.Amount,
			"provider_trade_no": p.ProviderTradeNo,
		})
	}
	s.audit.Record(ctx, actor, audit.ActionPaymentGroupSuccess, audit.TargetOrderGroup, groupID, map[string]any{
		"payment_ids": resp.PaymentIDs,
		"method":      string(method),
	})
	return resp, nil
}

// sweepGroup 对组内所有 CREATED 子订单做懒过期检查，有任何一个被自动取消即返回 ExpiryRace
func (s *ApplicationService) sweepGroup(ctx context.Context, actor shared.Actor, groupID string) error {
	orders, err := s.orders.FindByGroupID(ctx, groupID)
	if err != nil {
		return err
	}
	var expired []*order.MerchantOrder
	for _, o := range orders {
		if o.Status() != order.StatusCreated {
			continue
		}
		res, err := s.sweepOrder(ctx, actor, o.ID(), nil)
		if err != nil {
			return err
		}
		if res.expired {
			expired = append(expired, res.order)
		}
	}
	if len(expired) > 0 {
		return expiryRace(expired...)
	}
	return nil
}

// settleGroup 所有子订单已支付时把订单组标记为 PAID（在调用方事务内）
func (s *ApplicationService) settleGroup(ctx context.Context, uow shared.UnitOfWork, groupID string, now time.Time) (bool, error) {
	group, err := s.orders.FindGroupByID(ctx, groupID)
	if err != nil {
		return false, err
	}
	orders, err := s.orders.FindByGroupID(ctx, groupID)
	if err != nil {
		return false, err
	}
	if !group.MarkPaidIfSettled(orders, now) {
		return false, nil
	}
	if err := s.orders.SaveGroup(ctx, group); err != nil {
		return false, err
	}
	uow.RegisterDirty(group)
	return true, nil
}

// resolveExpiry 领域操作在事务内撞上截止时间：重新执行懒过期检查，
// 自动取消提交后返回 ExpiryRace；检查未发生取消时原样返回原错误
func (s *ApplicationService) resolveExpiry(ctx context.Context, actor shared.Actor, cause error, orderID string) error {
	res, err := s.sweepOrder(ctx, actor, orderID, nil)
	if err != nil {
		return err
	}
	if res.expired || res.order.WasAutoCancelled() {
		return expiryRace(res.order)
	}
	return cause
}
