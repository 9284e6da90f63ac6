package order

import (
	"context"

	"marketplace/domain/audit"
	"marketplace/domain/order"
	"marketplace/domain/shared"

	"go.uber.org/zap"
)

// Checkout 结账：读取购物车、校验库存、按商家拆单、扣减库存、清空购物车，全部在一个工作单元内完成。
// 带 Idempotency-Key 的重复请求返回第一次的结果。
func (s *ApplicationService) Checkout(ctx context.Context, actor shared.Actor, req CheckoutRequest) (*CheckoutResponse, error) {
	if err := actor.RequireRole(shared.RoleCustomer); err != nil {
		return nil, err
	}

	key := ""
	if req.IdempotencyKey != "" && s.idempotency != nil {
		key = "checkout:" + actor.ID + ":" + req.IdempotencyKey
		if resp, err := s.replayCheckout(ctx, actor, key); resp != nil || err != nil {
			return resp, err
		}
		claimed, err := s.idempotency.Claim(ctx, key)
		if err != nil {
			return nil, err
		}
		if !claimed {
			return nil, shared.NewStateConflictError("checkout", "a checkout with this idempotency key is in progress")
		}
	}

	resp, err := s.checkout(ctx, actor, req)
	if key != "" {
		if err != nil {
			if relErr := s.idempotency.Release(ctx, key); relErr != nil {
				s.log.Warn("release idempotency key failed", zap.String("key", key), zap.Error(relErr))
			}
		} else if cErr := s.idempotency.Complete(ctx, key, resp.OrderGroupID); cErr != nil {
			s.log.Warn("store idempotency result failed", zap.String("key", key), zap.Error(cErr))
		}
	}
	return resp, err
}

// replayCheckout 幂等键已完成时重建第一次的响应
func (s *ApplicationService) replayCheckout(ctx context.Context, actor shared.Actor, key string) (*CheckoutResponse, error) {
	groupID, found, done, err := s.idempotency.Get(ctx, key)
	if err != nil || !found {
		return nil, err
	}
	if !done {
		return nil, shared.NewStateConflictError("checkout", "a checkout with this idempotency key is in progress")
	}
	group, err := s.orders.FindGroupByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.CustomerID() != actor.ID {
		return nil, shared.NewForbiddenError("order_group", "order group "+groupID+" does not belong to the customer")
	}
	orders, err := s.orders.FindByGroupID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	resp := toCheckoutResponse(group, orders)
	resp.Replayed = true
	return resp, nil
}

func (s *ApplicationService) checkout(ctx context.Context, actor shared.Actor, req CheckoutRequest) (*CheckoutResponse, error) {
	now := s.clock.Now()
	var placement *order.Placement

	err := s.execute(ctx, func(ctx context.Context, uow shared.UnitOfWork) error {
		placement = nil

		lines, err := s.cart.Lines(ctx, actor.ID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return order.NewEmptyCartError()
		}

		// 任何扣减之前校验全部行，缺货时整单失败
		products, err := s.ledger.CheckAvailability(ctx, toAvailabilityLines(lines))
		if err != nil {
			return err
		}

		p, err := order.PlaceOrders(order.PlaceOrderInput{
			CustomerID:    actor.ID,
			Lines:         toPricedLines(lines, products),
			Address:       toAddress(req.Address),
			Now:           now,
			PaymentWindow: s.window,
			NewID:         s.orders.NextIdentity,
		})
		if err != nil {
			return err
		}

		if err := s.orders.SaveGroup(ctx, p.Group); err != nil {
			return err
		}
		uow.RegisterNew(p.Group)

		for _, o := range p.Orders {
			if err := s.ledger.Reserve(ctx, o.ID(), toReserveLines(o), now); err != nil {
				return err
			}
			if err := s.orders.Save(ctx, o); err != nil {
				return err
			}
			uow.RegisterNew(o)
		}

		if err := s.cart.Clear(ctx, actor.ID); err != nil {
			return err
		}
		placement = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	orderIDs := make([]string, len(placement.Orders))
	for i, o := range placement.Orders {
		orderIDs[i] = o.ID()
	}
	s.audit.Record(ctx, actor, audit.ActionOrderCreate, audit.TargetOrderGroup, placement.Group.ID(), map[string]any{
		"merchant_order_ids": orderIDs,
		"total_amount":       placement.Group.TotalAmount().Amount(),
		"currency":           placement.Group.TotalAmount().Currency(),
	})
	s.log.Info("checkout completed",
		zap.String("order_group_id", placement.Group.ID()),
		zap.String("customer_id", actor.ID),
		zap.Int("merchant_orders", len(placement.Orders)))

	return toCheckoutResponse(placement.Group, placement.Orders), nil
}
