package order

import (
	"context"

	"marketplace/domain/audit"
	"marketplace/domain/inventory"
	"marketplace/domain/order"
	"marketplace/domain/shared"

	"go.uber.org/zap"
)

// sweepResult 懒过期检查结果
type sweepResult struct {
	order   *order.MerchantOrder
	expired bool // 本次检查发生了自动取消
}

// sweepOrder 懒过期检查：独立工作单元，过期时回补库存并提交自动取消。
// check 在任何修改之前执行（权限校验），返回错误时不做修改。
func (s *ApplicationService) sweepOrder(ctx context.Context, actor shared.Actor, orderID string, check func(*order.MerchantOrder) error) (sweepResult, error) {
	now := s.clock.Now()
	var (
		result  sweepResult
		restock inventory.Restock
	)
	err := s.execute(ctx, func(ctx context.Context, uow shared.UnitOfWork) error {
		result = sweepResult{}
		restock = inventory.Restock{}

		o, err := s.loadOrder(ctx, actor, orderID)
		if err != nil {
			return err
		}
		if check != nil {
			if err := check(o); err != nil {
				return err
			}
		}
		result.order = o
		if !o.ExpireIfDue(now) {
			return nil
		}
		result.expired = true

		if restock, err = s.ledger.Release(ctx, o.ID(), now); err != nil {
			return err
		}
		if err := s.orders.Save(ctx, o); err != nil {
			return err
		}
		uow.RegisterDirty(o)
		return nil
	})
	if err != nil {
		return sweepResult{}, err
	}

	if result.expired {
		s.recordAutoCancel(ctx, result.order, restock)
	}
	return result, nil
}

func (s *ApplicationService) recordAutoCancel(ctx context.Context, o *order.MerchantOrder, restock inventory.Restock) {
	s.log.Info("unpaid order cancelled automatically",
		zap.String("merchant_order_id", o.ID()),
		zap.Time("cancel_deadline", o.CancelDeadline()))
	s.audit.Record(ctx, shared.SystemActor, audit.ActionOrderAutoCancelUnpaid, audit.TargetMerchantOrder, o.ID(), map[string]any{
		"deadline":        o.CancelDeadline(),
		"restored_units":  restock.Total(),
		"order_group_id":  o.GroupID(),
		"previous_status": string(order.StatusCreated),
	})
	s.reportRestock(ctx, shared.SystemActor, o.ID(), restock)
}

// expiryRace 把已提交的自动取消转换为调用方错误
func expiryRace(orders ...*order.MerchantOrder) error {
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID())
	}
	return shared.NewExpiryRaceError(string(order.StatusCancelledByUser), ids...)
}

// SweepExpired 主动扫描已过期的未支付订单（worker 定时调用），返回本轮自动取消的数量
func (s *ApplicationService) SweepExpired(ctx context.Context, limit int) (int, error) {
	now := s.clock.Now()
	candidates, _, err := s.orders.Find(ctx, order.ExpiredUnpaid(now), order.Page{Number: 1, Size: limit})
	if err != nil {
		return 0, err
	}

	cancelled := 0
	for _, candidate := range candidates {
		if ctx.Err() != nil {
			return cancelled, ctx.Err()
		}
		res, err := s.sweepOrder(ctx, shared.SystemActor, candidate.ID(), nil)
		if err != nil {
			s.log.Warn("expiry sweep failed",
				zap.String("merchant_order_id", candidate.ID()),
				zap.Error(err))
			continue
		}
		if res.expired {
			cancelled++
		}
	}
	return cancelled, nil
}
