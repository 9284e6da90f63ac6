package order

import (
	"context"
	"time"

	"marketplace/domain/aftersale"
	"marketplace/domain/audit"
	"marketplace/domain/inventory"
	"marketplace/domain/order"
	"marketplace/domain/shared"
)

// CreateAfterSale 顾客为订单项发起售后：订单 COMPLETED/AFTER_SALE，订单项无其他未结束申请
func (s *ApplicationService) CreateAfterSale(ctx context.Context, actor shared.Actor, orderID string, req CreateAfterSaleRequest) (*AfterSaleResponse, error) {
	if err := actor.RequireRole(shared.RoleCustomer); err != nil {
		return nil, err
	}
	typ, ok := aftersale.ParseType(req.Type)
	if !ok {
		return nil, shared.NewValidationError("after_sale", "type", "unknown after-sale type "+req.Type)
	}

	now := s.clock.Now()
	var resp AfterSaleResponse
	err := s.execute(ctx, func(ctx context.Context, uow shared.UnitOfWork) error {
		o, err := s.loadOrder(ctx, actor, orderID)
		if err != nil {
			return err
		}
		if err := authorizeCustomer(actor, o); err != nil {
			return err
		}
		open, err := s.afterSales.HasOpenForItem(ctx, req.ItemID)
		if err != nil {
			return err
		}
		if open {
			return shared.NewDomainError(aftersale.ErrOpenRequestExists, "after_sale", "order item "+req.ItemID+" already has an open after-sale request")
		}

		item, err := o.OpenAfterSale(req.ItemID, typ.PendingItemStatus(), now)
		if err != nil {
			return err
		}
		r := aftersale.NewRequest(s.afterSales.NextIdentity(), o.ID(), item.ID(), actor.ID, o.MerchantID(), typ, req.Reason, now)
		if err := s.afterSales.Save(ctx, r); err != nil {
			return err
		}
		uow.RegisterNew(r)
		if err := s.orders.Save(ctx, o); err != nil {
			return err
		}
		uow.RegisterDirty(o)

		resp = toAfterSaleResponse(r)
		resp.ItemStatus = string(item.Status())
		resp.OrderStatus = string(o.Status())
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor, audit.ActionAfterSaleCreate, audit.TargetAfterSaleRequest, resp.ID, map[string]any{
		"merchant_order_id": orderID,
		"order_item_id":     resp.OrderItemID,
		"type":              resp.Type,
		"reason":            resp.Reason,
	})
	return &resp, nil
}

// ReturnShip 顾客寄回退货商品
func (s *ApplicationService) ReturnShip(ctx context.Context, actor shared.Actor, afterSaleID string, req ReturnShipRequest) (*AfterSaleResponse, error) {
	if err := actor.RequireRole(shared.RoleCustomer); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	var resp AfterSaleResponse
	err := s.execute(ctx, func(ctx context.Context, uow shared.UnitOfWork) error {
		r, err := s.afterSales.FindByID(ctx, afterSaleID)
		if err != nil {
			return err
		}
		if r.UserID() != actor.ID {
			return shared.NewForbiddenError("after_sale", "after-sale request "+afterSaleID+" does not belong to the customer")
		}
		if err := r.ShipReturn(req.CarrierName, req.TrackingNo, now); err != nil {
			return err
		}
		if err := s.afterSales.Save(ctx, r); err != nil {
			return err
		}
		uow.RegisterDirty(r)
		resp = toAfterSaleResponse(r)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor, audit.ActionAfterSaleReturnShipped, audit.TargetAfterSaleRequest, afterSaleID, map[string]any{
		"carrier_name": resp.Return.CarrierName,
		"tracking_no":  resp.Return.TrackingNo,
	})
	return &resp, nil
}

// HandleAfterSale 商家审核售后（APPROVE / REJECT）
func (s *ApplicationService) HandleAfterSale(ctx context.Context, actor shared.Actor, afterSaleID string, req HandleAfterSaleRequest) (*AfterSaleResponse, error) {
	if err := actor.RequireRole(shared.RoleMerchant, shared.RoleAdmin); err != nil {
		return nil, err
	}
	action, ok := aftersale.ParseAction(req.Action)
	if !ok || action.IsAdmin() {
		return nil, shared.NewValidationError("after_sale", "action", "action must be APPROVE or REJECT")
	}
	return s.decideAfterSale(ctx, actor, afterSaleID, action, req.Note, audit.ActionAfterSaleMerchantDecision)
}

// AdminHandleAfterSale 管理员审核或申诉升级；APPROVE/REJECT 按管理员动作处理
func (s *ApplicationService) AdminHandleAfterSale(ctx context.Context, actor shared.Actor, afterSaleID string, req HandleAfterSaleRequest) (*AfterSaleResponse, error) {
	if err := actor.RequireRole(shared.RoleAdmin); err != nil {
		return nil, err
	}
	action, ok := aftersale.ParseAction(req.Action)
	if !ok {
		return nil, shared.NewValidationError("after_sale", "action", "action must be ADMIN_APPROVE or ADMIN_REJECT")
	}
	switch action {
	case aftersale.ActionApprove:
		action = aftersale.ActionAdminApprove
	case aftersale.ActionReject:
		action = aftersale.ActionAdminReject
	}
	return s.decideAfterSale(ctx, actor, afterSaleID, action, req.Note, audit.ActionAfterSaleAdminDecision)
}

func (s *ApplicationService) decideAfterSale(ctx context.Context, actor shared.Actor, afterSaleID string, action aftersale.Action, note string, auditAction audit.Action) (*AfterSaleResponse, error) {
	now := s.clock.Now()
	var (
		resp     AfterSaleResponse
		decision aftersale.Decision
	)
	err := s.execute(ctx, func(ctx context.Context, uow shared.UnitOfWork) error {
		r, err := s.afterSales.FindByID(ctx, afterSaleID)
		if err != nil {
			return err
		}
		if err := authorizeOperator(actor, r.MerchantID(), "after_sale", afterSaleID); err != nil {
			return err
		}
		// 申诉升级重新打开订单项前，确认它没有其他未结束申请
		if action.IsAdmin() && r.Status() == aftersale.StatusMerchantRejected {
			open, err := s.afterSales.HasOpenForItem(ctx, r.OrderItemID())
			if err != nil {
				return err
			}
			if open {
				return shared.NewDomainError(aftersale.ErrOpenRequestExists, "after_sale", "order item "+r.OrderItemID()+" already has an open after-sale request")
			}
		}
		if decision, err = r.Decide(action, note, now); err != nil {
			return err
		}

		o, err := s.orders.FindByID(ctx, r.MerchantOrderID())
		if err != nil {
			return err
		}
		if err := o.SetItemStatus(r.OrderItemID(), decision.ItemStatus, now); err != nil {
			return err
		}
		if err := s.afterSales.Save(ctx, r); err != nil {
			return err
		}
		uow.RegisterDirty(r)

		refunded, err := s.settleAfterSales(ctx, uow, o, now)
		if err != nil {
			return err
		}
		resp = toAfterSaleResponse(r)
		resp.ItemStatus = string(decision.ItemStatus)
		resp.OrderStatus = string(o.Status())
		resp.PaymentRefunded = refunded
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor, auditAction, audit.TargetAfterSaleRequest, afterSaleID, map[string]any{
		"action":            string(action),
		"note":              resp.ResolutionNote,
		"status_before":     string(decision.StatusBefore),
		"status_after":      string(decision.StatusAfter),
		"item_status":       resp.ItemStatus,
		"merchant_order_id": resp.MerchantOrderID,
		"payment_refunded":  resp.PaymentRefunded,
	})
	return &resp, nil
}

// ReceiveReturn 商家确认收到退货：关闭申请、订单项 RETURNED、按台账回补库存
func (s *ApplicationService) ReceiveReturn(ctx context.Context, actor shared.Actor, afterSaleID string) (*AfterSaleResponse, error) {
	if err := actor.RequireRole(shared.RoleMerchant); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	var (
		resp    AfterSaleResponse
		restock inventory.Restock
	)
	err := s.execute(ctx, func(ctx context.Context, uow shared.UnitOfWork) error {
		restock = inventory.Restock{}

		r, err := s.afterSales.FindByID(ctx, afterSaleID)
		if err != nil {
			return err
		}
		if err := authorizeOperator(actor, r.MerchantID(), "after_sale", afterSaleID); err != nil {
			return err
		}
		if err := r.ReceiveReturn(now); err != nil {
			return err
		}

		o, err := s.orders.FindByID(ctx, r.MerchantOrderID())
		if err != nil {
			return err
		}
		item := o.Item(r.OrderItemID())
		if item == nil {
			return order.NewItemNotFoundError(o.ID(), r.OrderItemID())
		}
		if err := o.SetItemStatus(item.ID(), order.ItemStatusReturned, now); err != nil {
			return err
		}
		restock, err = s.ledger.ReturnItem(ctx, o.ID(), inventory.ReserveLine{
			OrderItemID: item.ID(),
			ProductID:   item.ProductID(),
			Quantity:    item.Quantity(),
		}, now)
		if err != nil {
			return err
		}
		if err := s.afterSales.Save(ctx, r); err != nil {
			return err
		}
		uow.RegisterDirty(r)

		refunded, err := s.settleAfterSales(ctx, uow, o, now)
		if err != nil {
			return err
		}
		resp = toAfterSaleResponse(r)
		resp.ItemStatus = string(order.ItemStatusReturned)
		resp.OrderStatus = string(o.Status())
		resp.PaymentRefunded = refunded
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor, audit.ActionAfterSaleReturnReceived, audit.TargetAfterSaleRequest, afterSaleID, map[string]any{
		"merchant_order_id": resp.MerchantOrderID,
		"order_item_id":     resp.OrderItemID,
		"restored_units":    restock.Total(),
		"payment_refunded":  resp.PaymentRefunded,
	})
	s.reportRestock(ctx, actor, resp.MerchantOrderID, restock)
	return &resp, nil
}

// CompleteExchange 换货完成流程未定义，始终返回 Unsupported
func (s *ApplicationService) CompleteExchange(ctx context.Context, actor shared.Actor, afterSaleID string) (*AfterSaleResponse, error) {
	if err := actor.RequireRole(shared.RoleMerchant); err != nil {
		return nil, err
	}
	r, err := s.afterSales.FindByID(ctx, afterSaleID)
	if err != nil {
		return nil, err
	}
	if err := authorizeOperator(actor, r.MerchantID(), "after_sale", afterSaleID); err != nil {
		return nil, err
	}
	return nil, r.CompleteExchange()
}

// settleAfterSales 每次售后决定后重新计算：全部订单项退款/退货时流水 REFUNDED；
// 存在未结束申请时订单 AFTER_SALE，否则 AFTER_SALE_ENDED
func (s *ApplicationService) settleAfterSales(ctx context.Context, uow shared.UnitOfWork, o *order.MerchantOrder, now time.Time) (bool, error) {
	refunded, err := o.RefundIfFullyReturned(now)
	if err != nil {
		return false, err
	}
	hasOpen, err := s.afterSales.HasOpenForOrder(ctx, o.ID())
	if err != nil {
		return false, err
	}
	o.SettleAfterSale(hasOpen, now)
	if err := s.orders.Save(ctx, o); err != nil {
		return false, err
	}
	uow.RegisterDirty(o)
	return refunded, nil
}
