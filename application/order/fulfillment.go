package order

import (
	"context"

	"marketplace/domain/audit"
	"marketplace/domain/order"
	"marketplace/domain/shared"
)

// ShipOrder 商家发货：PAID -> SHIPPED，台账行标记为已出库
func (s *ApplicationService) ShipOrder(ctx context.Context, actor shared.Actor, orderID string, req ShipRequest) (*OrderResponse, error) {
	if err := actor.RequireRole(shared.RoleMerchant, shared.RoleAdmin); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	var resp OrderResponse
	err := s.execute(ctx, func(ctx context.Context, uow shared.UnitOfWork) error {
		o, err := s.loadOrder(ctx, actor, orderID)
		if err != nil {
			return err
		}
		if err := authorizeOperator(actor, o.MerchantID(), "merchant_order", orderID); err != nil {
			return err
		}
		err = o.Ship(order.ShipInput{
			ShipmentID:  s.orders.NextIdentity(),
			CarrierName: req.CarrierName,
			TrackingNo:  req.TrackingNo,
			Events:      toShipmentEvents(req.Events),
		}, now)
		if err != nil {
			return err
		}
		if err := s.ledger.Dispatch(ctx, o.ID(), now); err != nil {
			return err
		}
		if err := s.orders.Save(ctx, o); err != nil {
			return err
		}
		uow.RegisterDirty(o)
		resp = toOrderResponse(o, now, false)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor, audit.ActionOrderShip, audit.TargetMerchantOrder, orderID, map[string]any{
		"carrier_name": resp.Shipment.CarrierName,
		"tracking_no":  resp.Shipment.TrackingNo,
		"events":       len(req.Events),
	})
	return &resp, nil
}

// UpdateShippingStatus 更新物流状态；DELIVERED 时订单进入 DELIVERED
func (s *ApplicationService) UpdateShippingStatus(ctx context.Context, actor shared.Actor, orderID string, req ShippingStatusRequest) (*OrderResponse, error) {
	if err := actor.RequireRole(shared.RoleMerchant, shared.RoleAdmin); err != nil {
		return nil, err
	}
	status, ok := order.ParseShippingStatus(req.Status)
	if !ok {
		return nil, shared.NewValidationError("shipment", "status", "unknown shipping status "+req.Status)
	}

	now := s.clock.Now()
	var resp OrderResponse
	err := s.execute(ctx, func(ctx context.Context, uow shared.UnitOfWork) error {
		o, err := s.loadOrder(ctx, actor, orderID)
		if err != nil {
			return err
		}
		if err := authorizeOperator(actor, o.MerchantID(), "merchant_order", orderID); err != nil {
			return err
		}
		if err := o.UpdateShippingStatus(status, now); err != nil {
			return err
		}
		if err := s.orders.Save(ctx, o); err != nil {
			return err
		}
		uow.RegisterDirty(o)
		resp = toOrderResponse(o, now, false)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor, audit.ActionOrderShippingStatus, audit.TargetMerchantOrder, orderID, map[string]any{
		"shipping_status": string(status),
		"order_status":    resp.Status,
	})
	return &resp, nil
}

// ConfirmReceipt 顾客确认收货：DELIVERED -> COMPLETED
func (s *ApplicationService) ConfirmReceipt(ctx context.Context, actor shared.Actor, orderID string) (*OrderResponse, error) {
	if err := actor.RequireRole(shared.RoleCustomer); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	var resp OrderResponse
	err := s.execute(ctx, func(ctx context.Context, uow shared.UnitOfWork) error {
		o, err := s.loadOrder(ctx, actor, orderID)
		if err != nil {
			return err
		}
		if err := authorizeCustomer(actor, o); err != nil {
			return err
		}
		if err := o.ConfirmReceipt(now); err != nil {
			return err
		}
		if err := s.orders.Save(ctx, o); err != nil {
			return err
		}
		uow.RegisterDirty(o)
		resp = toOrderResponse(o, now, false)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor, audit.ActionOrderConfirmReceipt, audit.TargetMerchantOrder, orderID, nil)
	return &resp, nil
}
