package order

import (
	"context"

	"marketplace/domain/order"
	"marketplace/domain/shared"
)

// GetOrder 订单详情：顾客本人、所属商家或管理员可见。
// 触达 CREATED 订单时先执行懒过期检查。顾客只能看到自己发起的售后申请。
func (s *ApplicationService) GetOrder(ctx context.Context, actor shared.Actor, orderID string) (*OrderResponse, error) {
	if err := actor.RequireRole(shared.RoleCustomer, shared.RoleMerchant, shared.RoleAdmin); err != nil {
		return nil, err
	}
	swept, err := s.sweepOrder(ctx, actor, orderID, func(o *order.MerchantOrder) error {
		return authorizeViewer(actor, o)
	})
	if err != nil {
		return nil, err
	}
	o := swept.order

	pending, err := s.cancelRequests.PendingOrderIDs(ctx, []string{o.ID()})
	if err != nil {
		return nil, err
	}
	afterSales, err := s.afterSales.FindByOrderID(ctx, o.ID())
	if err != nil {
		return nil, err
	}

	resp := toOrderResponse(o, s.clock.Now(), pending[o.ID()])
	for _, r := range afterSales {
		if actor.IsCustomer() && r.UserID() != actor.ID {
			continue
		}
		resp.AfterSales = append(resp.AfterSales, toAfterSaleResponse(r))
	}
	return &resp, nil
}

// ListOrders 订单列表：顾客看自己的，商家看自己店铺的，管理员看全部。软删除的订单不出现在列表中。
func (s *ApplicationService) ListOrders(ctx context.Context, actor shared.Actor, q ListOrdersQuery) (*OrderListResponse, error) {
	if err := actor.RequireRole(shared.RoleCustomer, shared.RoleMerchant, shared.RoleAdmin); err != nil {
		return nil, err
	}

	var spec order.Specification
	switch {
	case actor.IsCustomer():
		spec = order.ByCustomerSpecification{CustomerID: actor.ID}
	case actor.IsMerchant():
		spec = order.ByMerchantSpecification{MerchantID: actor.ID}
	default:
		spec = order.AllSpecification{}
	}
	if q.Status != "" {
		status, ok := order.ParseStatus(q.Status)
		if !ok {
			return nil, shared.NewValidationError("merchant_order", "status", "unknown order status "+q.Status)
		}
		spec = shared.And[*order.MerchantOrder](spec, order.ByStatusSpecification{Status: status})
	}

	page := order.Page{Number: q.Page, Size: q.Size}.Normalize()
	orders, total, err := s.orders.Find(ctx, order.Visible(spec), page)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(orders))
	for i, o := range orders {
		ids[i] = o.ID()
	}
	pending, err := s.cancelRequests.PendingOrderIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	resp := &OrderListResponse{
		Items: make([]OrderResponse, 0, len(orders)),
		Total: total,
		Page:  page.Number,
		Size:  page.Size,
	}
	for _, o := range orders {
		resp.Items = append(resp.Items, toOrderResponse(o, now, pending[o.ID()]))
	}
	return resp, nil
}
