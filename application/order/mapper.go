package order

import (
	"time"

	"marketplace/domain/aftersale"
	"marketplace/domain/cancellation"
	"marketplace/domain/order"
	"marketplace/domain/payment"
	"marketplace/domain/shared"
)

func toMoney(m shared.Money) MoneyResponse {
	return MoneyResponse{Amount: m.Amount(), Currency: m.Currency()}
}

func toAddress(req AddressRequest) order.ShippingAddress {
	return order.ShippingAddress{
		RecipientName: req.RecipientName,
		Phone:         req.Phone,
		Province:      req.Province,
		City:          req.City,
		District:      req.District,
		DetailAddress: req.DetailAddress,
	}
}

func toShipmentEvents(events []ShipmentEventRequest) []order.ShipmentEvent {
	out := make([]order.ShipmentEvent, len(events))
	for i, e := range events {
		out[i] = order.ShipmentEvent{Time: e.Time, Location: e.Location, Message: e.Message}
	}
	return out
}

func toCheckoutResponse(group *order.OrderGroup, orders []*order.MerchantOrder) *CheckoutResponse {
	resp := &CheckoutResponse{
		OrderGroupID: group.ID(),
		TotalAmount:  toMoney(group.TotalAmount()),
		Orders:       make([]CheckoutOrderResponse, len(orders)),
	}
	for i, o := range orders {
		resp.Orders[i] = CheckoutOrderResponse{
			MerchantOrderID: o.ID(),
			MerchantID:      o.MerchantID(),
			Subtotal:        toMoney(o.Subtotal()),
			CancelDeadline:  o.CancelDeadline(),
		}
	}
	return resp
}

func toCancelWindowResponse(o *order.MerchantOrder, w order.CancelWindow, display order.DisplayStatus) *CancelWindowResponse {
	return &CancelWindowResponse{
		OrderID:          o.ID(),
		RemainingSeconds: w.RemainingSeconds(),
		WindowKind:       string(w.Kind),
		WindowDeadline:   w.Deadline,
		CancelDeadline:   o.CancelDeadline(),
		AutoCancelled:    o.WasAutoCancelled(),
		Status:           string(o.Status()),
		DisplayStatus:    string(display),
	}
}

func toPaymentResponse(o *order.MerchantOrder, tx *payment.Transaction) PaymentResponse {
	return PaymentResponse{
		OrderID:         o.ID(),
		PaymentID:       tx.ID(),
		PaymentStatus:   string(tx.Status()),
		Method:          string(tx.Method()),
		ProviderTradeNo: tx.ProviderTradeNo(),
		Amount:          toMoney(tx.Amount()),
		OrderStatus:     string(o.Status()),
	}
}

func toCancelRequestResponse(r *cancellation.Request) *CancelRequestResponse {
	return &CancelRequestResponse{
		ID:              r.ID(),
		MerchantOrderID: r.MerchantOrderID(),
		MerchantID:      r.MerchantID(),
		UserID:          r.UserID(),
		Status:          string(r.Status()),
		Reason:          r.Reason(),
		MerchantNote:    r.MerchantNote(),
		DecidedBy:       r.DecidedBy(),
		DecidedAt:       r.DecidedAt(),
		CreatedAt:       r.CreatedAt(),
	}
}

func toAfterSaleResponse(r *aftersale.Request) AfterSaleResponse {
	rs := r.ReturnShipment()
	return AfterSaleResponse{
		ID:              r.ID(),
		MerchantOrderID: r.MerchantOrderID(),
		OrderItemID:     r.OrderItemID(),
		UserID:          r.UserID(),
		MerchantID:      r.MerchantID(),
		Type:            string(r.Type()),
		Status:          string(r.Status()),
		Reason:          r.Reason(),
		ResolutionNote:  r.ResolutionNote(),
		Return: ReturnShipmentResponse{
			CarrierName: rs.CarrierName,
			TrackingNo:  rs.TrackingNo,
			Status:      string(rs.Status),
			ShippedAt:   rs.ShippedAt,
			ReceivedAt:  rs.ReceivedAt,
		},
		CreatedAt: r.CreatedAt(),
		UpdatedAt: r.UpdatedAt(),
	}
}

// toOrderResponse 详情和列表共用；展示状态由调用方统一推导后传入
func toOrderResponse(o *order.MerchantOrder, now time.Time, hasPendingCancel bool) OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items()))
	for _, item := range o.Items() {
		items = append(items, OrderItemResponse{
			ID:           item.ID(),
			ProductID:    item.ProductID(),
			ProductTitle: item.ProductTitle(),
			Quantity:     item.Quantity(),
			UnitPrice:    toMoney(item.UnitPrice()),
			Subtotal:     toMoney(item.Subtotal()),
			Status:       string(item.Status()),
		})
	}

	addr := o.ShippingAddress()
	resp := OrderResponse{
		ID:             o.ID(),
		OrderGroupID:   o.GroupID(),
		CustomerID:     o.CustomerID(),
		MerchantID:     o.MerchantID(),
		Status:         string(o.Status()),
		DisplayStatus:  string(o.DisplayStatus(now, hasPendingCancel)),
		Subtotal:       toMoney(o.Subtotal()),
		CancelDeadline: o.CancelDeadline(),
		AutoCancelled:  o.WasAutoCancelled(),
		Items:          items,
		ShippingAddress: AddressResponse{
			RecipientName: addr.RecipientName,
			Phone:         addr.Phone,
			Province:      addr.Province,
			City:          addr.City,
			District:      addr.District,
			DetailAddress: addr.DetailAddress,
			FullAddress:   addr.FullAddress(),
		},
		Deleted:       o.IsDeleted(),
		DeletedReason: o.DeletedReason(),
		CreatedAt:     o.CreatedAt(),
		UpdatedAt:     o.UpdatedAt(),
	}

	if tx := o.Payment(); tx != nil {
		resp.Payment = &PaymentRecordResponse{
			ID:              tx.ID(),
			Status:          string(tx.Status()),
			Method:          string(tx.Method()),
			Amount:          toMoney(tx.Amount()),
			ProviderTradeNo: tx.ProviderTradeNo(),
			CreatedAt:       tx.CreatedAt(),
			UpdatedAt:       tx.UpdatedAt(),
		}
	}
	if sh := o.Shipment(); sh != nil {
		events := make([]ShipmentEventRequest, 0, len(sh.Events()))
		for _, e := range sh.Events() {
			events = append(events, ShipmentEventRequest{Time: e.Time, Location: e.Location, Message: e.Message})
		}
		resp.Shipment = &ShipmentResponse{
			ID:          sh.ID(),
			CarrierName: sh.CarrierName(),
			TrackingNo:  sh.TrackingNo(),
			Status:      string(sh.Status()),
			ShippedAt:   sh.ShippedAt(),
			DeliveredAt: sh.DeliveredAt(),
			Events:      events,
		}
	}
	return resp
}
