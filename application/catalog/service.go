// Package catalog 应用层 - 商品与购物车
//
// 只提供驱动订单核心所需的最小能力：商家上架商品、查询商品、顾客维护购物车。
// 购物车由结账在同一事务内读取并清空。
package catalog

import (
	"context"

	appaudit "marketplace/application/audit"
	"marketplace/domain/audit"
	"marketplace/domain/cart"
	"marketplace/domain/inventory"
	"marketplace/domain/shared"

	"go.uber.org/zap"
)

// Deps 应用服务依赖
type Deps struct {
	UnitOfWork shared.UnitOfWorkFactory
	Inventory  inventory.Repository
	Cart       cart.Repository
	Audit      *appaudit.Recorder
	Clock      shared.Clock
	Logger     *zap.Logger
}

// ApplicationService 商品与购物车应用服务
type ApplicationService struct {
	uowFactory shared.UnitOfWorkFactory
	inventory  inventory.Repository
	cart       cart.Repository
	audit      *appaudit.Recorder
	clock      shared.Clock
	log        *zap.Logger
}

// NewApplicationService 创建应用服务
func NewApplicationService(deps Deps) *ApplicationService {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &ApplicationService{
		uowFactory: deps.UnitOfWork,
		inventory:  deps.Inventory,
		cart:       deps.Cart,
		audit:      deps.Audit,
		clock:      deps.Clock,
		log:        log.Named("catalog"),
	}
}

// RegisterProduct 商家上架商品
func (s *ApplicationService) RegisterProduct(ctx context.Context, actor shared.Actor, req RegisterProductRequest) (*ProductResponse, error) {
	if err := actor.RequireRole(shared.RoleMerchant); err != nil {
		return nil, err
	}
	currency := req.Currency
	if currency == "" {
		currency = shared.DefaultCurrency
	}

	now := s.clock.Now()
	var p *inventory.Product
	uow := s.uowFactory.New()
	err := uow.Execute(ctx, func(ctx context.Context) error {
		var err error
		p, err = inventory.NewProduct(s.inventory.NextIdentity(), actor.ID, req.Title, *shared.NewMoney(req.Price, currency), req.Stock, now)
		if err != nil {
			return err
		}
		if err := s.inventory.SaveProduct(ctx, p); err != nil {
			return err
		}
		uow.RegisterNew(p)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor, audit.ActionProductCreate, audit.TargetProduct, p.ID(), map[string]any{
		"title": p.Title(),
		"price": p.Price().Amount(),
		"stock": p.Stock(),
	})
	s.log.Info("product registered", zap.String("product_id", p.ID()), zap.String("merchant_id", actor.ID))
	return toProductResponse(p), nil
}

// GetProduct 查询商品
func (s *ApplicationService) GetProduct(ctx context.Context, productID string) (*ProductResponse, error) {
	p, err := s.inventory.FindProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	return toProductResponse(p), nil
}

// SetCartItem 设置购物车某商品的数量；0 表示移除
func (s *ApplicationService) SetCartItem(ctx context.Context, actor shared.Actor, productID string, req SetCartItemRequest) (*CartResponse, error) {
	if err := actor.RequireRole(shared.RoleCustomer); err != nil {
		return nil, err
	}
	if req.Quantity < 0 {
		return nil, shared.NewValidationError("cart", "quantity", "quantity cannot be negative")
	}
	if req.Quantity > 0 {
		if _, err := s.inventory.FindProductByID(ctx, productID); err != nil {
			return nil, err
		}
	}
	line := cart.Line{CustomerID: actor.ID, ProductID: productID, Quantity: req.Quantity, UpdatedAt: s.clock.Now()}
	if err := s.cart.Set(ctx, line); err != nil {
		return nil, err
	}
	return s.ViewCart(ctx, actor)
}

// ViewCart 查看购物车，附带商品当前价格；已下架的商品标记为不可用
func (s *ApplicationService) ViewCart(ctx context.Context, actor shared.Actor) (*CartResponse, error) {
	if err := actor.RequireRole(shared.RoleCustomer); err != nil {
		return nil, err
	}
	lines, err := s.cart.Lines(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(lines))
	for i, l := range lines {
		ids[i] = l.ProductID
	}
	products, err := s.inventory.FindProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	resp := &CartResponse{CustomerID: actor.ID, Lines: make([]CartLineResponse, 0, len(lines))}
	for _, l := range lines {
		line := CartLineResponse{ProductID: l.ProductID, Quantity: l.Quantity, UpdatedAt: l.UpdatedAt}
		if p, ok := products[l.ProductID]; ok {
			price := toMoney(p.Price())
			line.Title = p.Title()
			line.MerchantID = p.MerchantID()
			line.UnitPrice = &price
			line.Available = p.Stock() >= l.Quantity
		}
		resp.Lines = append(resp.Lines, line)
	}
	return resp, nil
}

func toMoney(m shared.Money) MoneyResponse {
	return MoneyResponse{Amount: m.Amount(), Currency: m.Currency()}
}

func toProductResponse(p *inventory.Product) *ProductResponse {
	return &ProductResponse{
		ID:         p.ID(),
		MerchantID: p.MerchantID(),
		Title:      p.Title(),
		Price:      toMoney(p.Price()),
		Stock:      p.Stock(),
		CreatedAt:  p.CreatedAt(),
		UpdatedAt:  p.UpdatedAt(),
	}
}
