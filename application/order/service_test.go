package order

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	appaudit "marketplace/application/audit"
	"marketplace/domain/audit"
	"marketplace/domain/cart"
	"marketplace/domain/inventory"
	"marketplace/domain/shared"
	"marketplace/infrastructure/cache"
	infrapayment "marketplace/infrastructure/payment"
	"marketplace/infrastructure/persistence/mocks"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var t0 = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

var (
	customer  = shared.Actor{ID: "c1", Role: shared.RoleCustomer}
	stranger  = shared.Actor{ID: "c2", Role: shared.RoleCustomer}
	merchantA = shared.Actor{ID: "mA", Role: shared.RoleMerchant}
	merchantB = shared.Actor{ID: "mB", Role: shared.RoleMerchant}
	admin     = shared.Actor{ID: "admin", Role: shared.RoleAdmin}
)

// testClock 可推进的时钟
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	store   *mocks.Store
	clock   *testClock
	gateway *infrapayment.SimulatedGateway
	svc     *ApplicationService
}

func newFixture() *fixture {
	store := mocks.NewStore()
	clock := &testClock{now: t0}
	gateway := infrapayment.NewSimulatedGateway(nil)
	recorder := appaudit.NewRecorder(appaudit.RecorderDeps{
		Repository: mocks.NewMockAuditRepository(store),
		Clock:      clock.Now,
	})
	svc := NewApplicationService(Deps{
		UnitOfWork:     mocks.NewMockUnitOfWorkFactory(store),
		Orders:         mocks.NewMockOrderRepository(store),
		CancelRequests: mocks.NewMockCancelRequestRepository(store),
		AfterSales:     mocks.NewMockAfterSaleRepository(store),
		Inventory:      mocks.NewMockInventoryRepository(store),
		Cart:           mocks.NewMockCartRepository(store),
		Gateway:        gateway,
		Audit:          recorder,
		Idempotency:    cache.NewMemoryIdempotencyStore(time.Hour),
		Clock:          clock.Now,
		CancelWindow:   5 * time.Minute,
	})
	return &fixture{store: store, clock: clock, gateway: gateway, svc: svc}
}

func (f *fixture) seed(productID, merchantID string, price int64, stock int) {
	f.store.SeedProduct(inventory.ProductDTO{
		ID:         productID,
		MerchantID: merchantID,
		Title:      "product " + productID,
		Price:      *shared.NewMoney(price, shared.DefaultCurrency),
		Stock:      stock,
		CreatedAt:  t0,
		UpdatedAt:  t0,
	})
}

func (f *fixture) addToCart(customerID, productID string, qty int) {
	_ = mocks.NewMockCartRepository(f.store).Set(context.Background(), cart.Line{
		CustomerID: customerID,
		ProductID:  productID,
		Quantity:   qty,
		UpdatedAt:  f.clock.Now(),
	})
}

func (f *fixture) cartLines(customerID string) []cart.Line {
	lines, _ := mocks.NewMockCartRepository(f.store).Lines(context.Background(), customerID)
	return lines
}

func (f *fixture) auditActions() []audit.Action {
	var out []audit.Action
	for _, e := range f.store.AuditEntries() {
		out = append(out, e.Action)
	}
	return out
}

func testAddress() AddressRequest {
	return AddressRequest{
		RecipientName: "张三",
		Phone:         "13800000000",
		Province:      "浙江省",
		City:          "杭州市",
		District:      "西湖区",
		DetailAddress: "文三路 1 号",
	}
}

// placeOne 单商家单商品下单，返回子订单 ID
func (f *fixture) placeOne(productID string, qty int) (string, error) {
	f.addToCart(customer.ID, productID, qty)
	resp, err := f.svc.Checkout(context.Background(), customer, CheckoutRequest{Address: testAddress()})
	if err != nil {
		return "", err
	}
	if len(resp.Orders) != 1 {
		return "", fmt.Errorf("expected one merchant order, got %d", len(resp.Orders))
	}
	return resp.Orders[0].MerchantOrderID, nil
}

// completeOne 下单、支付、发货、签收、确认收货
func (f *fixture) completeOne(productID string, qty int) (string, error) {
	ctx := context.Background()
	orderID, err := f.placeOne(productID, qty)
	if err != nil {
		return "", err
	}
	if _, err := f.svc.Pay(ctx, customer, orderID, PayRequest{}); err != nil {
		return "", err
	}
	if _, err := f.svc.ShipOrder(ctx, merchantA, orderID, ShipRequest{CarrierName: "SF", TrackingNo: "SF100"}); err != nil {
		return "", err
	}
	if _, err := f.svc.UpdateShippingStatus(ctx, merchantA, orderID, ShippingStatusRequest{Status: "DELIVERED"}); err != nil {
		return "", err
	}
	if _, err := f.svc.ConfirmReceipt(ctx, customer, orderID); err != nil {
		return "", err
	}
	return orderID, nil
}
