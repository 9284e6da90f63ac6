package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"marketplace/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Details map[string]any  `json:"details"`
	Code    int             `json:"code"`
}

type client struct {
	t       *testing.T
	handler http.Handler
}

func (c client) do(method, path, actorID, role string, body any, headers ...string) (int, envelope) {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if actorID != "" {
		req.Header.Set("X-Actor-ID", actorID)
		req.Header.Set("X-Actor-Role", role)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)

	var env envelope
	require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func testConfig(window time.Duration) *config.Config {
	return &config.Config{
		App:      config.AppConfig{Name: "marketplace", Env: "test"},
		Database: config.DatabaseConfig{Type: "memory"},
		Order:    config.OrderConfig{CancelWindow: window},
		Redis:    config.RedisConfig{IdempotencyTTL: time.Hour},
		Worker:   config.WorkerConfig{Publisher: "logging"},
	}
}

func newClient(t *testing.T, window time.Duration) client {
	t.Helper()
	app, err := NewApp(testConfig(window))
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.container.Close() })
	return client{t: t, handler: app.Handler()}
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

type checkoutData struct {
	OrderGroupID string `json:"order_group_id"`
	Orders       []struct {
		MerchantOrderID string `json:"merchant_order_id"`
	} `json:"orders"`
}

func registerAndFill(t *testing.T, c client, stock, qty int) {
	t.Helper()
	code, env := c.do(http.MethodPost, "/api/v1/merchant/products", "m1", "MERCHANT", map[string]any{
		"title": "机械键盘", "price": 39900, "stock": stock,
	})
	require.Equal(t, http.StatusCreated, code)
	product := decode[struct {
		ID string `json:"id"`
	}](t, env.Data)

	code, _ = c.do(http.MethodPut, "/api/v1/cart/items/"+product.ID, "c1", "CUSTOMER", map[string]any{"quantity": qty})
	require.Equal(t, http.StatusOK, code)
}

var address = map[string]any{
	"address": map[string]any{
		"recipient_name": "张三",
		"phone":          "13800000000",
		"province":       "浙江省",
		"city":           "杭州市",
		"district":       "西湖区",
		"detail_address": "文三路 1 号",
	},
}

func TestHTTP_CheckoutPayCancel(t *testing.T) {
	c := newClient(t, 5*time.Minute)
	registerAndFill(t, c, 5, 2)

	code, env := c.do(http.MethodPost, "/api/v1/checkout", "c1", "CUSTOMER", address, "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusCreated, code)
	placed := decode[checkoutData](t, env.Data)
	require.Len(t, placed.Orders, 1)
	orderID := placed.Orders[0].MerchantOrderID

	code, env = c.do(http.MethodPost, "/api/v1/checkout", "c1", "CUSTOMER", address, "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, placed.OrderGroupID, decode[checkoutData](t, env.Data).OrderGroupID)

	code, env = c.do(http.MethodGet, "/api/v1/orders/"+orderID, "c2", "CUSTOMER", nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "FORBIDDEN", env.Error)

	code, _ = c.do(http.MethodGet, "/api/v1/orders/"+orderID, "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = c.do(http.MethodGet, "/api/v1/orders/"+orderID, "sweeper", "SYSTEM", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env = c.do(http.MethodPost, "/api/v1/orders/"+orderID+"/pay", "c1", "CUSTOMER", map[string]any{"method": "ALIPAY"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "PAID", decode[struct {
		OrderStatus string `json:"order_status"`
	}](t, env.Data).OrderStatus)

	code, env = c.do(http.MethodPost, "/api/v1/orders/"+orderID+"/cancel", "c1", "CUSTOMER", nil)
	require.Equal(t, http.StatusOK, code)
	cancelled := decode[struct {
		NewStatus string `json:"new_status"`
		Refunded  bool   `json:"refunded"`
	}](t, env.Data)
	assert.Equal(t, "CANCELLED_BY_USER", cancelled.NewStatus)
	assert.True(t, cancelled.Refunded)

	code, env = c.do(http.MethodPost, "/api/v1/orders/"+orderID+"/cancel", "c1", "CUSTOMER", nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "STATE_CONFLICT", env.Error)
}

func TestHTTP_InsufficientStock(t *testing.T) {
	c := newClient(t, 5*time.Minute)
	registerAndFill(t, c, 1, 3)

	code, env := c.do(http.MethodPost, "/api/v1/checkout", "c1", "CUSTOMER", address)
	require.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error)
	shortfalls, ok := env.Details["shortfalls"].([]any)
	require.True(t, ok)
	assert.Len(t, shortfalls, 1)
}

func TestHTTP_ExpiredOrderReportsAutoCancel(t *testing.T) {
	c := newClient(t, time.Nanosecond)
	registerAndFill(t, c, 5, 1)

	code, env := c.do(http.MethodPost, "/api/v1/checkout", "c1", "CUSTOMER", address)
	require.Equal(t, http.StatusCreated, code)
	orderID := decode[checkoutData](t, env.Data).Orders[0].MerchantOrderID
	time.Sleep(time.Millisecond)

	code, env = c.do(http.MethodPost, "/api/v1/orders/"+orderID+"/pay", "c1", "CUSTOMER", nil)
	require.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "ORDER_EXPIRED", env.Error)
	assert.Equal(t, true, env.Details["auto_cancelled"])
	assert.Equal(t, "CANCELLED_BY_USER", env.Details["status"])

	code, env = c.do(http.MethodGet, "/api/v1/orders/"+orderID, "c1", "CUSTOMER", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "EXPIRED", decode[struct {
		DisplayStatus string `json:"display_status"`
	}](t, env.Data).DisplayStatus)
}

func TestHTTP_HealthAndValidation(t *testing.T) {
	c := newClient(t, 5*time.Minute)

	code, _ := c.do(http.MethodGet, "/api/v1/health", "", "", nil)
	assert.Equal(t, http.StatusOK, code)

	code, env := c.do(http.MethodPost, "/api/v1/checkout", "c1", "CUSTOMER", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, env.Success)

	code, env = c.do(http.MethodPatch, "/api/v1/admin/orders/nope/status", "m1", "MERCHANT", map[string]any{"status": "COMPLETED"})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "FORBIDDEN", env.Error)
}
