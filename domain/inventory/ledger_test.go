package inventory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"marketplace/domain/inventory"
	"marketplace/domain/shared"
	"marketplace/infrastructure/persistence/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func seeded(t *testing.T, stock map[string]int) (*mocks.Store, *inventory.Ledger) {
	t.Helper()
	store := mocks.NewStore()
	for id, n := range stock {
		store.SeedProduct(inventory.ProductDTO{
			ID:         id,
			MerchantID: "m1",
			Title:      "product " + id,
			Price:      *shared.NewMoney(100, shared.DefaultCurrency),
			Stock:      n,
		})
	}
	return store, inventory.NewLedger(mocks.NewMockInventoryRepository(store))
}

func TestCheckAvailability_MergesLinesAndReportsAllShortfalls(t *testing.T) {
	_, ledger := seeded(t, map[string]int{"p1": 3, "p2": 1, "p3": 10})

	_, err := ledger.CheckAvailability(context.Background(), []inventory.Line{
		{ProductID: "p1", Quantity: 2},
		{ProductID: "p2", Quantity: 2},
		{ProductID: "p1", Quantity: 2},
		{ProductID: "p3", Quantity: 1},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, inventory.ErrInsufficientStock)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	var se interface{ Shortfalls() []inventory.Shortfall }
	require.True(t, errors.As(err, &se))
	assert.Equal(t, []inventory.Shortfall{
		{ProductID: "p1", Requested: 4, Available: 3},
		{ProductID: "p2", Requested: 2, Available: 1},
	}, se.Shortfalls())
}

func TestCheckAvailability_UnknownProduct(t *testing.T) {
	_, ledger := seeded(t, map[string]int{"p1": 3})
	_, err := ledger.CheckAvailability(context.Background(), []inventory.Line{{ProductID: "ghost", Quantity: 1}})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestReserveAndRelease_IsIdempotent(t *testing.T) {
	store, ledger := seeded(t, map[string]int{"p1": 5, "p2": 5})
	ctx := context.Background()

	require.NoError(t, ledger.Reserve(ctx, "mo-1", []inventory.ReserveLine{
		{OrderItemID: "i1", ProductID: "p1", Quantity: 2},
		{OrderItemID: "i2", ProductID: "p2", Quantity: 5},
	}, now))
	assert.Equal(t, 3, store.Stock("p1"))
	assert.Equal(t, 0, store.Stock("p2"))

	restock, err := ledger.Release(ctx, "mo-1", now)
	require.NoError(t, err)
	assert.Equal(t, 7, restock.Total())
	assert.False(t, restock.HasDrift())
	assert.Equal(t, 5, store.Stock("p1"))
	assert.Equal(t, 5, store.Stock("p2"))

	again, err := ledger.Release(ctx, "mo-1", now)
	require.NoError(t, err)
	assert.Zero(t, again.Total())
	assert.Equal(t, 5, store.Stock("p1"))
}

func TestDispatch_StopsRelease(t *testing.T) {
	store, ledger := seeded(t, map[string]int{"p1": 5})
	ctx := context.Background()

	require.NoError(t, ledger.Reserve(ctx, "mo-1", []inventory.ReserveLine{{OrderItemID: "i1", ProductID: "p1", Quantity: 2}}, now))
	require.NoError(t, ledger.Dispatch(ctx, "mo-1", now))

	restock, err := ledger.Release(ctx, "mo-1", now)
	require.NoError(t, err)
	assert.Zero(t, restock.Total())
	assert.Equal(t, 3, store.Stock("p1"))
}

func TestReturnItem(t *testing.T) {
	t.Run("dispatched row is credited once", func(t *testing.T) {
		store, ledger := seeded(t, map[string]int{"p1": 5})
		ctx := context.Background()
		require.NoError(t, ledger.Reserve(ctx, "mo-1", []inventory.ReserveLine{{OrderItemID: "i1", ProductID: "p1", Quantity: 2}}, now))
		require.NoError(t, ledger.Dispatch(ctx, "mo-1", now))

		line := inventory.ReserveLine{OrderItemID: "i1", ProductID: "p1", Quantity: 2}
		restock, err := ledger.ReturnItem(ctx, "mo-1", line, now)
		require.NoError(t, err)
		assert.Equal(t, 2, restock.Total())
		assert.Equal(t, 5, store.Stock("p1"))

		restock, err = ledger.ReturnItem(ctx, "mo-1", line, now)
		require.NoError(t, err)
		assert.Zero(t, restock.Total())
		assert.Equal(t, 5, store.Stock("p1"))
	})

	t.Run("missing ledger row falls back to item quantity", func(t *testing.T) {
		store, ledger := seeded(t, map[string]int{"p1": 1})
		restock, err := ledger.ReturnItem(context.Background(), "legacy", inventory.ReserveLine{OrderItemID: "i9", ProductID: "p1", Quantity: 3}, now)
		require.NoError(t, err)
		assert.Equal(t, 3, restock.Total())
		assert.Equal(t, 4, store.Stock("p1"))
	})

	t.Run("deleted product is reported as drift", func(t *testing.T) {
		store, ledger := seeded(t, map[string]int{"p1": 5})
		ctx := context.Background()
		require.NoError(t, ledger.Reserve(ctx, "mo-1", []inventory.ReserveLine{{OrderItemID: "i1", ProductID: "p1", Quantity: 2}}, now))
		store.DeleteProduct("p1")

		restock, err := ledger.Release(ctx, "mo-1", now)
		require.NoError(t, err)
		assert.True(t, restock.HasDrift())
		assert.Equal(t, []inventory.Credit{{ProductID: "p1", OrderItemID: "i1", Quantity: 2}}, restock.Missing)
	})
}

func TestReserve_InsufficientStock(t *testing.T) {
	_, ledger := seeded(t, map[string]int{"p1": 1})
	err := ledger.Reserve(context.Background(), "mo-1", []inventory.ReserveLine{{OrderItemID: "i1", ProductID: "p1", Quantity: 2}}, now)
	assert.ErrorIs(t, err, inventory.ErrInsufficientStock)
}

func TestNewProduct_Validation(t *testing.T) {
	price := *shared.NewMoney(100, shared.DefaultCurrency)
	_, err := inventory.NewProduct("p1", "m1", "  ", price, 1, now)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
	_, err = inventory.NewProduct("p1", "m1", "Mug", shared.Zero(shared.DefaultCurrency), 1, now)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
	_, err = inventory.NewProduct("p1", "m1", "Mug", price, -1, now)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	p, err := inventory.NewProduct("p1", "m1", " Mug ", price, 0, now)
	require.NoError(t, err)
	assert.Equal(t, "Mug", p.Title())
	assert.True(t, p.IsNew())
}
