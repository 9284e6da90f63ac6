package errors

import (
	"fmt"
	"net/http"
	"testing"

	"marketplace/domain/inventory"
	"marketplace/domain/order"
	"marketplace/domain/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromDomainError_Mapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   ErrorCode
		status int
	}{
		{"validation", shared.NewValidationError("order", "phone", "phone is required"), CodeValidation, http.StatusBadRequest},
		{"not found", order.NewOrderNotFoundError("o-1"), CodeNotFound, http.StatusNotFound},
		{"unauthorized", shared.ErrUnauthorized, CodeUnauthorized, http.StatusUnauthorized},
		{"forbidden", shared.NewForbiddenError("merchant_order", "not yours"), CodeForbidden, http.StatusForbidden},
		{"state conflict", order.NewInvalidOrderStateError("o-1", order.StatusShipped, "PAID"), CodeStateConflict, http.StatusConflict},
		{"expired", order.NewPaymentWindowExpiredError("o-1"), CodeOrderExpired, http.StatusConflict},
		{"concurrent modification", shared.NewConflictError("merchant_order", "version mismatch"), CodeConcurrentModification, http.StatusConflict},
		{"unsupported", shared.NewUnsupportedError("after_sale", "exchange"), CodeUnsupported, http.StatusNotImplemented},
		{"unknown", fmt.Errorf("dial tcp: connection refused"), CodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := FromDomainError(tt.err)
			require.NotNil(t, appErr)
			assert.Equal(t, tt.code, appErr.Code)
			assert.Equal(t, tt.status, appErr.HTTPStatusCode())
		})
	}
}

func TestFromDomainError_HidesInternalMessages(t *testing.T) {
	appErr := FromDomainError(fmt.Errorf("password=secret"))
	assert.Equal(t, "internal server error", appErr.Message)
	assert.ErrorContains(t, appErr.Unwrap(), "secret")
}

func TestFromDomainError_ExpiryRaceDetails(t *testing.T) {
	err := fmt.Errorf("cancel: %w", shared.NewExpiryRaceError(string(order.StatusCancelledByUser), "o-1", "o-2"))
	appErr := FromDomainError(err)
	assert.Equal(t, CodeOrderExpired, appErr.Code)
	assert.Equal(t, true, appErr.Details["auto_cancelled"])
	assert.Equal(t, "CANCELLED_BY_USER", appErr.Details["status"])
	assert.Equal(t, []string{"o-1", "o-2"}, appErr.Details["expired_order_ids"])
}

func TestFromDomainError_ShortfallDetails(t *testing.T) {
	err := inventory.NewInsufficientStockError([]inventory.Shortfall{
		{ProductID: "p1", Requested: 3, Available: 1},
	})
	appErr := FromDomainError(err)
	assert.Equal(t, CodeValidation, appErr.Code)
	items, ok := appErr.Details["shortfalls"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, items, 1)
	assert.Equal(t, "p1", items[0]["product_id"])
	assert.Equal(t, 1, items[0]["available"])
}

func TestAsAppError_KeepsExisting(t *testing.T) {
	original := TooManyRequests("slow down")
	wrapped := fmt.Errorf("middleware: %w", original)
	assert.Same(t, original, AsAppError(wrapped))
	assert.True(t, Is(wrapped, CodeTooManyRequest))
	assert.False(t, Is(fmt.Errorf("plain"), CodeTooManyRequest))
	assert.Nil(t, FromDomainError(nil))
}
