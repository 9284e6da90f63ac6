package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveDisplayStatus(t *testing.T) {
	tests := []struct {
		stored        Status
		pending       bool
		pastDeadline  bool
		autoCancelled bool
		want          DisplayStatus
	}{
		{StatusPaid, true, false, false, DisplayCancelRequestPending},
		{StatusPaid, false, false, false, DisplayStatus(StatusPaid)},
		{StatusCreated, false, true, false, DisplayExpired},
		{StatusCreated, false, false, false, DisplayStatus(StatusCreated)},
		{StatusCancelledByUser, false, false, true, DisplayExpired},
		{StatusCancelledByUser, false, false, false, DisplayStatus(StatusCancelledByUser)},
		{StatusShipped, true, true, true, DisplayStatus(StatusShipped)},
	}
	for _, tt := range tests {
		got := DeriveDisplayStatus(tt.stored, tt.pending, tt.pastDeadline, tt.autoCancelled)
		assert.Equal(t, tt.want, got, "stored=%s pending=%v past=%v auto=%v", tt.stored, tt.pending, tt.pastDeadline, tt.autoCancelled)
	}
}

func TestStatusHelpers(t *testing.T) {
	for _, s := range AllStatuses {
		parsed, ok := ParseStatus(string(s))
		assert.True(t, ok)
		assert.Equal(t, s, parsed)
	}
	_, ok := ParseStatus("EXPIRED")
	assert.False(t, ok, "EXPIRED is display-only")

	assert.True(t, StatusCreated.CanTransitionTo(StatusPaid))
	assert.False(t, StatusCompleted.CanTransitionTo(StatusCancelledByAdmin))
	assert.True(t, StatusAfterSaleEnded.CanTransitionTo(StatusAfterSale))

	assert.True(t, StatusPaid.HoldsReservedStock())
	assert.False(t, StatusShipped.HoldsReservedStock())

	assert.True(t, ItemStatusReturned.IsMoneyBack())
	assert.False(t, ItemStatusExchanged.IsMoneyBack())
}
