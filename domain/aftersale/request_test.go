package aftersale

import (
	"testing"
	"time"

	"marketplace/domain/order"
	"marketplace/domain/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func newReq(typ Type) *Request {
	return NewRequest("as-1", "mo-1", "item-1", "c1", "m1", typ, " broken ", now)
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name       string
		typ        Type
		action     Action
		wantStatus Status
		wantItem   order.ItemStatus
		wantNote   string
	}{
		{"merchant approves return", TypeReturn, ActionApprove, StatusMerchantApproved, order.ItemStatusReturning, DefaultApproveNote},
		{"merchant approves refund closes", TypeRefundOnly, ActionApprove, StatusClosed, order.ItemStatusRefunded, DefaultApproveNote},
		{"merchant rejects", TypeExchange, ActionReject, StatusMerchantRejected, order.ItemStatusNormal, DefaultRejectNote},
		{"admin approves exchange", TypeExchange, ActionAdminApprove, StatusAdminApproved, order.ItemStatusExchanging, ""},
		{"admin approves refund closes", TypeRefundOnly, ActionAdminApprove, StatusClosed, order.ItemStatusRefunded, ""},
		{"admin rejects", TypeReturn, ActionAdminReject, StatusAdminRejected, order.ItemStatusNormal, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newReq(tt.typ)
			d, err := r.Decide(tt.action, "", now)
			require.NoError(t, err)
			assert.Equal(t, StatusRequested, d.StatusBefore)
			assert.Equal(t, tt.wantStatus, d.StatusAfter)
			assert.Equal(t, tt.wantStatus, r.Status())
			assert.Equal(t, tt.wantItem, d.ItemStatus)
			assert.Equal(t, tt.wantNote, r.ResolutionNote())
		})
	}
}

func TestDecide_AdminEscalation(t *testing.T) {
	r := newReq(TypeReturn)
	_, err := r.Decide(ActionReject, "no", now)
	require.NoError(t, err)
	assert.False(t, r.IsOpen())

	_, err = r.Decide(ActionApprove, "", now)
	assert.ErrorIs(t, err, shared.ErrStateConflict)

	d, err := r.Decide(ActionAdminApprove, "platform says yes", now)
	require.NoError(t, err)
	assert.Equal(t, StatusMerchantRejected, d.StatusBefore)
	assert.Equal(t, StatusAdminApproved, r.Status())
	assert.True(t, r.IsOpen())

	_, err = r.Decide(ActionAdminReject, "", now)
	assert.ErrorIs(t, err, shared.ErrStateConflict)
}

func TestReturnFlow(t *testing.T) {
	r := newReq(TypeReturn)
	assert.Equal(t, "broken", r.Reason())

	err := r.ShipReturn("SF", "T1", now)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = r.Decide(ActionApprove, "", now)
	require.NoError(t, err)

	err = r.ReceiveReturn(now)
	assert.ErrorIs(t, err, shared.ErrStateConflict)

	err = r.ShipReturn(" ", "T1", now)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	require.NoError(t, r.ShipReturn("SF", "T1", now))
	assert.Equal(t, StatusInProgress, r.Status())
	assert.Equal(t, order.ShippingInTransit, r.ReturnShipment().Status)

	require.NoError(t, r.ReceiveReturn(now.Add(time.Hour)))
	assert.Equal(t, StatusClosed, r.Status())
	assert.Equal(t, order.ShippingDelivered, r.ReturnShipment().Status)
	assert.NotNil(t, r.ReturnShipment().ReceivedAt)
}

func TestShipReturn_OnlyForReturns(t *testing.T) {
	r := newReq(TypeExchange)
	_, err := r.Decide(ActionApprove, "", now)
	require.NoError(t, err)
	assert.ErrorIs(t, r.ShipReturn("SF", "T1", now), ErrInvalidState)
}

func TestCompleteExchange_Unsupported(t *testing.T) {
	err := newReq(TypeExchange).CompleteExchange()
	assert.ErrorIs(t, err, shared.ErrUnsupported)
}

func TestParse(t *testing.T) {
	typ, ok := ParseType(" refund_only ")
	assert.True(t, ok)
	assert.Equal(t, TypeRefundOnly, typ)
	_, ok = ParseType("swap")
	assert.False(t, ok)

	a, ok := ParseAction("admin_reject")
	assert.True(t, ok)
	assert.True(t, a.IsAdmin())
	_, ok = ParseAction("escalate")
	assert.False(t, ok)
}
