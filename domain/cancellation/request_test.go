package cancellation

import (
	"testing"
	"time"

	"marketplace/domain/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestDecisions(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	r := NewRequest("cr-1", "mo-1", "m1", "c1", "  changed my mind ", now)
	assert.Equal(t, "changed my mind", r.Reason())
	assert.True(t, r.IsPending())
	assert.Len(t, r.PullEvents(), 1)

	require.NoError(t, r.Approve("m1", " ok ", now.Add(time.Minute)))
	assert.Equal(t, StatusApproved, r.Status())
	assert.Equal(t, "ok", r.MerchantNote())
	assert.Equal(t, "m1", r.DecidedBy())
	require.NotNil(t, r.DecidedAt())

	err := r.Reject("m1", "", now)
	assert.ErrorIs(t, err, ErrAlreadyDecided)
	assert.ErrorIs(t, err, shared.ErrStateConflict)
}

func TestParseStatus(t *testing.T) {
	st, ok := ParseStatus("")
	assert.True(t, ok)
	assert.Equal(t, StatusPending, st)

	st, ok = ParseStatus("rejected")
	assert.True(t, ok)
	assert.Equal(t, StatusRejected, st)

	_, ok = ParseStatus("LOST")
	assert.False(t, ok)
}
