package order

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanTransitionTo(t *testing.T) {
	cases := []struct {
		from, to Status
		ok       bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusDelivered, false},
		{StatusPending, StatusCompleted, false},
		{StatusConfirmed, StatusDelivered, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusPending, false},
		{StatusDelivered, StatusCompleted, true},
		{StatusDelivered, StatusCancelled, false},
		{StatusCancelled, StatusPending, false},
		{StatusCancelled, StatusConfirmed, false},
		{StatusCompleted, StatusDelivered, false},
	}
	for _, c := range cases {
		require.Equal(t, c.ok, c.from.CanTransitionTo(c.to), "%s -> %s", c.from, c.to)
	}
}

func TestParseStatus(t *testing.T) {
	got, ok := ParseStatus("DELIVERED")
	require.True(t, ok)
	require.Equal(t, StatusDelivered, got)

	_, ok = ParseStatus("delivered")
	require.False(t, ok)
	_, ok = ParseStatus("")
	require.False(t, ok)
}

func TestShippingInfoEmpty(t *testing.T) {
	require.True(t, ShippingInfo{}.Empty())
	require.False(t, ShippingInfo{Phone: "9800000000"}.Empty())
}
