package books

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		from, to RequestStatus
		ok       bool
	}{
		{StatusPending, StatusApproved, true},
		{StatusPending, StatusDenied, true},
		{StatusPending, StatusPublished, false},
		{StatusPending, StatusPending, false},
		{StatusApproved, StatusPublished, true},
		{StatusApproved, StatusPending, false},
		{StatusApproved, StatusDenied, false},
		{StatusDenied, StatusPending, false},
		{StatusDenied, StatusApproved, false},
		{StatusDenied, StatusPublished, false},
		{StatusPublished, StatusPending, false},
		{StatusPublished, StatusApproved, false},
		{StatusPublished, StatusDenied, false},
	}

	for _, tc := range cases {
		require.Equalf(t, tc.ok, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestTerminalStatesHaveNoTargets(t *testing.T) {
	require.Empty(t, AllowedTransitions(StatusDenied))
	require.Empty(t, AllowedTransitions(StatusPublished))
}

func TestIsValidStatus(t *testing.T) {
	for _, s := range []RequestStatus{StatusPending, StatusApproved, StatusDenied, StatusPublished} {
		require.True(t, IsValidStatus(s))
	}
	require.False(t, IsValidStatus("ARCHIVED"))
}
