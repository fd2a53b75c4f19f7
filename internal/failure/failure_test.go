package failure

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorIsMatchesSentinelByKind(t *testing.T) {
	err := New(KindFocusNotConfirmed, "chrome", "active window %s != %s", "0x1", "0x2")
	wrapped := fmt.Errorf("attempt 1: %w", err)

	require.ErrorIs(t, wrapped, ErrFocusNotConfirmed)
	require.NotErrorIs(t, wrapped, ErrTargetNotRunning)
	require.Equal(t, KindFocusNotConfirmed, KindOf(wrapped))
}

func TestErrorMessageIncludesTargetAndCause(t *testing.T) {
	err := Wrap(KindEmissionRejected, "code", errors.New("wtype exited 1"))
	require.Equal(t, "emission rejected (code): wtype exited 1", err.Error())

	bare := &Error{Kind: KindTargetNotRunning}
	require.Equal(t, "target not running", bare.Error())
}

func TestErrorUnwrapReachesCause(t *testing.T) {
	err := Wrap(KindFocusNotConfirmed, "firefox", context.DeadlineExceeded)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRetryBudgetExhaustedKeepsInnerKindReachable(t *testing.T) {
	last := Wrap(KindEmissionRejected, "chrome", errors.New("boom"))
	exhausted := Wrap(KindRetryBudgetExhausted, "chrome", last)

	require.Equal(t, KindRetryBudgetExhausted, KindOf(exhausted))
	require.ErrorIs(t, exhausted, ErrEmissionRejected)
	require.ErrorIs(t, exhausted, ErrRetryBudgetExhausted)
}

func TestKindOfUnclassifiedAndNil(t *testing.T) {
	require.Equal(t, KindNone, KindOf(nil))
	require.Equal(t, KindEmissionRejected, KindOf(errors.New("plain")))
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		kind Kind
		want bool
	}{
		{kind: KindTargetNotRunning, want: false},
		{kind: KindRetryBudgetExhausted, want: false},
		{kind: KindNone, want: false},
		{kind: KindNoVisibleWindow, want: true},
		{kind: KindFocusNotConfirmed, want: true},
		{kind: KindEmissionRejected, want: true},
		{kind: KindTargetBecameUnresponsive, want: true},
		{kind: KindVerificationInconclusive, want: true},
	}

	for _, tc := range tests {
		t.Run(string(tc.kind), func(t *testing.T) {
			require.Equal(t, tc.want, Retryable(tc.kind))
		})
	}
}
