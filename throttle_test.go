package ec2dns

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestThrottlerSelfLookupNeverThrottled(t *testing.T) {
	th := NewThrottler()
	th.OnMiss("10.0.0.5", "10.0.0.5")
	require.False(t, th.IsThrottled("10.0.0.5", "10.0.0.5"))
}

func TestThrottlerSuppressesSecondDistinctClient(t *testing.T) {
	th := NewThrottler()
	require.False(t, th.IsThrottled("1.1.1.1", "i-1234567"))
	th.OnMiss("i-1234567", "1.1.1.1")

	// Spec section 4.3: a second distinct client asking for the same
	// missing key within the window is also throttled, by design.
	require.True(t, th.IsThrottled("9.9.9.9", "i-1234567"))
}

func TestThrottlerUnthrottledKeyNotSuppressed(t *testing.T) {
	th := NewThrottler()
	require.False(t, th.IsThrottled("1.1.1.1", "i-other"))
}

func TestThrottlerTrimForwardsToCache(t *testing.T) {
	th := NewThrottler()
	th.OnMiss("k", "1.1.1.1")
	require.Equal(t, 1, th.cache.Len())
	th.Trim()
	require.Equal(t, 1, th.cache.Len(), "trim must not remove a still-valid throttle entry")
}
