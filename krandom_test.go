package ec2dns

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKRandomIterateReturnsDistinctElements(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e"}
	out := KRandomIterate(items, 3)
	require.Len(t, out, 3)

	seen := make(map[string]bool)
	for _, v := range out {
		require.False(t, seen[v], "duplicate element %q", v)
		seen[v] = true
		require.Contains(t, items, v)
	}
}

func TestKRandomIterateKGreaterThanNReturnsAllElements(t *testing.T) {
	items := []int{1, 2, 3}
	out := KRandomIterate(items, 10)
	require.Len(t, out, 3)
}

func TestKRandomIterateZeroOrNegativeK(t *testing.T) {
	items := []int{1, 2, 3}
	require.Nil(t, KRandomIterate(items, 0))
	require.Nil(t, KRandomIterate(items, -1))
}

func TestKRandomIterateDeterministicUnderSeed(t *testing.T) {
	items := make([]int, 10000)
	for i := range items {
		items[i] = i
	}

	SeedForTest(1)
	first := KRandomIterate(items, 50)

	SeedForTest(1)
	second := KRandomIterate(items, 50)

	require.Equal(t, first, second, "same seed must reproduce the same draw")
}

func TestKRandomIterateReachesBothStrategies(t *testing.T) {
	small := make([]int, 10)
	for i := range small {
		small[i] = i
	}
	large := make([]int, 100000)
	for i := range large {
		large[i] = i
	}

	// n close to k: partial Fisher-Yates path.
	SeedForTest(42)
	outSmall := KRandomIterate(small, 8)
	require.Len(t, outSmall, 8)
	SeedForTest(42)
	require.Equal(t, partialFisherYates(small, 8), outSmall)

	// k << n: reject-resample path.
	SeedForTest(42)
	outLarge := KRandomIterate(large, 8)
	require.Len(t, outLarge, 8)
	SeedForTest(42)
	require.Equal(t, rejectResample(large, 8), outLarge)
}

func TestRejectResampleThresholdOnlyAppliesAboveFive(t *testing.T) {
	items := make([]int, 1000)
	for i := range items {
		items[i] = i
	}
	// k <= 5 must always use partial Fisher-Yates regardless of n.
	SeedForTest(7)
	out := KRandomIterate(items, 5)
	require.Len(t, out, 5)
	SeedForTest(7)
	require.Equal(t, partialFisherYates(items, 5), out)
}

func TestKRandomIterateUniformOverManySeeds(t *testing.T) {
	items := []int{0, 1, 2, 3, 4}
	counts := make(map[int]int)
	const trials = 2000
	for i := 0; i < trials; i++ {
		SeedForTest(int64(i))
		out := KRandomIterate(items, 1)
		counts[out[0]]++
	}
	for _, v := range items {
		c := counts[v]
		// Each element should appear roughly trials/len(items) times;
		// allow generous slack since this isn't a statistical test suite.
		require.Greater(t, c, trials/len(items)/3)
	}
}
