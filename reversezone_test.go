package ec2dns

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitFromCidrEnumeratesEveryTwentyFour(t *testing.T) {
	z, err := InitFromCidr("10.1.0.0/22")
	require.NoError(t, err)
	require.Equal(t, 4, z.Size())

	for _, want := range []string{
		"0.1.10.in-addr.arpa",
		"1.1.10.in-addr.arpa",
		"2.1.10.in-addr.arpa",
		"3.1.10.in-addr.arpa",
	} {
		require.True(t, z.IsReverseZone(want), want)
	}
	require.False(t, z.IsReverseZone("4.1.10.in-addr.arpa"))
}

func TestInitFromCidrSizeMatchesPrefix(t *testing.T) {
	z, err := InitFromCidr("172.16.0.0/16")
	require.NoError(t, err)
	require.Equal(t, 1<<8, z.Size())
}

func TestInitFromCidrRejectsOutOfRangePrefix(t *testing.T) {
	_, err := InitFromCidr("10.0.0.0/4")
	require.Error(t, err)

	_, err = InitFromCidr("10.0.0.0/28")
	require.Error(t, err)
}

func TestInitFromCidrRejectsMalformed(t *testing.T) {
	_, err := InitFromCidr("not-a-cidr")
	require.Error(t, err)
}

func TestIsReverseZoneCaseAndDotInsensitive(t *testing.T) {
	z, err := InitFromCidr("10.1.0.0/24")
	require.NoError(t, err)
	require.True(t, z.IsReverseZone("0.1.10.IN-ADDR.ARPA."))
}

func TestSplitReverseName(t *testing.T) {
	// PTR name for 10.1.2.3 is 3.2.1.10.in-addr.arpa.
	ip, ok := SplitReverseName("10.in-addr.arpa", "3.2.1")
	require.True(t, ok)
	require.Equal(t, "10.1.2.3", ip)
}

func TestSplitReverseNameRejectsTooShort(t *testing.T) {
	_, ok := SplitReverseName("arpa", "x")
	require.False(t, ok)
}

func TestSplitReverseNameRejectsNonNumericOctet(t *testing.T) {
	_, ok := SplitReverseName("10.in-addr.arpa", "a.2.1")
	require.False(t, ok)
}

func TestSplitReverseNameRejectsOutOfRangeOctet(t *testing.T) {
	_, ok := SplitReverseName("10.in-addr.arpa", "300.2.1")
	require.False(t, ok)
}
