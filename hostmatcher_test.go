package ec2dns

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHostMatcherDefaultPattern(t *testing.T) {
	m := NewHostMatcher("")
	id, region, ok := m.TryMatch("ue1a-prod-0123456789abcdef0.aws.test.")
	require.True(t, ok)
	require.Equal(t, "i-0123456789abcdef0", id)
	require.Equal(t, "ue1", region)
}

func TestHostMatcherNoMatch(t *testing.T) {
	m := NewHostMatcher("")
	_, _, ok := m.TryMatch("not-a-valid-hostname")
	require.False(t, ok)
}

func TestHostMatcherCustomPattern(t *testing.T) {
	m := NewHostMatcher(`^(?P<region>[a-z]+\d)\.(?P<instanceId>[0-9a-f]+)\.`)
	id, region, ok := m.TryMatch("ue1.abc123.example.com.")
	require.True(t, ok)
	require.Equal(t, "i-abc123", id)
	require.Equal(t, "ue1", region)
}

func TestHostMatcherPanicsOnMissingCaptureGroup(t *testing.T) {
	require.Panics(t, func() {
		NewHostMatcher(`^(?P<region>[a-z]+)-`)
	})
}

func TestHostMatcherRoundTripWithComposeHostname(t *testing.T) {
	cfg := Config{RegionCode: "ue1", AccountName: "tc", ZoneName: "aws.test."}
	inst := Instance{InstanceID: "i-1234567", Zone: "us-east-1a"}
	hostname := composeHostname(cfg, inst)
	require.Equal(t, "ue1a-tc-1234567.aws.test.", hostname)

	m := NewHostMatcher("")
	id, region, ok := m.TryMatch(hostname)
	require.True(t, ok)
	require.Equal(t, "i-1234567", id)
	require.Equal(t, "ue1", region)
}
