package ec2dns

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestComposeHostname(t *testing.T) {
	cfg := Config{RegionCode: "ue1", AccountName: "tc", ZoneName: "aws.test."}
	inst := Instance{InstanceID: "i-1234567", Zone: "us-east-1a"}
	require.Equal(t, "ue1a-tc-1234567.aws.test.", composeHostname(cfg, inst))
}

func TestComposeHostnameEndsWithTrailingDot(t *testing.T) {
	cfg := Config{RegionCode: "usw2", AccountName: "prod", ZoneName: "aws.internal."}
	inst := Instance{InstanceID: "i-abcdef0", Zone: "us-west-2b"}
	got := composeHostname(cfg, inst)
	require.True(t, len(got) > 0 && got[len(got)-1] == '.')
}

func TestWithDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	require.Equal(t, 60*time.Second, cfg.RefreshInterval)
	require.Equal(t, 120*time.Second, cfg.InstanceTimeout)
	require.Equal(t, "twitter:aws:dns-alias", cfg.AsgDnsTag)
	require.Equal(t, 4, cfg.NumAsgRecords)
}

func TestWithDefaultsPreservesExplicitValues(t *testing.T) {
	cfg := Config{
		RefreshInterval: 5 * time.Second,
		InstanceTimeout: 10 * time.Second,
		AsgDnsTag:       "custom-tag",
		NumAsgRecords:   9,
	}.withDefaults()
	require.Equal(t, 5*time.Second, cfg.RefreshInterval)
	require.Equal(t, 10*time.Second, cfg.InstanceTimeout)
	require.Equal(t, "custom-tag", cfg.AsgDnsTag)
	require.Equal(t, 9, cfg.NumAsgRecords)
}
