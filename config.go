package ec2dns

import (
	"strings"
	"time"
)

// Config holds the engine's own recognized options -- the subset of the
// configuration table in spec section 6 that the Engine itself reads.
// Loading this from a file, parsing credentials, and reading the host's
// positional CLI args is the host integration's job (cmd/ec2dnsd is a
// reference implementation); the engine only ever sees this already
// validated Go struct.
type Config struct {
	// RefreshInterval is the background refresher's period. Defaults to
	// 60s.
	RefreshInterval time.Duration
	// InstanceTimeout is the host-cache TTL applied on miss-fill and
	// refresh. Defaults to 120s.
	InstanceTimeout time.Duration

	// ZoneName is the DNS suffix used in hostname composition, with a
	// trailing dot, e.g. "aws.test.".
	ZoneName string
	// RegionCode is a short region code, e.g. "ue1", used in hostname
	// composition.
	RegionCode string
	// AccountName is the account segment used in hostname composition.
	AccountName string

	// AsgDnsTag is the tag/label name that binds an instance to an ASG
	// alias. Defaults to "twitter:aws:dns-alias". The engine itself does
	// not read it; concrete providers take the tag through their own
	// Options (cmd/ec2dnsd hands the same config value to both).
	AsgDnsTag string
	// NumAsgRecords caps how many A records EmitAutoscaler emits for an
	// autoscaler alias; ResolveAutoscaler itself returns every cached IP.
	// Defaults to 4.
	NumAsgRecords int

	// InstanceRegex overrides HostMatcher's default pattern.
	InstanceRegex string
}

// asgTimeout (like throttleWindow in throttle.go) is fixed per spec section
// 4.8 and is not configurable.
const asgTimeout = 600 * time.Second

// withDefaults returns a copy of cfg with zero-valued fields replaced by
// their spec-mandated defaults.
func (cfg Config) withDefaults() Config {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 60 * time.Second
	}
	if cfg.InstanceTimeout <= 0 {
		cfg.InstanceTimeout = 120 * time.Second
	}
	if cfg.AsgDnsTag == "" {
		cfg.AsgDnsTag = "twitter:aws:dns-alias"
	}
	if cfg.NumAsgRecords <= 0 {
		cfg.NumAsgRecords = 4
	}
	return cfg
}

// composeHostname builds the fully-qualified forward hostname for an
// instance, per spec section 4.8:
//
//	<regionCode><last char of i.zone>-<accountName>-<i.instanceId without "i-" prefix>.<zoneName>
//
// The two senses of "zone" in this codebase are deliberately kept distinct:
// the zone LETTER comes from the instance's own cloud availability zone
// (i.Zone), while HostMatcher.TryMatch's "region" capture is an unrelated
// string recovered from the host name text. See DESIGN.md's Open Question
// entry.
func composeHostname(cfg Config, i Instance) string {
	zoneLetter := byte('?')
	if len(i.Zone) > 0 {
		zoneLetter = i.Zone[len(i.Zone)-1]
	}
	id := strings.TrimPrefix(i.InstanceID, "i-")

	var b strings.Builder
	b.WriteString(cfg.RegionCode)
	b.WriteByte(zoneLetter)
	b.WriteByte('-')
	b.WriteString(cfg.AccountName)
	b.WriteByte('-')
	b.WriteString(id)
	b.WriteByte('.')
	b.WriteString(cfg.ZoneName)
	return b.String()
}
