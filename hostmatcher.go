package ec2dns

import "regexp"

// DefaultInstanceRegex is the pattern used when Config.InstanceRegex is
// empty. It expects names of the form <region><zoneLetter>-<account>-<id>
// followed by a dot, e.g. "ue1a-prod-0123456789abcdef0.aws.test.".
const DefaultInstanceRegex = `^(?P<region>[a-z]{2,4}\d)(?P<zone>[a-z])-(?P<account>[a-zA-Z0-9]+)-(?P<instanceId>[0-9a-f]+)\.`

// HostMatcher parses forward host names into an instance ID and a region,
// per spec section 4.4. It's built on the teacher's RegexpMatcher
// (matcher-regexp.go), extended to pull named capture groups instead of
// just reporting a boolean match.
type HostMatcher struct {
	re *regexp.Regexp
}

// NewHostMatcher compiles pattern, which must contain the named capture
// groups "region" and "instanceId"; "zone" and "account" groups may be
// present but are not required or read. Panics if pattern fails to compile
// or is missing a required group -- this only happens with
// a broken Config, caught at construction time rather than on every query.
func NewHostMatcher(pattern string) *HostMatcher {
	if pattern == "" {
		pattern = DefaultInstanceRegex
	}
	re := regexp.MustCompile(pattern)
	for _, want := range []string{"region", "instanceId"} {
		if !hasSubexpName(re, want) {
			panic("ec2dns: instance regex missing required capture group " + want)
		}
	}
	return &HostMatcher{re: re}
}

func hasSubexpName(re *regexp.Regexp, name string) bool {
	for _, n := range re.SubexpNames() {
		if n == name {
			return true
		}
	}
	return false
}

// TryMatch parses host and returns ("i-"+instanceId capture, region
// capture, true) on success. Returns ("", "", false) if host doesn't match
// or a required capture group is empty.
func (m *HostMatcher) TryMatch(host string) (instanceID, region string, ok bool) {
	match := m.re.FindStringSubmatch(host)
	if match == nil {
		return "", "", false
	}
	names := m.re.SubexpNames()
	var id string
	for i, n := range names {
		switch n {
		case "instanceId":
			id = match[i]
		case "region":
			region = match[i]
		}
	}
	if id == "" || region == "" {
		return "", "", false
	}
	return "i-" + id, region, true
}
