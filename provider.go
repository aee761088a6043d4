package ec2dns

import "context"

// Instance is the flat, cross-provider record produced by a CloudProvider's
// ListInstances, per spec section 3.
type Instance struct {
	// InstanceID is always prefixed "i-"; providers without a native
	// EC2-style ID use a hex encoding of their numeric ID.
	InstanceID string
	// PrivateIP is an IPv4 dotted-quad.
	PrivateIP string
	// Zone is the provider's availability zone, e.g. "us-east-1a". Its
	// last character is the zone letter used in hostname composition.
	Zone string
	// AsgLabel is set by providers that tag ASG membership directly on
	// the instance rather than exposing a separate memberships API.
	AsgLabel string
}

// FilterKind selects how ListInstances narrows its result set.
type FilterKind int

const (
	// FilterNone lists every instance.
	FilterNone FilterKind = iota
	// FilterByInstanceID lists (at most) the instance with a given ID.
	FilterByInstanceID
	// FilterByPrivateIP lists (at most) the instance with a given IP.
	FilterByPrivateIP
)

// InstanceFilter narrows a ListInstances call. Providers that can't filter
// server-side must page internally and filter client-side before
// returning, per spec section 4.7.
type InstanceFilter struct {
	Kind       FilterKind
	InstanceID string
	PrivateIP  string
}

// NoFilter lists every instance.
var NoFilter = InstanceFilter{Kind: FilterNone}

// ByInstanceID builds a filter for a single instance ID.
func ByInstanceID(id string) InstanceFilter {
	return InstanceFilter{Kind: FilterByInstanceID, InstanceID: id}
}

// ByPrivateIP builds a filter for a single private IP.
func ByPrivateIP(ip string) InstanceFilter {
	return InstanceFilter{Kind: FilterByPrivateIP, PrivateIP: ip}
}

// CloudProvider is the C7 capability the engine consumes to drive a
// specific cloud's compute (and optionally autoscaling) API. It is the
// only cloud-SDK-shaped dependency in the engine; concrete providers live
// in provider/aws and provider/gce. Grounded on the small single-purpose
// capability interfaces the teacher favors (Resolver in resolver.go,
// IPBlocklistDB in cidr-db.go) rather than a class hierarchy with virtual
// methods, per spec section 9's redesign note.
type CloudProvider interface {
	// ListInstances returns every instance matching filter. ok is false
	// on any provider error (network, auth, non-2xx); the provider is
	// responsible for incrementing its own api_requests/api_success/
	// api_failure counters around the call.
	ListInstances(ctx context.Context, filter InstanceFilter) (instances []Instance, ok bool)

	// ListAutoscalingMemberships returns only healthy, in-service members
	// per alias. Providers without an autoscaling concept return an empty
	// map and true.
	ListAutoscalingMemberships(ctx context.Context) (memberships map[string]map[string]struct{}, ok bool)

	// AfterRefresh is called once per completed refresh iteration (spec
	// section 4.9 step 5). Providers without provider-internal state to
	// trim (e.g. a zone cache) can make this a no-op.
	AfterRefresh()
}
