package ec2dns

import (
	"context"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/miekg/dns"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("github.com/tc-dc/ec2dns")

// Engine is the C8 resolution engine: it owns the host cache, the ASG
// cache, the miss throttler, and the background refresher (C9) that keeps
// the caches in sync with a CloudProvider. It is the only type a host
// integration needs to construct and call.
//
// Grounded on the teacher's Cache.Resolve control flow (cache.go): check
// cache, on miss consult a throttle/gate, call upstream, store, return --
// generalized here from "one upstream resolver" to "one of three typed
// lookups against a CloudProvider."
type Engine struct {
	cfg      Config
	provider CloudProvider
	matcher  *HostMatcher
	zones    *ReverseZoneSet

	hostCache *Cache[string]            // instanceId->ip and ip->hostname
	asgCache  *Cache[[]string]          // alias->[]ip
	throttle  *Throttler

	stats *Registry

	aRequests           *Counter
	ptrRequests         *Counter
	autoscalerRequests  *Counter

	refresherWG     sync.WaitGroup
	refresherCancel context.CancelFunc
	closeOnce       sync.Once
}

// New constructs an Engine and starts its background refresher. stats is
// the registry the engine's own counters (a_requests, ptr_requests,
// autoscaler_requests, refresh_success/failure) are created on; per spec
// section 4.7 ("these counters are owned by the engine and handed to the
// provider via construction"), a host integration builds one Registry,
// hands it to its CloudProvider constructor first, then passes the same
// Registry here so api_requests/api_success/api_failure end up alongside
// the engine's own counters in one GetAll() snapshot. Pass NewRegistry()
// if the provider has no counters of its own to share.
//
// Call Close to stop the refresher and release resources.
func New(cfg Config, provider CloudProvider, zones *ReverseZoneSet, stats *Registry) *Engine {
	if provider == nil {
		panic("ec2dns: nil CloudProvider")
	}
	if zones == nil {
		panic("ec2dns: nil ReverseZoneSet")
	}
	if stats == nil {
		stats = NewRegistry()
	}
	cfg = cfg.withDefaults()

	e := &Engine{
		cfg:      cfg,
		provider: provider,
		matcher:  NewHostMatcher(cfg.InstanceRegex),
		zones:    zones,

		hostCache: NewCache[string](cfg.InstanceTimeout),
		asgCache:  NewCache[[]string](asgTimeout),
		throttle:  NewThrottler(),

		stats: stats,

		aRequests:          stats.Create("a_requests"),
		ptrRequests:        stats.Create("ptr_requests"),
		autoscalerRequests: stats.Create("autoscaler_requests"),
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.refresherCancel = cancel
	e.refresherWG.Add(1)
	go func() {
		defer e.refresherWG.Done()
		runRefresher(ctx, e)
	}()

	return e
}

// Close stops the background refresher and waits for it to exit. Safe to
// call more than once.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		e.refresherCancel()
		e.refresherWG.Wait()
	})
}

// Stats returns the engine's stats registry, for a host to expose however
// it likes (spec section 6: "the engine only exposes GetAll()").
func (e *Engine) Stats() *Registry {
	return e.stats
}

// Matcher returns the configured HostMatcher, so a host integration can
// recover an instance ID from a forward query name before calling
// ResolveIp.
func (e *Engine) Matcher() *HostMatcher {
	return e.matcher
}

// NumAsgRecords returns the configured cap on autoscaler record emission,
// so a host integration doesn't need to track its own copy of the value
// it already handed to New via Config.
func (e *Engine) NumAsgRecords() int {
	return e.cfg.NumAsgRecords
}

// ResolveIp resolves an instance ID to its private IPv4, per spec section
// 4.8.
func (e *Engine) ResolveIp(instanceID, clientAddr string) (string, bool) {
	e.aRequests.Increment()
	if instanceID == "" {
		return "", false
	}

	ctx, span := tracer.Start(context.Background(), "ResolveIp")
	defer span.End()

	if ip, ok := e.hostCache.TryGet(instanceID); ok {
		return ip, true
	}
	if e.throttle.IsThrottled(clientAddr, instanceID) {
		return "", false
	}
	e.throttle.OnMiss(instanceID, clientAddr)

	instances, ok := e.provider.ListInstances(ctx, ByInstanceID(instanceID))
	if !ok || len(instances) == 0 {
		return "", false
	}
	ip := instances[0].PrivateIP
	e.hostCache.Insert(instanceID, ip)
	return ip, true
}

// ResolveHostname resolves a private IPv4 to its canonical FQDN, per spec
// section 4.8.
func (e *Engine) ResolveHostname(ip, clientAddr string) (string, bool) {
	e.ptrRequests.Increment()
	if ip == "" {
		return "", false
	}

	ctx, span := tracer.Start(context.Background(), "ResolveHostname")
	defer span.End()

	if hostname, ok := e.hostCache.TryGet(ip); ok {
		return hostname, true
	}
	if e.throttle.IsThrottled(clientAddr, ip) {
		return "", false
	}
	e.throttle.OnMiss(ip, clientAddr)

	instances, ok := e.provider.ListInstances(ctx, ByPrivateIP(ip))
	if !ok || len(instances) == 0 {
		return "", false
	}
	hostname := composeHostname(e.cfg, instances[0])
	e.hostCache.Insert(ip, hostname)
	return hostname, true
}

// ResolveAutoscaler returns every cached private IP for alias, per spec
// section 4.8; the NumAsgRecords cap is applied when the records are
// emitted (EmitAutoscaler). It is a pure cache read and never triggers a provider
// call from the query path -- the ASG cache is only ever populated by the
// background refresher.
func (e *Engine) ResolveAutoscaler(alias, clientAddr string) ([]string, bool) {
	e.autoscalerRequests.Increment()
	if alias == "" {
		return nil, false
	}
	ips, ok := e.asgCache.TryGet(alias)
	if !ok {
		return nil, false
	}
	return ips, true
}

// ReverseLookup implements the C5 contract that delegates into the
// engine: concatenate name+"."+zone, strip ".in-addr.arpa", byte-reverse
// the dotted octets, and resolve the resulting IP.
func (e *Engine) ReverseLookup(zone, name, clientAddr string) (string, bool) {
	ip, ok := SplitReverseName(zone, name)
	if !ok {
		return "", false
	}
	return e.ResolveHostname(ip, clientAddr)
}

// IsForwardZone reports whether name (case-insensitively) matches the
// configured DNS zone.
func (e *Engine) IsForwardZone(name string) bool {
	return strings.EqualFold(normalizeZone(name), normalizeZone(e.cfg.ZoneName))
}

// IsAutoscalerZone reports whether name (case-insensitively) matches the
// configured zone's "asg." prefix.
func (e *Engine) IsAutoscalerZone(name string) bool {
	return strings.EqualFold(normalizeZone(name), "asg."+normalizeZone(e.cfg.ZoneName))
}

// IsReverseZone reports whether name is one of the configured VPC's
// enumerated reverse zones.
func (e *Engine) IsReverseZone(name string) bool {
	return e.zones.IsReverseZone(name)
}

func normalizeZone(name string) string {
	return strings.ToLower(strings.TrimSuffix(name, "."))
}

// EmitFunc is the record-emit callback contract a host integration
// supplies: emit(lookupHandle, recordType, ttlSeconds, rdata), per spec
// section 6.
type EmitFunc func(lookupHandle any, recordType uint16, ttlSeconds uint32, rdata dns.RR)

const recordTTL = 120

// EmitForward builds and emits an A record for a successful ResolveIp.
func EmitForward(emit EmitFunc, handle any, name, ip string) {
	rr := &dns.A{
		Hdr: dns.RR_Header{Name: name, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: recordTTL},
		A:   net.ParseIP(ip),
	}
	emit(handle, dns.TypeA, recordTTL, rr)
}

// EmitReverse builds and emits a PTR record for a successful
// ResolveHostname.
func EmitReverse(emit EmitFunc, handle any, name, hostname string) {
	rr := &dns.PTR{
		Hdr: dns.RR_Header{Name: name, Rrtype: dns.TypePTR, Class: dns.ClassINET, Ttl: recordTTL},
		Ptr: hostname,
	}
	emit(handle, dns.TypePTR, recordTTL, rr)
}

// EmitAutoscaler builds and emits up to numRecords randomly-shuffled A
// records for a successful ResolveAutoscaler, per spec section 6 ("A (ttl
// 120) for each ASG member (up to numAsgRecords, shuffled via C6)").
func EmitAutoscaler(emit EmitFunc, handle any, name string, ips []string, numRecords int) {
	chosen := KRandomIterate(ips, numRecords)
	for _, ip := range chosen {
		rr := &dns.A{
			Hdr: dns.RR_Header{Name: name, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: recordTTL},
			A:   net.ParseIP(ip),
		}
		emit(handle, dns.TypeA, recordTTL, rr)
	}
}

// zoneApexTTL is the longer TTL used for the zone apex NS record (and the
// SOA's expire field); the SOA record itself is emitted with recordTTL.
const zoneApexTTL = 3600

// EmitZoneApex builds and emits the SOA and NS records for the zone apex.
// mname/rname follow standard SOA semantics; ns is the nameserver to
// advertise.
func EmitZoneApex(emit EmitFunc, handle any, zone, mname, rname, ns string) {
	soa := &dns.SOA{
		Hdr:     dns.RR_Header{Name: zone, Rrtype: dns.TypeSOA, Class: dns.ClassINET, Ttl: recordTTL},
		Ns:      mname,
		Mbox:    rname,
		Serial:  uint32(time.Now().Unix()),
		Refresh: 3600,
		Retry:   600,
		Expire:  zoneApexTTL,
		Minttl:  recordTTL,
	}
	emit(handle, dns.TypeSOA, recordTTL, soa)

	nsRR := &dns.NS{
		Hdr: dns.RR_Header{Name: zone, Rrtype: dns.TypeNS, Class: dns.ClassINET, Ttl: zoneApexTTL},
		Ns:  ns,
	}
	emit(handle, dns.TypeNS, zoneApexTTL, nsRR)
}

