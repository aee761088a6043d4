package main

import (
	"fmt"
	"strings"

	"github.com/miekg/dns"

	"github.com/tc-dc/ec2dns"
)

// shim is a minimal reference host integration: spec.md section 1 scopes
// "the host integration shim that loads the library, receives
// per-query callbacks, and emits resource records" out of the core, so
// this is deliberately small -- just enough to prove the engine's public
// surface is sufficient for a real DNS server to drive.
type shim struct {
	engine   *ec2dns.Engine
	zoneName string
}

// newShim validates the host's four positional args, per spec.md section
// 6's "CLI/host args (positional, provided by the host loader):
// [_, zoneName, vpcCidr, accountName]. The engine requires all four;
// missing args are a fatal init failure."
func newShim(engine *ec2dns.Engine, zoneName, vpcCidr, accountName string) (*shim, error) {
	if zoneName == "" || vpcCidr == "" || accountName == "" {
		return nil, fmt.Errorf("ec2dnsd: zoneName, vpcCidr, and accountName are all required")
	}
	return &shim{engine: engine, zoneName: zoneName}, nil
}

// handleQuery dispatches a single incoming query by zone predicate, the
// shape spec.md section 6 describes for IsForwardZone/IsAutoscalerZone/
// IsReverseZone, and emits records through emit. clientAddr is the
// querying client's address, handle is whatever opaque per-query context
// the host's DNS server implementation uses.
func (s *shim) handleQuery(handle any, qname string, qtype uint16, clientAddr string, emit ec2dns.EmitFunc) {
	// label is the query's first label; parent is the zone it sits in.
	label, parent, _ := strings.Cut(qname, ".")
	switch {
	case s.engine.IsAutoscalerZone(parent):
		ips, ok := s.engine.ResolveAutoscaler(label, clientAddr)
		if !ok {
			return
		}
		ec2dns.EmitAutoscaler(emit, handle, qname, ips, s.engine.NumAsgRecords())

	case s.engine.IsReverseZone(parent):
		// A PTR name is one host label under an enumerated /24 reverse
		// zone; ReverseLookup joins them back as label+"."+zone.
		hostname, ok := s.engine.ReverseLookup(parent, label, clientAddr)
		if !ok {
			return
		}
		ec2dns.EmitReverse(emit, handle, qname, hostname)

	case s.engine.IsForwardZone(parent) && qtype == dns.TypeA:
		instanceID, _, ok := s.engine.Matcher().TryMatch(qname)
		if !ok {
			return
		}
		ip, ok := s.engine.ResolveIp(instanceID, clientAddr)
		if !ok {
			return
		}
		ec2dns.EmitForward(emit, handle, qname, ip)

	case s.engine.IsForwardZone(qname) && (qtype == dns.TypeSOA || qtype == dns.TypeNS):
		ec2dns.EmitZoneApex(emit, handle, s.zoneName, "ns1."+s.zoneName, "hostmaster."+s.zoneName, "ns1."+s.zoneName)
	}
}
