/*
Package ec2dns implements the resolution engine for a dynamically-loaded
authoritative DNS back-end over cloud compute inventory. Given a forward
name encoding <region><zoneLetter>-<account>-<instanceId>, it resolves the
instance's private IPv4; given a reverse PTR name inside the VPC's address
space, it resolves the canonical hostname; given an autoscaler alias, it
returns a bounded random sample of healthy member IPs.

Engine

Engine is the core type: it owns a host cache, an ASG cache, a miss
throttler, and a background refresher that keeps both caches in sync with
a CloudProvider on a timer. Resolve{Ip,Hostname,Autoscaler} are the query
entry points; a host integration also uses the zone predicates
(IsForwardZone, IsAutoscalerZone, IsReverseZone), ReverseLookup, Matcher,
and the Emit* helpers to dispatch queries and build records.

	stats := ec2dns.NewRegistry()
	e := ec2dns.New(cfg, provider, zones, stats)
	defer e.Close()
	ip, ok := e.ResolveIp("i-0123456789abcdef0", "10.0.0.5")

Providers

CloudProvider is the capability the engine consumes to list instances and
autoscaling group memberships. Concrete providers live under provider/aws
and provider/gce; the engine itself never imports a cloud SDK.

Everything outside the engine -- loading configuration from disk, parsing
credentials, wiring a logging sink, and exposing a stats HTTP endpoint -- is
the host integration's responsibility. cmd/ec2dnsd is a reference
implementation of that integration, not part of the library's contract.
*/
package ec2dns
