package ec2dns

import (
	"context"
	"time"
)

// refresherState names the stages of one refresh iteration, per spec
// section 4.9: Idle -> Pulling -> RebuildingAsg -> RebuildingHosts ->
// TrimmingThrottler -> Hook -> Sleep -> Idle, with a terminal Stopped
// state reached when ctx is cancelled. Pulling failure short-circuits
// straight to Sleep, leaving the prior caches untouched.
//
// Grounded on the teacher's memoryBackend.startGC goroutine shape
// (cache-memory.go): a ticker loop that checks ctx at the top and inside
// its sleep, generalized from "sweep expired entries" to "pull upstream,
// rebuild both caches, trim, call the provider's hook."
type refresherState int

const (
	stateIdle refresherState = iota
	statePulling
	stateRebuildingAsg
	stateRebuildingHosts
	stateTrimmingThrottler
	stateHook
	stateSleep
	stateStopped
)

func (s refresherState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case statePulling:
		return "pulling"
	case stateRebuildingAsg:
		return "rebuilding_asg"
	case stateRebuildingHosts:
		return "rebuilding_hosts"
	case stateTrimmingThrottler:
		return "trimming_throttler"
	case stateHook:
		return "hook"
	case stateSleep:
		return "sleep"
	default:
		return "stopped"
	}
}

// runRefresher drives the background refresh loop for e until ctx is
// cancelled. It is started once by New and is the only writer of e's ASG
// cache; the host cache is also written by the miss-fill path of ResolveIp
// and ResolveHostname.
func runRefresher(ctx context.Context, e *Engine) {
	refreshSuccess := e.stats.Create("refresh_success")
	refreshFailure := e.stats.Create("refresh_failure")

	state := stateIdle
	transition := func(s refresherState) {
		state = s
		Log.Debug("refresher transition", "state", state.String())
	}

	for {
		select {
		case <-ctx.Done():
			transition(stateStopped)
			return
		default:
		}

		transition(statePulling)
		_, span := tracer.Start(ctx, "refresh")

		instCtx, instCancel := context.WithTimeout(ctx, e.cfg.InstanceTimeout)
		instances, ok := e.provider.ListInstances(instCtx, NoFilter)
		instCancel()

		if !ok {
			refreshFailure.Increment()
			span.End()
			transition(stateSleep)
			if !sleepOrDone(ctx, e.cfg.RefreshInterval) {
				return
			}
			transition(stateIdle)
			continue
		}

		transition(stateRebuildingAsg)
		asgCtx, asgCancel := context.WithTimeout(ctx, asgTimeout)
		memberships, asgOK := e.provider.ListAutoscalingMemberships(asgCtx)
		asgCancel()
		if asgOK {
			rebuildAsgCache(e, instances, memberships)
		}

		transition(stateRebuildingHosts)
		rebuildHostCache(e, instances)

		transition(stateTrimmingThrottler)
		e.throttle.Trim()
		e.hostCache.Trim()
		e.asgCache.Trim()

		transition(stateHook)
		e.provider.AfterRefresh()

		refreshSuccess.Increment()
		span.End()

		transition(stateSleep)
		if !sleepOrDone(ctx, e.cfg.RefreshInterval) {
			return
		}
		transition(stateIdle)
	}
}

// rebuildHostCache bulk-inserts both lookup directions -- instanceId->ip
// and ip->hostname -- for every pulled instance in a single locked pass,
// per spec section 4.9 step 4 ("rebuild the host cache atomically from
// the caller's point of view").
func rebuildHostCache(e *Engine, instances []Instance) {
	deadline := time.Now().Add(e.cfg.InstanceTimeout)
	e.hostCache.Bulk(func(b BulkInserter[string]) {
		for _, inst := range instances {
			if inst.InstanceID == "" || inst.PrivateIP == "" {
				continue
			}
			b.Insert(inst.InstanceID, inst.PrivateIP, deadline)
			b.Insert(inst.PrivateIP, composeHostname(e.cfg, inst), deadline)
		}
	})
}

// rebuildAsgCache resolves each alias's healthy member instance IDs to
// private IPs and bulk-inserts the result, falling back to an instance's
// own AsgLabel for providers that tag membership directly rather than
// exposing a separate memberships API.
func rebuildAsgCache(e *Engine, instances []Instance, memberships map[string]map[string]struct{}) {
	byID := make(map[string]Instance, len(instances))
	for _, inst := range instances {
		byID[inst.InstanceID] = inst
	}

	aliasIPs := make(map[string][]string, len(memberships))
	for alias, members := range memberships {
		ips := make([]string, 0, len(members))
		for id := range members {
			if inst, ok := byID[id]; ok && inst.PrivateIP != "" {
				ips = append(ips, inst.PrivateIP)
			}
		}
		aliasIPs[alias] = ips
	}
	for _, inst := range instances {
		if inst.AsgLabel == "" || inst.PrivateIP == "" {
			continue
		}
		if _, exists := memberships[inst.AsgLabel]; exists {
			continue
		}
		aliasIPs[inst.AsgLabel] = append(aliasIPs[inst.AsgLabel], inst.PrivateIP)
	}

	deadline := time.Now().Add(asgTimeout)
	e.asgCache.Bulk(func(b BulkInserter[[]string]) {
		for alias, ips := range aliasIPs {
			b.Insert(alias, ips, deadline)
		}
	})
}

// sleepOrDone waits for d, returning false early if ctx is cancelled
// first.
func sleepOrDone(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
