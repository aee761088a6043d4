package ec2dns

import "time"

// throttleWindow is the fixed 240s suppression window from spec section 4.3.
const throttleWindow = 240 * time.Second

// Throttler is the C3 per-client miss throttler. It suppresses repeated
// provider round-trips for the same missing key within a 240s window,
// regardless of which client asks -- a second distinct client asking for
// the same missing key is also throttled, by design, to cap provider
// fan-out (spec section 4.3's note; see DESIGN.md's Open Question entry).
//
// It is a thin wrapper over a dedicated Cache[string], the same "layer a
// small struct over Cache" pattern the teacher uses for RateLimiter over
// its counters map.
type Throttler struct {
	cache *Cache[string]
}

// NewThrottler returns a Throttler with the spec-mandated 240s window.
func NewThrottler() *Throttler {
	return &Throttler{cache: NewCache[string](throttleWindow)}
}

// IsThrottled reports whether a miss on key should be suppressed. A client
// looking up itself (clientAddr == key) is never throttled.
func (t *Throttler) IsThrottled(clientAddr, key string) bool {
	if clientAddr == key {
		return false
	}
	_, ok := t.cache.TryGet(key)
	return ok
}

// OnMiss records that clientAddr just missed on key, overwriting any
// existing entry and resetting the throttle window. clientAddr is stored
// purely for diagnostics; the throttle decision in IsThrottled only ever
// looks at key.
func (t *Throttler) OnMiss(key, clientAddr string) {
	t.cache.Insert(key, clientAddr)
}

// Trim forwards to the underlying cache.
func (t *Throttler) Trim() {
	t.cache.Trim()
}
