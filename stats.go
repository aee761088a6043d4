package ec2dns

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Counter is a monotonic, concurrency-safe 64-bit counter.
type Counter struct {
	v atomic.Uint64
}

// Increment adds 1 to the counter; IncrementBy lets callers add more in one
// shot.
func (c *Counter) Increment() {
	c.v.Add(1)
}

// IncrementBy adds n to the counter atomically.
func (c *Counter) IncrementBy(n uint64) {
	c.v.Add(n)
}

// Value returns the counter's current value.
func (c *Counter) Value() uint64 {
	return c.v.Load()
}

// NamedCounter is a (name, value) pair as returned by Registry.GetAll.
type NamedCounter struct {
	Name  string
	Value uint64
}

// Registry is a named set of monotonic counters, the C1 stats registry.
// Counters are created once and incremented lock-free; the registry's own
// index of known counters is guarded by a mutex since Create/GetAll happen
// far less often than Increment.
type Registry struct {
	mu       sync.Mutex
	counters map[string]*Counter
	order    []string
}

// NewRegistry returns an empty stats registry.
func NewRegistry() *Registry {
	return &Registry{counters: make(map[string]*Counter)}
}

// Create returns the counter for name, creating it on first use. Calling
// Create repeatedly with the same name returns the same counter.
func (r *Registry) Create(name string) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.counters[name]; ok {
		return c
	}
	c := &Counter{}
	r.counters[name] = c
	r.order = append(r.order, name)
	return c
}

// GetAll returns a stable, name-sorted snapshot of every counter ever
// created through this registry.
func (r *Registry) GetAll() []NamedCounter {
	r.mu.Lock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	r.mu.Unlock()

	sort.Strings(names)
	out := make([]NamedCounter, 0, len(names))
	for _, name := range names {
		r.mu.Lock()
		c := r.counters[name]
		r.mu.Unlock()
		out = append(out, NamedCounter{Name: name, Value: c.Value()})
	}
	return out
}
