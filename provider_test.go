package ec2dns

import (
	"context"
	"sync"
)

// fakeProvider is a configurable CloudProvider used for testing, grounded
// on the teacher's TestResolver (resolver_test.go): it counts calls and
// lets a test define canned responses externally.
type fakeProvider struct {
	mu sync.Mutex

	byInstanceID map[string][]Instance
	byPrivateIP  map[string][]Instance
	all          []Instance
	memberships  map[string]map[string]struct{}

	listCalls         int
	byIDCalls         int
	byIPCalls         int
	membershipCalls   int
	afterRefreshCalls int
	failListInstances bool
	failMemberships   bool
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		byInstanceID: make(map[string][]Instance),
		byPrivateIP:  make(map[string][]Instance),
		memberships:  make(map[string]map[string]struct{}),
	}
}

func (p *fakeProvider) ListInstances(_ context.Context, filter InstanceFilter) ([]Instance, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listCalls++
	if p.failListInstances {
		return nil, false
	}
	switch filter.Kind {
	case FilterByInstanceID:
		p.byIDCalls++
		return p.byInstanceID[filter.InstanceID], true
	case FilterByPrivateIP:
		p.byIPCalls++
		return p.byPrivateIP[filter.PrivateIP], true
	default:
		return p.all, true
	}
}

func (p *fakeProvider) ListAutoscalingMemberships(_ context.Context) (map[string]map[string]struct{}, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.membershipCalls++
	if p.failMemberships {
		return nil, false
	}
	return p.memberships, true
}

func (p *fakeProvider) AfterRefresh() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.afterRefreshCalls++
}

func (p *fakeProvider) ListCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.listCalls
}

func (p *fakeProvider) ByIDCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.byIDCalls
}

func (p *fakeProvider) ByIPCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.byIPCalls
}
