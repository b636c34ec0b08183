package sim

import (
	"fmt"
	"sort"
)

// GlobalSinglePolicy keeps every event of every host in one queue and runs
// them in global (time, sequence) order on a single thread. It is the
// reference ordering the parallel policies are compared against.
type GlobalSinglePolicy struct {
	hosts map[HostID]bool
	queue *EventQueue
}

// NewGlobalSinglePolicy creates a global-single policy.
func NewGlobalSinglePolicy() *GlobalSinglePolicy {
	return &GlobalSinglePolicy{
		hosts: make(map[HostID]bool),
		queue: newGlobalEventQueue(),
	}
}

// AddHost implements Policy.
func (p *GlobalSinglePolicy) AddHost(host HostID, thread int) {
	if thread != 0 {
		panic(fmt.Sprintf("GlobalSinglePolicy.AddHost: %s assigned to thread %d", host, thread))
	}
	if p.hosts[host] {
		panic(fmt.Sprintf("AddHost: %s already registered", host))
	}
	p.hosts[host] = true
}

// AssignedHosts implements Policy.
func (p *GlobalSinglePolicy) AssignedHosts(_ int) []HostID {
	ids := make([]HostID, 0, len(p.hosts))
	for id := range p.hosts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Push implements Policy.
func (p *GlobalSinglePolicy) Push(ev *Event, src, dst HostID, barrier SimTime) {
	if !p.hosts[dst] {
		panic(fmt.Sprintf("%s is not registered", dst))
	}
	applyCausalityDelay(ev, src, dst, barrier)
	p.queue.Push(ev)
}

// Pop implements Policy.
func (p *GlobalSinglePolicy) Pop(_ int, barrier SimTime) *Event {
	return p.queue.PopBefore(barrier)
}

// NextTime implements Policy.
func (p *GlobalSinglePolicy) NextTime(_ int) SimTime {
	t, _ := p.queue.PeekTime()
	return t
}

// Stats implements Policy.
func (p *GlobalSinglePolicy) Stats() PolicyStats {
	return PolicyStats{}
}
