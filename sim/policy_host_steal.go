package sim

import (
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
)

// HostStealPolicy assigns each host to a worker thread and lets a thread
// that has drained its own hosts steal unprocessed hosts from other threads.
// A stolen host stays with the thief for the following rounds.
type HostStealPolicy struct {
	hosts   hostRegistry
	threads []*threadState
	hook    MigrationHook

	stealAttempts atomic.Uint64
	steals        atomic.Uint64
	migrations    atomic.Uint64
}

// NewHostStealPolicy creates a host-steal policy for the given thread count.
func NewHostStealPolicy(threads int, hook MigrationHook) *HostStealPolicy {
	p := &HostStealPolicy{
		hosts:   make(hostRegistry),
		threads: make([]*threadState, threads),
		hook:    hook,
	}
	for i := range p.threads {
		p.threads[i] = newThreadState(i)
	}
	return p
}

// AddHost implements Policy.
func (p *HostStealPolicy) AddHost(host HostID, thread int) {
	t := p.threads[thread]
	h := p.hosts.add(host, thread)
	t.mu.Lock()
	if t.running != h {
		t.pushUnprocessed(h)
	}
	t.mu.Unlock()
}

// AssignedHosts implements Policy.
func (p *HostStealPolicy) AssignedHosts(thread int) []HostID {
	t := p.threads[thread]
	t.mu.Lock()
	defer t.mu.Unlock()
	return sortedHostIDs(t.allHosts())
}

// Push implements Policy.
func (p *HostStealPolicy) Push(ev *Event, src, dst HostID, barrier SimTime) {
	p.hosts.push(ev, src, dst, barrier)
}

// Pop implements Policy.
func (p *HostStealPolicy) Pop(thread int, barrier SimTime) *Event {
	self := p.threads[thread]
	onRun := func(h *hostState) { p.adopt(h, self.index) }

	self.mu.Lock()
	self.rotateLocked(barrier)
	ev := drainLocked(self, self, barrier, nil, onRun)
	self.mu.Unlock()
	if ev != nil {
		return ev
	}

	n := len(p.threads)
	for i := 1; i < n; i++ {
		victim := p.threads[(self.index+i)%n]
		if !victim.mayHaveWork(barrier) {
			continue
		}
		p.stealAttempts.Inc()
		unlock := lockOrdered(self, victim)
		victim.rotateLocked(barrier)
		ev := drainLocked(self, victim, barrier, func(h *hostState) {
			p.steals.Inc()
			logrus.Tracef("thread %d stole %s from thread %d", self.index, h.id, victim.index)
		}, onRun)
		unlock()
		if ev != nil {
			return ev
		}
	}
	return nil
}

// adopt records thread as the host's owner, firing the migration hook when
// ownership changes. Called with the new owner's lock held.
func (p *HostStealPolicy) adopt(h *hostState, thread int) {
	old := int(h.owner.Load())
	if old == thread {
		return
	}
	h.owner.Store(int32(thread))
	p.migrations.Inc()
	if p.hook != nil {
		p.hook(h.id, old, thread)
	}
}

// NextTime implements Policy.
func (p *HostStealPolicy) NextTime(thread int) SimTime {
	t := p.threads[thread]
	t.mu.Lock()
	defer t.mu.Unlock()
	return minQueueTime(SimTimeInvalid, t.allHosts()...)
}

// Stats implements Policy.
func (p *HostStealPolicy) Stats() PolicyStats {
	return PolicyStats{
		StealAttempts: p.stealAttempts.Load(),
		Steals:        p.steals.Load(),
		Migrations:    p.migrations.Load(),
	}
}

// HostOwner returns the thread host last ran on.
func (p *HostStealPolicy) HostOwner(host HostID) int {
	return int(p.hosts.lookup(host).owner.Load())
}
