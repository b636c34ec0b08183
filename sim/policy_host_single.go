package sim

// HostSinglePolicy pins every host to the thread it was assigned to. Only
// the owning worker touches a thread's host lists, so no thread locks are
// taken; host queues are still shared with producers on other threads.
//
// AssignedHosts and NextTime read the lists unlocked and may also be called
// from the coordinator. That is only safe while the owning worker is parked
// on a barrier (before the first round, or between eventsDone and the next
// startBarrier); the barrier's mutex orders the worker's writes before the
// read.
type HostSinglePolicy struct {
	hosts   hostRegistry
	threads []*threadState
}

// NewHostSinglePolicy creates a host-single policy for the given thread count.
// Hosts never move, so the migration hook is accepted and ignored.
func NewHostSinglePolicy(threads int, _ MigrationHook) *HostSinglePolicy {
	p := &HostSinglePolicy{
		hosts:   make(hostRegistry),
		threads: make([]*threadState, threads),
	}
	for i := range p.threads {
		p.threads[i] = newThreadState(i)
	}
	return p
}

// AddHost implements Policy.
func (p *HostSinglePolicy) AddHost(host HostID, thread int) {
	h := p.hosts.add(host, thread)
	p.threads[thread].pushUnprocessed(h)
}

// AssignedHosts implements Policy.
func (p *HostSinglePolicy) AssignedHosts(thread int) []HostID {
	return sortedHostIDs(p.threads[thread].allHosts())
}

// Push implements Policy.
func (p *HostSinglePolicy) Push(ev *Event, src, dst HostID, barrier SimTime) {
	p.hosts.push(ev, src, dst, barrier)
}

// Pop implements Policy.
func (p *HostSinglePolicy) Pop(thread int, barrier SimTime) *Event {
	t := p.threads[thread]
	t.rotateLocked(barrier)
	return drainLocked(t, t, barrier, nil, nil)
}

// NextTime implements Policy. Same caller rule as AssignedHosts.
func (p *HostSinglePolicy) NextTime(thread int) SimTime {
	return minQueueTime(SimTimeInvalid, p.threads[thread].allHosts()...)
}

// Stats implements Policy. Nothing is ever stolen or migrated.
func (p *HostSinglePolicy) Stats() PolicyStats {
	return PolicyStats{}
}
