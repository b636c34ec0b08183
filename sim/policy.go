package sim

import (
	"fmt"
	"sort"

	"go.uber.org/atomic"
)

// PolicyKind selects how hosts are distributed across worker threads.
type PolicyKind string

const (
	// PolicyHostSteal assigns hosts to threads and lets idle threads steal
	// unprocessed hosts from busy ones.
	PolicyHostSteal PolicyKind = "host-steal"
	// PolicyHostSingle assigns hosts to threads permanently; no stealing.
	PolicyHostSingle PolicyKind = "host-single"
	// PolicyGlobalSingle runs every host from one global queue on one thread.
	PolicyGlobalSingle PolicyKind = "global-single"
)

// ValidPolicies is the set of recognized policy names. The empty string
// selects the default (host-steal).
var ValidPolicies = map[string]bool{"": true, "host-steal": true, "host-single": true, "global-single": true}

// MigrationHook is told when a host starts running on a thread other than
// the one it last ran on, before the host's next event runs there.
type MigrationHook func(host HostID, oldThread, newThread int)

// Policy decides which host's next event each worker thread runs.
// Threads are identified by index; each worker passes its own index to every call.
type Policy interface {
	// AddHost registers host and assigns it to thread. Must be called before
	// the run starts.
	AddHost(host HostID, thread int)
	// AssignedHosts lists the hosts currently held by thread, sorted by ID.
	AssignedHosts(thread int) []HostID
	// Push applies the causality delay rule and enqueues ev on dst's queue.
	Push(ev *Event, src, dst HostID, barrier SimTime)
	// Pop returns the next event with time < barrier that thread may run,
	// or nil when there is none left this round.
	Pop(thread int, barrier SimTime) *Event
	// NextTime returns the earliest pending event time over the hosts held
	// by thread, or SimTimeInvalid.
	NextTime(thread int) SimTime
	// Stats returns steal and migration counters.
	Stats() PolicyStats
}

// PolicyStats counts policy-level scheduling decisions.
type PolicyStats struct {
	StealAttempts uint64 // victim locks taken by an idle thread
	Steals        uint64 // hosts taken from a victim; at most one per attempt
	Migrations    uint64
}

// NewPolicy builds the policy for kind with the given number of worker threads.
func NewPolicy(kind PolicyKind, threads int, hook MigrationHook) (Policy, error) {
	if threads < 1 {
		return nil, fmt.Errorf("policy %q needs at least one thread, got %d", kind, threads)
	}
	switch kind {
	case PolicyHostSteal, "":
		return NewHostStealPolicy(threads, hook), nil
	case PolicyHostSingle:
		return NewHostSinglePolicy(threads, hook), nil
	case PolicyGlobalSingle:
		if threads != 1 {
			return nil, fmt.Errorf("policy %q runs on exactly one thread, got %d", kind, threads)
		}
		return NewGlobalSinglePolicy(), nil
	default:
		return nil, fmt.Errorf("unknown policy %q", kind)
	}
}

// deliveryTime is the time ev will be stored with when pushed from src to
// dst during the round ending at barrier. Another host may already have
// executed past ev.time within this round, so cross-host events are raised
// to the barrier; a host's own events are ordered by its serial execution
// and are never delayed.
func deliveryTime(ev *Event, src, dst HostID, barrier SimTime) SimTime {
	if src != dst && ev.time < barrier {
		return barrier
	}
	return ev.time
}

// applyCausalityDelay addresses ev and raises its time per deliveryTime.
func applyCausalityDelay(ev *Event, src, dst HostID, barrier SimTime) {
	ev.src, ev.dst = src, dst
	if t := deliveryTime(ev, src, dst, barrier); t != ev.time {
		ev.delayTo(t)
	}
}

const noThread = -1

// hostState is the policy's bookkeeping for one host.
type hostState struct {
	id    HostID
	queue *EventQueue
	// owner is the thread the host last ran on.
	owner atomic.Int32
	// runningOn is the thread currently draining the host, or noThread.
	runningOn atomic.Int32
}

func newHostState(id HostID, thread int) *hostState {
	h := &hostState{id: id, queue: NewEventQueue(id)}
	h.owner.Store(int32(thread))
	h.runningOn.Store(noThread)
	return h
}

// claim marks the host as running on thread. A host running on two threads
// at once means the policy's bookkeeping is corrupt.
func (h *hostState) claim(thread int) {
	if !h.runningOn.CompareAndSwap(noThread, int32(thread)) {
		panic(fmt.Sprintf("%s claimed by thread %d while running on thread %d",
			h.id, thread, h.runningOn.Load()))
	}
}

func (h *hostState) release(thread int) {
	if !h.runningOn.CompareAndSwap(int32(thread), noThread) {
		panic(fmt.Sprintf("%s released by thread %d but running on thread %d",
			h.id, thread, h.runningOn.Load()))
	}
}

// hostRegistry maps host IDs to their state. It is written only while hosts
// are registered, before any worker runs, and read-only afterwards.
type hostRegistry map[HostID]*hostState

func (r hostRegistry) add(host HostID, thread int) *hostState {
	if _, exists := r[host]; exists {
		panic(fmt.Sprintf("AddHost: %s already registered", host))
	}
	h := newHostState(host, thread)
	r[host] = h
	return h
}

func (r hostRegistry) lookup(host HostID) *hostState {
	h, ok := r[host]
	if !ok {
		panic(fmt.Sprintf("%s is not registered", host))
	}
	return h
}

func (r hostRegistry) push(ev *Event, src, dst HostID, barrier SimTime) {
	h := r.lookup(dst)
	applyCausalityDelay(ev, src, dst, barrier)
	h.queue.Push(ev)
}

func sortedHostIDs(hosts []*hostState) []HostID {
	ids := make([]HostID, 0, len(hosts))
	for _, h := range hosts {
		ids = append(ids, h.id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func minQueueTime(t SimTime, hosts ...*hostState) SimTime {
	for _, h := range hosts {
		if h == nil {
			continue
		}
		if next, ok := h.queue.PeekTime(); ok && next < t {
			t = next
		}
	}
	return t
}
