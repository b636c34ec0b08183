package sim

import (
	"container/heap"
	"fmt"
	"sync"

	"go.uber.org/atomic"
)

// eventHeap implements heap.Interface ordered by (time, sequence).
// See canonical Golang example here: https://pkg.go.dev/container/heap#example-package-IntHeap
type eventHeap []*Event

func (h eventHeap) Len() int           { return len(h) }
func (h eventHeap) Less(i, j int) bool { return h[i].before(h[j]) }
func (h eventHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(*Event))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[0 : n-1]
	return item
}

// EventQueue is one host's pending events. Every operation takes the queue's
// own mutex for a single push, peek or pop.
type EventQueue struct {
	host   HostID
	global bool // holds events for every host

	mu             sync.Mutex
	events         eventHeap
	lastPoppedTime SimTime
	pushSequence   uint64

	pushed atomic.Uint64
	popped atomic.Uint64
}

// NewEventQueue creates an empty queue for host.
func NewEventQueue(host HostID) *EventQueue {
	q := &EventQueue{
		host:   host,
		events: make(eventHeap, 0),
	}
	heap.Init(&q.events)
	return q
}

// newGlobalEventQueue creates one queue shared by all hosts.
func newGlobalEventQueue() *EventQueue {
	q := NewEventQueue(0)
	q.global = true
	return q
}

// Host returns the host this queue belongs to.
func (q *EventQueue) Host() HostID { return q.host }

// Push stores ev and stamps it with the next push sequence number. The
// caller must have applied any causality delay already.
func (q *EventQueue) Push(ev *Event) {
	if !q.global && ev.dst != q.host {
		panic(fmt.Sprintf("EventQueue.Push: %s pushed to queue of %s", ev, q.host))
	}
	if ev.popped {
		panic(fmt.Sprintf("EventQueue.Push: %s was already delivered", ev))
	}
	q.mu.Lock()
	q.pushSequence++
	ev.sequence = q.pushSequence
	heap.Push(&q.events, ev)
	q.mu.Unlock()
	q.pushed.Inc()
}

// Peek returns the next event without removing it, or nil when empty.
// The returned event stays owned by the queue.
func (q *EventQueue) Peek() *Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) == 0 {
		return nil
	}
	return q.events[0]
}

// PeekTime returns the time of the next event.
func (q *EventQueue) PeekTime() (SimTime, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) == 0 {
		return SimTimeInvalid, false
	}
	return q.events[0].time, true
}

// Pop removes and returns the next event, or nil when empty.
func (q *EventQueue) Pop() *Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) == 0 {
		return nil
	}
	return q.popLocked()
}

// PopBefore removes and returns the next event if its time is strictly
// before barrier. Peek and pop happen under one lock hold.
func (q *EventQueue) PopBefore(barrier SimTime) *Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) == 0 || q.events[0].time >= barrier {
		return nil
	}
	return q.popLocked()
}

func (q *EventQueue) popLocked() *Event {
	ev := heap.Pop(&q.events).(*Event)
	if ev.time < q.lastPoppedTime {
		panic(fmt.Sprintf("EventQueue.Pop: %s popped %s before last popped time %s",
			q.host, ev, q.lastPoppedTime))
	}
	q.lastPoppedTime = ev.time
	ev.popped = true
	q.popped.Inc()
	return ev
}

// Len returns the number of pending events.
func (q *EventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// LastPoppedTime returns the high-water mark of popped event times.
func (q *EventQueue) LastPoppedTime() SimTime {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lastPoppedTime
}

// QueueStats are diagnostic push/pop counters.
type QueueStats struct {
	Pushed uint64
	Popped uint64
}

// Stats returns the queue's push/pop counters.
func (q *EventQueue) Stats() QueueStats {
	return QueueStats{Pushed: q.pushed.Load(), Popped: q.popped.Load()}
}
