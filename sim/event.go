package sim

import (
	"fmt"
	"math"
	"strconv"
)

// SimTime is simulated time in nanoseconds since the simulation started.
type SimTime uint64

// SimTimeInvalid is the "no pending event" sentinel. It compares greater than
// every real simulation time, so it is the identity for min-reductions.
const SimTimeInvalid SimTime = math.MaxUint64

// Common SimTime units.
const (
	Nanosecond  SimTime = 1
	Microsecond         = 1000 * Nanosecond
	Millisecond         = 1000 * Microsecond
	Second              = 1000 * Millisecond
)

func (t SimTime) String() string {
	if t == SimTimeInvalid {
		return "inf"
	}
	return strconv.FormatUint(uint64(t), 10) + "ns"
}

// HostID identifies a simulated host. Hosts are the unit of serial execution.
type HostID uint32

func (h HostID) String() string {
	return fmt.Sprintf("host_%d", uint32(h))
}

// Task is the opaque action carried by an Event. The scheduler never looks
// inside it; it only calls Run on the worker that popped the event.
type Task interface {
	Run(wc *WorkerContext)
}

// TaskFunc adapts a plain function to the Task interface.
type TaskFunc func(wc *WorkerContext)

// Run calls f(wc).
func (f TaskFunc) Run(wc *WorkerContext) { f(wc) }

// Event is a timestamped unit of work destined for one host.
//
// Ownership moves with the pointer: the producer owns an Event until it is
// pushed, the destination host's EventQueue owns it while enqueued, and the
// worker that pops it owns it until Run returns. Nothing retains it after that.
type Event struct {
	src      HostID
	dst      HostID
	time     SimTime
	sequence uint64 // assigned by the destination queue on push
	popped   bool
	task     Task
}

// NewEvent creates an event at the tentative time t. Source and destination
// are set when the event is scheduled, which may also raise its time under
// the causality rule.
func NewEvent(t SimTime, task Task) *Event {
	if task == nil {
		panic("NewEvent: task must not be nil")
	}
	return &Event{time: t, task: task}
}

// Time returns the event's delivery time.
func (e *Event) Time() SimTime { return e.time }

// Sequence returns the per-destination push sequence, or 0 if never pushed.
func (e *Event) Sequence() uint64 { return e.sequence }

// Source returns the host that produced the event.
func (e *Event) Source() HostID { return e.src }

// Destination returns the host the event will run on.
func (e *Event) Destination() HostID { return e.dst }

// delayTo raises the event time to t. Lowering is a caller bug.
func (e *Event) delayTo(t SimTime) {
	if e.popped {
		panic(fmt.Sprintf("Event.delayTo: event for %s already popped at %s", e.dst, e.time))
	}
	if t < e.time {
		panic(fmt.Sprintf("Event.delayTo: cannot move event for %s back from %s to %s", e.dst, e.time, t))
	}
	e.time = t
}

// before reports whether e sorts ahead of o in (time, sequence) order.
func (e *Event) before(o *Event) bool {
	if e.time != o.time {
		return e.time < o.time
	}
	return e.sequence < o.sequence
}

func (e *Event) String() string {
	return fmt.Sprintf("Event{%s->%s t=%s seq=%d}", e.src, e.dst, e.time, e.sequence)
}
