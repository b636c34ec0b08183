package sim

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestEventQueue_PopOrderProperty verifies pops follow (time, sequence) order.
// Property: for any push sequence, popped events are sorted by time and ties
// keep push order.
func TestEventQueue_PopOrderProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("pops are (time, sequence) ordered", prop.ForAll(
		func(times []uint64) bool {
			q := NewEventQueue(0)
			for _, ts := range times {
				q.Push(eventFor(0, SimTime(ts)))
			}
			var prev *Event
			n := 0
			for ev := q.Pop(); ev != nil; ev = q.Pop() {
				if prev != nil && !prev.before(ev) {
					return false
				}
				prev = ev
				n++
			}
			return n == len(times)
		},
		gen.SliceOf(gen.UInt64Range(0, 50)),
	))

	properties.TestingRun(t)
}

// TestDeliveryTime_Property verifies the causality rule.
// Property: delivery is never earlier than the requested time, a host's own
// events are never moved, and cross-host events never land before the barrier.
func TestDeliveryTime_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	properties.Property("delivery respects causality", prop.ForAll(
		func(src, dst uint32, at, barrier uint64) bool {
			ev := NewEvent(SimTime(at), noop)
			got := deliveryTime(ev, HostID(src), HostID(dst), SimTime(barrier))
			if got < SimTime(at) {
				return false
			}
			if src == dst {
				return got == SimTime(at)
			}
			return got >= SimTime(barrier) && (got == SimTime(at) || got == SimTime(barrier))
		},
		gen.UInt32Range(0, 3),
		gen.UInt32Range(0, 3),
		gen.UInt64Range(0, 1000),
		gen.UInt64Range(0, 1000),
	))

	properties.TestingRun(t)
}

// TestRoundCoordinator_WindowProperty verifies window sizing.
// Property: every window starts at the earliest pending time, is non-empty,
// never passes the end time, and is at least max(floor, latency) long unless
// clamped by the end time.
func TestRoundCoordinator_WindowProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("windows are well formed", prop.ForAll(
		func(floor, latency, next uint64) bool {
			const end = SimTime(10_000)
			c := newRoundCoordinator(end, SimTime(floor))
			c.UpdateMinTimeJump(SimTime(latency))
			w, ok := c.Next(SimTime(next))
			if SimTime(next) >= end {
				return !ok
			}
			jump := max(SimTime(floor), SimTime(latency))
			return ok && w.Start == SimTime(next) && w.End > w.Start && w.End <= end &&
				(w.End == end || w.End-w.Start == jump)
		},
		gen.UInt64Range(1, 500),
		gen.UInt64Range(0, 500),
		gen.UInt64Range(0, 12_000),
	))

	properties.TestingRun(t)
}
