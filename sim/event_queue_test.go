package sim

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var noop = TaskFunc(func(*WorkerContext) {})

func eventFor(dst HostID, t SimTime) *Event {
	ev := NewEvent(t, noop)
	ev.src, ev.dst = dst, dst
	return ev
}

func TestNewEvent_NilTask_Panics(t *testing.T) {
	assert.Panics(t, func() { NewEvent(1, nil) })
}

func TestEvent_DelayTo(t *testing.T) {
	ev := eventFor(1, 10)
	ev.delayTo(10)
	ev.delayTo(25)
	assert.Equal(t, SimTime(25), ev.Time())
	assert.Panics(t, func() { ev.delayTo(5) }, "delay may not move an event back")

	ev.popped = true
	assert.Panics(t, func() { ev.delayTo(30) }, "delay after delivery")
}

func TestSimTime_String(t *testing.T) {
	assert.Equal(t, "1500ns", SimTime(1500).String())
	assert.Equal(t, "inf", SimTimeInvalid.String())
	assert.Equal(t, "host_7", HostID(7).String())
}

// TestEventQueue_TimestampOrdering tests that events pop in time order
func TestEventQueue_TimestampOrdering(t *testing.T) {
	q := NewEventQueue(3)
	for _, ts := range []SimTime{100, 50, 150} {
		q.Push(eventFor(3, ts))
	}

	for _, want := range []SimTime{50, 100, 150} {
		ev := q.Pop()
		require.NotNil(t, ev)
		if ev.Time() != want {
			t.Errorf("popped t=%s, want %s", ev.Time(), want)
		}
	}
	assert.Nil(t, q.Pop())
	assert.Equal(t, 0, q.Len())
}

// TestEventQueue_SameTime_FIFOBySequence tests that ties pop in push order
func TestEventQueue_SameTime_FIFOBySequence(t *testing.T) {
	q := NewEventQueue(0)
	pushed := make([]*Event, 5)
	for i := range pushed {
		pushed[i] = eventFor(0, 42)
		q.Push(pushed[i])
	}
	for i := range pushed {
		ev := q.Pop()
		assert.Same(t, pushed[i], ev)
		assert.Equal(t, uint64(i+1), ev.Sequence())
	}
}

func TestEventQueue_Push_WrongHost_Panics(t *testing.T) {
	q := NewEventQueue(1)
	assert.Panics(t, func() { q.Push(eventFor(2, 5)) })
}

func TestEventQueue_Push_PoppedEvent_Panics(t *testing.T) {
	q := NewEventQueue(1)
	q.Push(eventFor(1, 5))
	ev := q.Pop()
	assert.Panics(t, func() { q.Push(ev) })
}

func TestEventQueue_PopBehindLastPopped_Panics(t *testing.T) {
	// GIVEN a queue that has already popped t=100
	q := NewEventQueue(0)
	q.Push(eventFor(0, 100))
	q.Pop()
	assert.Equal(t, SimTime(100), q.LastPoppedTime())

	// WHEN an event in the host's past is pushed and popped
	q.Push(eventFor(0, 99))

	// THEN the pop panics rather than run it out of order
	assert.Panics(t, func() { q.Pop() })
}

func TestEventQueue_PopBefore_RespectsBarrier(t *testing.T) {
	q := NewEventQueue(0)
	q.Push(eventFor(0, 10))
	q.Push(eventFor(0, 20))

	assert.Nil(t, q.PopBefore(10), "barrier is exclusive")
	ev := q.PopBefore(11)
	require.NotNil(t, ev)
	assert.Equal(t, SimTime(10), ev.Time())
	assert.Nil(t, q.PopBefore(20))

	next, ok := q.PeekTime()
	assert.True(t, ok)
	assert.Equal(t, SimTime(20), next)
	assert.Equal(t, SimTime(20), q.Peek().Time())
}

func TestEventQueue_Empty(t *testing.T) {
	q := NewEventQueue(0)
	assert.Nil(t, q.Peek())
	assert.Nil(t, q.Pop())
	assert.Nil(t, q.PopBefore(SimTimeInvalid))
	next, ok := q.PeekTime()
	assert.False(t, ok)
	assert.Equal(t, SimTimeInvalid, next)
}

func TestEventQueue_ConcurrentPush_UniqueSequences(t *testing.T) {
	// GIVEN 8 producers pushing into one host's queue at the same time
	const producers, perProducer = 8, 500
	q := NewEventQueue(0)
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Push(eventFor(0, SimTime(i%7)))
			}
		}()
	}
	wg.Wait()

	// THEN every event got its own sequence and pops are (time, sequence) ordered
	seen := make(map[uint64]bool)
	var prev *Event
	for ev := q.Pop(); ev != nil; ev = q.Pop() {
		assert.False(t, seen[ev.Sequence()])
		seen[ev.Sequence()] = true
		if prev != nil {
			assert.True(t, prev.before(ev), "%s popped before %s", prev, ev)
		}
		prev = ev
	}
	assert.Len(t, seen, producers*perProducer)
	assert.Equal(t, QueueStats{Pushed: producers * perProducer, Popped: producers * perProducer}, q.Stats())
}
