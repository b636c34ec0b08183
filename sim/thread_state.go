package sim

import (
	"sync"

	"go.uber.org/atomic"
)

// threadState holds one worker thread's hosts for the current round.
//
// Each host moves unprocessed -> running -> processed during a round. When
// the round barrier advances, processed becomes the next round's unprocessed.
// Any access from a thread other than the owner requires holding mu.
type threadState struct {
	index int
	mu    sync.Mutex

	unprocessed []*hostState
	processed   []*hostState
	running     *hostState

	currentBarrier SimTime

	// Mirrors for the unlocked steal probe. Written under mu.
	unprocessedLen atomic.Int64
	barrierSeen    atomic.Uint64
}

func newThreadState(index int) *threadState {
	return &threadState{index: index}
}

// rotateLocked starts a new round for t if barrier has advanced. Leftover
// unprocessed hosts keep their place behind the processed ones.
func (t *threadState) rotateLocked(barrier SimTime) {
	if barrier <= t.currentBarrier {
		return
	}
	t.currentBarrier = barrier
	t.barrierSeen.Store(uint64(barrier))

	leftovers := t.unprocessed
	next := t.processed
	next = append(next, leftovers...)
	t.unprocessed = next
	t.processed = leftovers[:0]
	t.unprocessedLen.Store(int64(len(t.unprocessed)))
}

func (t *threadState) pushUnprocessed(h *hostState) {
	t.unprocessed = append(t.unprocessed, h)
	t.unprocessedLen.Store(int64(len(t.unprocessed)))
}

func (t *threadState) popUnprocessed() *hostState {
	if len(t.unprocessed) == 0 {
		return nil
	}
	h := t.unprocessed[0]
	t.unprocessed[0] = nil
	t.unprocessed = t.unprocessed[1:]
	t.unprocessedLen.Store(int64(len(t.unprocessed)))
	return h
}

// mayHaveWork is the best-effort, unlocked check a thief makes before
// paying for the victim's lock. A victim that has not rotated into this
// round yet still holds last round's hosts in processed.
func (t *threadState) mayHaveWork(barrier SimTime) bool {
	return t.unprocessedLen.Load() > 0 || t.barrierSeen.Load() < uint64(barrier)
}

func (t *threadState) allHosts() []*hostState {
	hosts := make([]*hostState, 0, len(t.unprocessed)+len(t.processed)+1)
	hosts = append(hosts, t.unprocessed...)
	hosts = append(hosts, t.processed...)
	if t.running != nil {
		hosts = append(hosts, t.running)
	}
	return hosts
}

// drainLocked finds the next event with time < barrier for thief, first from
// thief's running host, then from the unprocessed hosts of from (thief itself
// or a victim). The caller holds the locks of thief and from.
//
// A host of thief's own with nothing left before the barrier is parked in
// thief's processed list. A victim's host is only taken when it has such an
// event; otherwise it goes to the victim's processed list, so a host changes
// holder only together with an event that runs on the new holder.
//
// onTake is called when a victim's host is taken, before onRun. onRun is
// called with every host an event is returned for.
func drainLocked(thief, from *threadState, barrier SimTime, onTake func(*hostState), onRun func(*hostState)) *Event {
	for {
		if thief.running == nil {
			h := from.popUnprocessed()
			if h == nil {
				return nil
			}
			h.claim(thief.index)
			if from != thief {
				ev := h.queue.PopBefore(barrier)
				if ev == nil {
					h.release(thief.index)
					from.processed = append(from.processed, h)
					continue
				}
				thief.running = h
				if onTake != nil {
					onTake(h)
				}
				if onRun != nil {
					onRun(h)
				}
				return ev
			}
			thief.running = h
		}
		h := thief.running
		if ev := h.queue.PopBefore(barrier); ev != nil {
			if onRun != nil {
				onRun(h)
			}
			return ev
		}
		h.release(thief.index)
		thief.processed = append(thief.processed, h)
		thief.running = nil
	}
}
