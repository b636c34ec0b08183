package sim

import (
	"fmt"
	"sync"
)

// Barrier is an N-party rendezvous. ArriveAndWait blocks until N callers have
// arrived in the current cycle, then releases all of them.
//
// A released barrier stays full until Reset is called; arriving at a full
// barrier panics. Waiters block on a generation counter rather than the
// arrival count, so Reset may be called as soon as the last arrival returns,
// even while woken waiters are still leaving.
type Barrier struct {
	mu         sync.Mutex
	cond       *sync.Cond
	total      int
	count      int
	generation uint64
}

// NewBarrier creates a barrier for n participants. Panics if n <= 0.
func NewBarrier(n int) *Barrier {
	if n <= 0 {
		panic(fmt.Sprintf("NewBarrier: participant count must be > 0, got %d", n))
	}
	b := &Barrier{total: n}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// ArriveAndWait registers one arrival and blocks until all participants of
// this cycle have arrived.
func (b *Barrier) ArriveAndWait() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count >= b.total {
		panic(fmt.Sprintf("Barrier: over-arrived (%d participants, cycle not reset)", b.total))
	}
	b.count++
	if b.count == b.total {
		b.generation++
		b.cond.Broadcast()
		return
	}
	gen := b.generation
	for gen == b.generation {
		b.cond.Wait()
	}
}

// Reset readies a released barrier for the next cycle. Resetting a barrier
// that has waiters parked in an incomplete cycle panics.
func (b *Barrier) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.count != 0 && b.count != b.total {
		panic(fmt.Sprintf("Barrier: reset with %d of %d participants waiting", b.count, b.total))
	}
	b.count = 0
}

// Participants returns N.
func (b *Barrier) Participants() int { return b.total }

// Arrived returns the number of arrivals in the current cycle.
func (b *Barrier) Arrived() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}
