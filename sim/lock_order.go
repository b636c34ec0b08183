package sim

import "fmt"

// lockOrdered locks two thread states, always the lower index first, and
// returns the matching unlock. Two threads stealing from each other at the
// same moment therefore contend on the same first lock instead of each
// holding one lock and waiting for the other.
//
// This is the only place in the package that holds two thread locks.
func lockOrdered(a, b *threadState) (unlock func()) {
	if a == b || a.index == b.index {
		panic(fmt.Sprintf("lockOrdered: thread %d locked against itself", a.index))
	}
	first, second := a, b
	if second.index < first.index {
		first, second = second, first
	}
	first.mu.Lock()
	second.mu.Lock()
	return func() {
		second.mu.Unlock()
		first.mu.Unlock()
	}
}
