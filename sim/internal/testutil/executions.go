// Package testutil provides shared test infrastructure for the hostsim
// packages. It does not import sim so that sim's own tests can use it.
package testutil

import (
	"sort"
	"sync"
	"testing"
)

// Execution is one recorded event run.
type Execution struct {
	Host   uint32
	Time   uint64
	Thread int
	Seq    int // global record order
}

// ExecutionLog records event runs from many worker goroutines.
type ExecutionLog struct {
	mu      sync.Mutex
	entries []Execution
	active  map[uint32]int
	overlap int
}

// NewExecutionLog creates an empty log.
func NewExecutionLog() *ExecutionLog {
	return &ExecutionLog{active: make(map[uint32]int)}
}

// Begin marks host as running on thread and records the run. It counts an
// overlap if host is already running elsewhere.
func (l *ExecutionLog) Begin(host uint32, time uint64, thread int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, running := l.active[host]; running {
		l.overlap++
	}
	l.active[host] = thread
	l.entries = append(l.entries, Execution{Host: host, Time: time, Thread: thread, Seq: len(l.entries)})
}

// End marks host as no longer running.
func (l *ExecutionLog) End(host uint32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.active, host)
}

// Len returns the number of recorded runs.
func (l *ExecutionLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Overlaps returns how many runs started while their host was already running.
func (l *ExecutionLog) Overlaps() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.overlap
}

// ByHost returns each host's runs in record order.
func (l *ExecutionLog) ByHost() map[uint32][]Execution {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[uint32][]Execution)
	for _, e := range l.entries {
		out[e.Host] = append(out[e.Host], e)
	}
	return out
}

// Threads returns the distinct threads that ran host, ascending.
func (l *ExecutionLog) Threads(host uint32) []int {
	seen := make(map[int]bool)
	for _, e := range l.ByHost()[host] {
		seen[e.Thread] = true
	}
	threads := make([]int, 0, len(seen))
	for th := range seen {
		threads = append(threads, th)
	}
	sort.Ints(threads)
	return threads
}

// AssertPerHostOrdered fails t if any host ran an event earlier than one it
// had already run.
func AssertPerHostOrdered(t *testing.T, l *ExecutionLog) {
	t.Helper()
	for host, runs := range l.ByHost() {
		for i := 1; i < len(runs); i++ {
			if runs[i].Time < runs[i-1].Time {
				t.Errorf("host %d ran t=%d after t=%d (runs %d, %d)",
					host, runs[i].Time, runs[i-1].Time, runs[i-1].Seq, runs[i].Seq)
				break
			}
		}
	}
}
