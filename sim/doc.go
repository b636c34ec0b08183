// Package sim provides the parallel event scheduling engine for hostsim.
//
// # Reading Guide
//
// Start with these files to understand the engine:
//   - event.go, event_queue.go: Events and the per-host (time, sequence) queue
//   - policy_host_steal.go: host assignment, per-round host lists and work stealing
//   - scheduler.go: the round protocol between the coordinator and the workers
//   - worker.go: the per-thread pop/run loop and the WorkerContext given to tasks
//
// # Ordering rules
//
// Within one host, events run in non-decreasing (time, sequence) order and a
// host never runs on two threads at once. Across hosts the only guarantee is
// the round barrier: an event sent to another host during the round [start,
// end) is delivered no earlier than end.
//
// Invariant violations (out-of-order pop, over-arrived barrier, a host
// claimed by two threads) panic. They mean the scheduler or a caller is
// broken and the run's ordering can no longer be trusted.
//
// # Sub-packages
//
//   - sim/latency/: minimum inter-host latency oracles and topology files
//   - sim/workload/: synthetic event producers (PHOLD, ring)
//   - sim/trace/: round-by-round trace recording
package sim
