package sim

import (
	"fmt"
	"runtime"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
)

// WorkerState is the lifecycle state of a worker thread.
type WorkerState string

const (
	WorkerCreated           WorkerState = "created"
	WorkerAwaitingStart     WorkerState = "awaiting_start"
	WorkerRunning           WorkerState = "running"
	WorkerAwaitingNextRound WorkerState = "awaiting_next_round"
	WorkerAwaitingFinish    WorkerState = "awaiting_finish"
	WorkerTerminated        WorkerState = "terminated"
)

// Worker runs events for one thread index. Its fields other than state are
// touched only by its own goroutine while the run is in progress.
type Worker struct {
	index int
	sched *Scheduler

	state atomic.String

	clock      SimTime
	activeHost HostID
	nextTime   SimTime

	eventsRun atomic.Uint64
	executed  prometheus.Counter
}

func newWorker(index int, s *Scheduler) *Worker {
	w := &Worker{index: index, sched: s, nextTime: SimTimeInvalid}
	w.executed = s.collectors.eventsExecuted.WithLabelValues(strconv.Itoa(index))
	w.setState(WorkerCreated)
	return w
}

// Index returns the worker's thread index.
func (w *Worker) Index() int { return w.index }

// State returns the worker's current lifecycle state.
func (w *Worker) State() WorkerState { return WorkerState(w.state.Load()) }

// EventsRun returns how many events this worker has executed.
func (w *Worker) EventsRun() uint64 { return w.eventsRun.Load() }

func (w *Worker) setState(s WorkerState) {
	w.state.Store(string(s))
}

// run is the worker goroutine: one round per iteration until the
// coordinator stops the run.
func (w *Worker) run() {
	s := w.sched
	if s.cfg.PinThreads {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
	}

	w.setState(WorkerAwaitingStart)
	s.startBarrier.ArriveAndWait()

	for s.running.Load() {
		w.setState(WorkerRunning)
		end := s.window.End
		for {
			ev := s.policy.Pop(w.index, end)
			if ev == nil {
				break
			}
			w.execute(ev)
		}

		w.setState(WorkerAwaitingNextRound)
		s.eventsDone.ArriveAndWait()
		w.nextTime = s.policy.NextTime(w.index)
		s.collected.ArriveAndWait()
		s.startBarrier.ArriveAndWait()
	}

	w.setState(WorkerAwaitingFinish)
	s.finishBarrier.ArriveAndWait()
	w.setState(WorkerTerminated)
}

// execute runs one popped event. The worker owns ev until Run returns;
// nothing keeps it afterwards.
func (w *Worker) execute(ev *Event) {
	if ev.time >= w.sched.window.End {
		panic(fmt.Sprintf("Worker %d: popped %s at or after round end %s", w.index, ev, w.sched.window.End))
	}
	w.clock = ev.time
	w.activeHost = ev.dst
	logrus.Tracef("worker %d: running %s", w.index, ev)

	ev.task.Run(&WorkerContext{worker: w})

	w.eventsRun.Inc()
	w.executed.Inc()
}

// WorkerContext is handed to a Task while it runs. It gives access to the
// worker's clock and lets the task schedule follow-up events.
type WorkerContext struct {
	worker *Worker
}

// Now returns the current simulation time on this worker, which is the time
// of the event being run.
func (wc *WorkerContext) Now() SimTime { return wc.worker.clock }

// Host returns the host the current event belongs to.
func (wc *WorkerContext) Host() HostID { return wc.worker.activeHost }

// ThreadIndex returns the index of the worker running the event.
func (wc *WorkerContext) ThreadIndex() int { return wc.worker.index }

// Schedule creates an event for dst at Now()+delay, sent from the current
// host. Cross-host events may be delayed to the end of the round.
func (wc *WorkerContext) Schedule(dst HostID, delay SimTime, task Task) {
	wc.ScheduleAt(dst, wc.Now()+delay, task)
}

// ScheduleAt creates an event for dst at the absolute time at. A host cannot
// schedule into its own past.
func (wc *WorkerContext) ScheduleAt(dst HostID, at SimTime, task Task) {
	if at < wc.Now() {
		panic(fmt.Sprintf("ScheduleAt: %s scheduling at %s before now %s", wc.Host(), at, wc.Now()))
	}
	wc.worker.sched.ScheduleEvent(NewEvent(at, task), wc.Host(), dst)
}
