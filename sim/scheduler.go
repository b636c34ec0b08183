package sim

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/hostsim/hostsim/sim/trace"
)

// LatencyOracle reports the smallest latency between any two distinct hosts.
// The scheduler uses it to size round windows.
type LatencyOracle interface {
	MinInterHostLatency() SimTime
}

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithLatencyOracle sets the source of the minimum inter-host latency.
// Without one, windows are sized by the configured runahead floor alone.
func WithLatencyOracle(o LatencyOracle) Option {
	return func(s *Scheduler) { s.oracle = o }
}

// WithMigrationHook sets the callback fired when a host moves between
// worker threads, so thread-affine host resources can follow it.
func WithMigrationHook(hook MigrationHook) Option {
	return func(s *Scheduler) { s.userHook = hook }
}

// WithRegistry registers the scheduler's prometheus metrics on reg instead
// of a private registry.
func WithRegistry(reg prometheus.Registerer) Option {
	return func(s *Scheduler) { s.registry = reg }
}

// WithTrace records rounds and migrations into st.
func WithTrace(st *trace.SimulationTrace) Option {
	return func(s *Scheduler) { s.trace = st }
}

// WithClock sets the clock used for wall-time measurements. Simulated time
// never reads it.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Scheduler) { s.clock = clock }
}

// WithRunID overrides the generated run identifier.
func WithRunID(id string) Option {
	return func(s *Scheduler) { s.runID = id }
}

// Scheduler owns the worker threads, the host registry and the round
// window. One goroutine (the caller of Run) coordinates rounds; workers run
// events in parallel inside each round.
//
// Round protocol, with N workers and the coordinator as party N+1:
//
//	coordinator                      workers
//	set window
//	startBarrier ------------------- startBarrier
//	                                 pop/run events < window.End
//	eventsDone --------------------- eventsDone
//	reset startBarrier               nextTime = policy.NextTime(self)
//	collected ---------------------- collected
//	reset eventsDone, collected      (back to startBarrier)
//	min(nextTime) -> next window
//
// When the next window would start at or after the end time, the
// coordinator clears running, releases startBarrier once more and meets the
// workers at finishBarrier.
type Scheduler struct {
	cfg      SchedulerConfig
	policy   Policy
	oracle   LatencyOracle
	userHook MigrationHook
	registry prometheus.Registerer
	trace    *trace.SimulationTrace
	clock    clockwork.Clock
	runID    string

	coord   *roundCoordinator
	workers []*Worker

	hosts      map[HostID]int
	nextThread int

	window  RoundWindow
	running atomic.Bool
	started atomic.Bool
	dropped atomic.Uint64

	startBarrier  *Barrier
	eventsDone    *Barrier
	collected     *Barrier
	finishBarrier *Barrier

	collectors *collectors
	log        *logrus.Entry
}

// NewScheduler validates cfg and builds a scheduler with its workers. No
// goroutine is started until Run.
func NewScheduler(cfg SchedulerConfig, opts ...Option) (*Scheduler, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scheduler config: %w", err)
	}
	s := &Scheduler{
		cfg:   cfg,
		hosts: make(map[HostID]int),
		coord: newRoundCoordinator(cfg.EndTime, cfg.MinRunahead),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.runID == "" {
		s.runID = uuid.NewString()
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	s.log = logrus.WithField("run", s.runID)

	policy, err := NewPolicy(cfg.Policy, cfg.Workers, s.onHostMigrated)
	if err != nil {
		return nil, err
	}
	s.policy = policy
	s.collectors = newCollectors(s.registry, cfg.Policy)

	parties := cfg.Workers + 1
	s.startBarrier = NewBarrier(parties)
	s.eventsDone = NewBarrier(parties)
	s.collected = NewBarrier(parties)
	s.finishBarrier = NewBarrier(parties)

	s.workers = make([]*Worker, cfg.Workers)
	for i := range s.workers {
		s.workers[i] = newWorker(i, s)
	}
	return s, nil
}

// RunID returns the identifier attached to this run's logs, metrics and trace.
func (s *Scheduler) RunID() string { return s.runID }

// Config returns the effective configuration.
func (s *Scheduler) Config() SchedulerConfig { return s.cfg }

// Policy returns the scheduling policy.
func (s *Scheduler) Policy() Policy { return s.policy }

// Workers returns the worker threads.
func (s *Scheduler) Workers() []*Worker { return s.workers }

// Window returns the current (or last) round window.
func (s *Scheduler) Window() RoundWindow { return s.window }

// Hosts returns all registered host IDs in ascending order.
func (s *Scheduler) Hosts() []HostID {
	ids := make([]HostID, 0, len(s.hosts))
	for id := range s.hosts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// RegisterHost adds host to the simulation. A non-negative hint picks the
// worker thread (modulo the worker count); a negative hint assigns threads
// round-robin. Hosts must be registered before Run.
func (s *Scheduler) RegisterHost(host HostID, hint int) error {
	if s.started.Load() {
		return fmt.Errorf("cannot register %s: run already started", host)
	}
	if _, exists := s.hosts[host]; exists {
		return fmt.Errorf("%s already registered", host)
	}
	thread := hint
	if thread < 0 {
		thread = s.nextThread
		s.nextThread = (s.nextThread + 1) % s.cfg.Workers
	} else {
		thread %= s.cfg.Workers
	}
	s.hosts[host] = thread
	s.policy.AddHost(host, thread)
	return nil
}

// ScheduleEvent delivers ev from src to dst. Cross-host events due before the
// current round's end are delayed to it. Events due after the simulation end
// time are dropped; the return value reports whether ev was enqueued.
//
// Before Run, and from tasks running on workers, this is safe to call. It
// must not be called from other goroutines while a run is in progress.
func (s *Scheduler) ScheduleEvent(ev *Event, src, dst HostID) bool {
	barrier := s.window.End
	if t := deliveryTime(ev, src, dst, barrier); t > s.cfg.EndTime {
		s.dropped.Inc()
		s.collectors.eventsDropped.Inc()
		logrus.Tracef("dropping event %s->%s at %s: after end time %s", src, dst, t, s.cfg.EndTime)
		return false
	}
	s.policy.Push(ev, src, dst, barrier)
	return true
}

func (s *Scheduler) onHostMigrated(host HostID, oldThread, newThread int) {
	s.collectors.migrations.Inc()
	if s.trace.Enabled() {
		s.trace.RecordMigration(trace.MigrationRecord{
			Round:     s.coord.Rounds(),
			HostID:    uint32(host),
			OldThread: oldThread,
			NewThread: newThread,
		})
	}
	if s.userHook != nil {
		s.userHook(host, oldThread, newThread)
	}
}

// Run drives the simulation to the end time and returns the run metrics. It
// blocks until every worker has terminated. Cancelling ctx stops the run at
// the next round boundary; the metrics so far are returned with ctx's error.
func (s *Scheduler) Run(ctx context.Context) (*Metrics, error) {
	if !s.started.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("scheduler %s already ran", s.runID)
	}
	s.log.Infof("Starting run: workers=%d, policy=%s, hosts=%d, end=%s, runahead=%s",
		s.cfg.Workers, s.cfg.Policy, len(s.hosts), s.cfg.EndTime, s.cfg.MinRunahead)
	wallStart := s.clock.Now()

	s.running.Store(true)
	var eg errgroup.Group
	for _, w := range s.workers {
		eg.Go(func() error {
			w.run()
			return nil
		})
	}

	next := s.globalNextTime()
	var err error
	for {
		if err = ctx.Err(); err != nil {
			s.log.Warnf("Run cancelled before %s: %v", next, err)
			break
		}
		if s.oracle != nil {
			s.coord.UpdateMinTimeJump(s.oracle.MinInterHostLatency())
		}
		window, ok := s.coord.Next(next)
		if !ok {
			break
		}
		next = s.runRound(window)
	}

	s.running.Store(false)
	s.startBarrier.ArriveAndWait()
	s.finishBarrier.ArriveAndWait()
	if waitErr := eg.Wait(); waitErr != nil && err == nil {
		err = waitErr
	}

	m := s.buildMetrics(s.clock.Since(wallStart), next)
	s.log.Infof("Run complete: rounds=%d, events=%d, dropped=%d, steals=%d, migrations=%d",
		m.Rounds, m.EventsExecuted, m.EventsDropped, m.Steals, m.Migrations)
	return m, err
}

// runRound releases the workers for one window and returns the earliest
// pending event time once they are all done.
func (s *Scheduler) runRound(window RoundWindow) SimTime {
	s.window = window
	s.collectors.windowEnd.Set(float64(window.End))
	eventsBefore := s.eventsExecuted()
	stealsBefore := s.policy.Stats().Steals
	roundStart := s.clock.Now()

	s.startBarrier.ArriveAndWait()
	s.eventsDone.ArriveAndWait()
	s.startBarrier.Reset()
	s.collected.ArriveAndWait()
	s.eventsDone.Reset()
	s.collected.Reset()

	s.collectors.roundDuration.Observe(s.clock.Since(roundStart).Seconds())
	s.collectors.rounds.Inc()

	next := SimTimeInvalid
	for _, w := range s.workers {
		next = min(next, w.nextTime)
	}

	eventsRun := s.eventsExecuted() - eventsBefore
	steals := s.policy.Stats().Steals - stealsBefore
	s.collectors.steals.Add(float64(steals))
	s.log.Debugf("Round %d %s: events=%d, steals=%d, next=%s",
		s.coord.Rounds(), window, eventsRun, steals, next)
	if s.trace.Enabled() {
		s.trace.RecordRound(trace.RoundRecord{
			Index:            s.coord.Rounds(),
			Start:            uint64(window.Start),
			End:              uint64(window.End),
			MinNextEventTime: uint64(next),
			EventsRun:        eventsRun,
			Steals:           steals,
		})
	}
	return next
}

// globalNextTime reduces every thread's earliest pending event with min.
// Only valid while no worker is touching the policy.
func (s *Scheduler) globalNextTime() SimTime {
	next := SimTimeInvalid
	for i := range s.workers {
		next = min(next, s.policy.NextTime(i))
	}
	return next
}

func (s *Scheduler) eventsExecuted() uint64 {
	var total uint64
	for _, w := range s.workers {
		total += w.EventsRun()
	}
	return total
}
