package workload

import (
	"fmt"
	"math/rand/v2"

	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/hostsim/hostsim/sim"
	"github.com/hostsim/hostsim/sim/latency"
)

// hostStream is the per-host generator state. It is only touched by events
// of its own host, which never run on two threads at once.
type hostStream struct {
	id    sim.HostID
	rng   *rand.Rand
	delay distuv.Exponential

	lastTime sim.SimTime
	sink     uint64

	active     atomic.Int32 // thread index + 1 while an event runs, else 0
	processed  atomic.Uint64
	violations atomic.Uint64
}

// Generator drives one workload on a scheduler and checks the per-host
// ordering guarantees as its events run.
type Generator struct {
	spec  WorkloadSpec
	model latency.Model
	hosts []*hostStream
}

// Stats summarizes what the workload observed.
type Stats struct {
	Processed  uint64 // events run across all hosts
	Violations uint64 // out-of-order or concurrent executions seen by a host
}

// NewGenerator validates spec and builds per-host streams seeded from
// spec.Seed. model must not be nil.
func NewGenerator(spec WorkloadSpec, model latency.Model) (*Generator, error) {
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid workload: %w", err)
	}
	if model == nil {
		return nil, fmt.Errorf("workload %s needs a latency model", spec.Kind)
	}
	rngs := sim.NewPartitionedRNG(sim.NewSimulationKey(spec.Seed))
	g := &Generator{spec: spec, model: model, hosts: make([]*hostStream, spec.Hosts)}
	rate := 1 / float64(spec.MeanDelay.Nanoseconds())
	for i := range g.hosts {
		id := sim.HostID(i)
		rng := rngs.ForHost(id)
		g.hosts[i] = &hostStream{
			id:    id,
			rng:   rng,
			delay: distuv.Exponential{Rate: rate, Src: rng},
		}
	}
	return g, nil
}

// Spec returns the workload spec.
func (g *Generator) Spec() WorkloadSpec { return g.spec }

// Install registers every host with s (round-robin over threads) and
// schedules the initial events. Must be called before s.Run.
func (g *Generator) Install(s *sim.Scheduler) error {
	for _, h := range g.hosts {
		if err := s.RegisterHost(h.id, -1); err != nil {
			return fmt.Errorf("installing %s workload: %w", g.spec.Kind, err)
		}
	}
	var scheduled, dropped int
	for _, h := range g.hosts {
		for i := 0; i < g.spec.EventsPerHost; i++ {
			at := g.drawDelay(h)
			if s.ScheduleEvent(sim.NewEvent(at, g.task(h)), h.id, h.id) {
				scheduled++
			} else {
				dropped++
			}
		}
	}
	logrus.Infof("Installed %s workload: hosts=%d, initial events=%d (dropped %d)",
		g.spec.Kind, len(g.hosts), scheduled, dropped)
	return nil
}

// Stats returns the totals observed so far.
func (g *Generator) Stats() Stats {
	var st Stats
	for _, h := range g.hosts {
		st.Processed += h.processed.Load()
		st.Violations += h.violations.Load()
	}
	return st
}

// HostProcessed returns the number of events run on host id.
func (g *Generator) HostProcessed(id sim.HostID) uint64 {
	return g.hosts[id].processed.Load()
}

func (g *Generator) task(h *hostStream) sim.Task {
	if g.spec.Kind == KindRing {
		return &ringTask{g: g, host: h}
	}
	return &pholdTask{g: g, host: h}
}

// drawDelay returns an exponentially distributed delay of at least 1ns.
func (g *Generator) drawDelay(h *hostStream) sim.SimTime {
	d := h.delay.Rand()
	if d < 1 {
		return 1
	}
	return sim.SimTime(d)
}

// enter records the start of an event on h and checks the host's ordering
// guarantees. The returned func must be called when the event is done.
func (g *Generator) enter(h *hostStream, wc *sim.WorkerContext) func() {
	thread := int32(wc.ThreadIndex()) + 1
	if !h.active.CompareAndSwap(0, thread) {
		h.violations.Inc()
		logrus.Errorf("%s ran on thread %d while active on thread %d", h.id, thread-1, h.active.Load()-1)
	}
	if wc.Now() < h.lastTime {
		h.violations.Inc()
		logrus.Errorf("%s ran event at %s after %s", h.id, wc.Now(), h.lastTime)
	}
	h.lastTime = wc.Now()
	for i := 0; i < g.spec.Work; i++ {
		h.sink += uint64(i) ^ h.sink
	}
	return func() {
		h.processed.Inc()
		h.active.CompareAndSwap(thread, 0)
	}
}

// send schedules task on dst after delay plus the link latency.
func (g *Generator) send(wc *sim.WorkerContext, src, dst *hostStream, delay sim.SimTime) {
	wc.Schedule(dst.id, delay+g.model.Latency(src.id, dst.id), g.task(dst))
}
