package workload

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostsim/hostsim/sim"
	"github.com/hostsim/hostsim/sim/latency"
)

func runWorkload(t *testing.T, spec WorkloadSpec, cfg sim.SchedulerConfig) (*Generator, *sim.Metrics) {
	t.Helper()
	model := latency.NewConstantModel(50 * sim.Microsecond)
	g, err := NewGenerator(spec, model)
	require.NoError(t, err)
	s, err := sim.NewScheduler(cfg, sim.WithLatencyOracle(model))
	require.NoError(t, err)
	require.NoError(t, g.Install(s))
	m, err := s.Run(context.Background())
	require.NoError(t, err)
	return g, m
}

func TestNewGenerator_NilModel_ReturnsError(t *testing.T) {
	_, err := NewGenerator(DefaultWorkloadSpec(), nil)
	assert.Error(t, err)
}

func TestPHOLD_HostSteal_NoOrderingViolations(t *testing.T) {
	// GIVEN a PHOLD workload on 4 workers with work stealing
	spec := DefaultWorkloadSpec()
	spec.Hosts = 32
	spec.MeanDelay = 100 * time.Microsecond
	cfg := sim.SchedulerConfig{Workers: 4, Policy: sim.PolicyHostSteal, EndTime: 20 * sim.Millisecond}

	// WHEN the run completes
	g, m := runWorkload(t, spec, cfg)

	// THEN every executed event was seen by its host in order and alone
	st := g.Stats()
	assert.Zero(t, st.Violations)
	assert.Equal(t, m.EventsExecuted, st.Processed)
	assert.Greater(t, st.Processed, uint64(spec.Hosts*spec.EventsPerHost))
}

func TestPHOLD_SingleWorker_Deterministic(t *testing.T) {
	// GIVEN the same seed run twice on one worker
	spec := DefaultWorkloadSpec()
	spec.Hosts = 8
	cfg := sim.SchedulerConfig{Workers: 1, Policy: sim.PolicyHostSteal, EndTime: 10 * sim.Millisecond}

	a, ma := runWorkload(t, spec, cfg)
	b, mb := runWorkload(t, spec, cfg)

	// THEN both runs processed the same events on every host
	assert.Equal(t, ma.EventsExecuted, mb.EventsExecuted)
	assert.Equal(t, ma.Rounds, mb.Rounds)
	for i := 0; i < spec.Hosts; i++ {
		id := sim.HostID(i)
		assert.Equal(t, a.HostProcessed(id), b.HostProcessed(id), "host %d", i)
	}
}

func TestRing_SingleToken_VisitsHostsInTurn(t *testing.T) {
	// GIVEN 4 tokens circulating on a 4-host ring with 1ms hops plus 50us links
	spec := WorkloadSpec{Kind: KindRing, Seed: 1, Hosts: 4, EventsPerHost: 1, MeanDelay: time.Millisecond}
	cfg := sim.SchedulerConfig{Workers: 2, Policy: sim.PolicyHostSingle, EndTime: 20 * sim.Millisecond}

	g, m := runWorkload(t, spec, cfg)

	// THEN each token visits hosts in turn, so per-host counts differ by at
	// most one visit per token
	st := g.Stats()
	assert.Zero(t, st.Violations)
	assert.Equal(t, m.EventsExecuted, st.Processed)
	first := g.HostProcessed(0)
	for i := 1; i < spec.Hosts; i++ {
		diff := int64(g.HostProcessed(sim.HostID(i))) - int64(first)
		assert.LessOrEqual(t, diff, int64(spec.Hosts))
		assert.GreaterOrEqual(t, diff, -int64(spec.Hosts))
	}
}

func TestInstall_AfterRun_ReturnsError(t *testing.T) {
	g, err := NewGenerator(DefaultWorkloadSpec(), latency.NewConstantModel(sim.Microsecond))
	require.NoError(t, err)
	s, err := sim.NewScheduler(sim.SchedulerConfig{Workers: 1, EndTime: sim.Millisecond})
	require.NoError(t, err)
	_, err = s.Run(context.Background())
	require.NoError(t, err)

	assert.Error(t, g.Install(s))
}
