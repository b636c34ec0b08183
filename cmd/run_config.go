package cmd

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hostsim/hostsim/sim"
	"github.com/hostsim/hostsim/sim/latency"
	"github.com/hostsim/hostsim/sim/workload"
)

// RunConfig is the full run.yaml structure.
// All top-level sections must be listed to satisfy KnownFields(true) strict parsing.
type RunConfig struct {
	Scheduler SchedulerSection      `yaml:"scheduler"`
	Workload  workload.WorkloadSpec `yaml:"workload"`
	Topology  latency.TopologySpec  `yaml:"topology"`
}

// SchedulerSection is the YAML form of sim.SchedulerConfig, with times as
// duration strings ("10s", "500us").
type SchedulerSection struct {
	Workers     int           `yaml:"workers"`
	Policy      string        `yaml:"policy"`
	EndTime     time.Duration `yaml:"end_time"`
	MinRunahead time.Duration `yaml:"min_runahead"`
	PinThreads  bool          `yaml:"pin_threads"`
	TraceLevel  string        `yaml:"trace_level"`
}

// DefaultRunConfig returns the configuration printed by `hostsim defaults`.
func DefaultRunConfig() RunConfig {
	sc := sim.DefaultSchedulerConfig()
	return RunConfig{
		Scheduler: SchedulerSection{
			Workers:     sc.Workers,
			Policy:      string(sc.Policy),
			EndTime:     time.Duration(sc.EndTime),
			MinRunahead: time.Duration(sc.MinRunahead),
			PinThreads:  sc.PinThreads,
			TraceLevel:  sc.TraceLevel,
		},
		Workload: workload.DefaultWorkloadSpec(),
		Topology: latency.TopologySpec{DefaultLatency: 50 * time.Microsecond},
	}
}

// LoadRunConfig reads a run config and fills unset sections from
// DefaultRunConfig.
func LoadRunConfig(path string) (RunConfig, error) {
	cfg := DefaultRunConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading run config: %w", err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing run config %s: %w", path, err)
	}
	return cfg, nil
}

// SchedulerConfig converts the YAML section to a sim.SchedulerConfig.
func (s SchedulerSection) SchedulerConfig() sim.SchedulerConfig {
	return sim.SchedulerConfig{
		Workers:     s.Workers,
		Policy:      sim.PolicyKind(s.Policy),
		EndTime:     latency.FromDuration(s.EndTime),
		MinRunahead: latency.FromDuration(s.MinRunahead),
		PinThreads:  s.PinThreads,
		TraceLevel:  s.TraceLevel,
	}
}

// Validate checks every section.
func (c RunConfig) Validate() error {
	if err := c.Scheduler.SchedulerConfig().WithDefaults().Validate(); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	if err := c.Workload.Validate(); err != nil {
		return fmt.Errorf("workload: %w", err)
	}
	if err := c.Topology.Validate(); err != nil {
		return fmt.Errorf("topology: %w", err)
	}
	return nil
}
