package sim

import (
	"fmt"
	"runtime"

	"github.com/hostsim/hostsim/sim/trace"
)

// SchedulerConfig groups the parameters of a parallel run.
// Zero values are filled in by WithDefaults.
type SchedulerConfig struct {
	Workers     int        // worker threads (default: runtime.NumCPU())
	Policy      PolicyKind // "host-steal" (default), "host-single", "global-single"
	EndTime     SimTime    // simulation stops before this time
	MinRunahead SimTime    // floor for the round window length
	PinThreads  bool       // lock each worker goroutine to its own OS thread
	TraceLevel  string     // "none" (default) or "rounds"
}

// Default scheduler settings.
const (
	DefaultEndTime     = 10 * Second
	DefaultMinRunahead = 1 * Millisecond
)

// DefaultSchedulerConfig returns the configuration used when nothing is set.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{}.WithDefaults()
}

// WithDefaults returns a copy of c with zero-valued fields set to defaults.
func (c SchedulerConfig) WithDefaults() SchedulerConfig {
	if c.Workers == 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.Policy == "" {
		c.Policy = PolicyHostSteal
	}
	if c.EndTime == 0 {
		c.EndTime = DefaultEndTime
	}
	if c.MinRunahead == 0 {
		c.MinRunahead = DefaultMinRunahead
	}
	if c.TraceLevel == "" {
		c.TraceLevel = string(trace.TraceLevelNone)
	}
	return c
}

// Validate checks worker count, policy name, times and trace level.
func (c SchedulerConfig) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", c.Workers)
	}
	if !ValidPolicies[string(c.Policy)] {
		return fmt.Errorf("unknown policy %q; valid: host-steal, host-single, global-single", c.Policy)
	}
	if c.Policy == PolicyGlobalSingle && c.Workers != 1 {
		return fmt.Errorf("policy %q requires workers = 1, got %d", c.Policy, c.Workers)
	}
	if c.EndTime == 0 || c.EndTime == SimTimeInvalid {
		return fmt.Errorf("end_time must be a finite positive time, got %d", uint64(c.EndTime))
	}
	if c.MinRunahead == 0 {
		return fmt.Errorf("min_runahead must be positive")
	}
	if !trace.IsValidTraceLevel(c.TraceLevel) {
		return fmt.Errorf("unknown trace level %q; valid: none, rounds", c.TraceLevel)
	}
	return nil
}
