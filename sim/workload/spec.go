// Package workload builds synthetic event producers that drive the
// scheduler: PHOLD (random hold with remote sends) and a token ring.
package workload

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Workload kinds.
const (
	KindPHOLD = "phold"
	KindRing  = "ring"
)

// ValidKinds lists the accepted workload kinds.
var ValidKinds = map[string]bool{
	KindPHOLD: true,
	KindRing:  true,
}

// WorkloadSpec is the top-level workload configuration.
// Loaded from YAML via LoadWorkloadSpec(path) or embedded in a run config.
type WorkloadSpec struct {
	Kind           string        `yaml:"kind"`
	Seed           int64         `yaml:"seed"`
	Hosts          int           `yaml:"hosts"`
	EventsPerHost  int           `yaml:"events_per_host"`
	MeanDelay      time.Duration `yaml:"mean_delay"`
	RemoteFraction float64       `yaml:"remote_fraction,omitempty"` // phold only
	Work           int           `yaml:"work,omitempty"`            // busy-loop iterations per event
}

// DefaultWorkloadSpec returns a small PHOLD run.
func DefaultWorkloadSpec() WorkloadSpec {
	return WorkloadSpec{
		Kind:           KindPHOLD,
		Seed:           42,
		Hosts:          64,
		EventsPerHost:  4,
		MeanDelay:      time.Millisecond,
		RemoteFraction: 0.9,
	}
}

// LoadWorkloadSpec reads and parses a YAML workload spec file.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadWorkloadSpec(path string) (*WorkloadSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading workload spec: %w", err)
	}
	var spec WorkloadSpec
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&spec); err != nil {
		return nil, fmt.Errorf("parsing workload spec: %w", err)
	}
	return &spec, nil
}

// Validate checks that the spec describes a runnable workload.
func (s *WorkloadSpec) Validate() error {
	if !ValidKinds[s.Kind] {
		return fmt.Errorf("unknown workload kind %q; valid: phold, ring", s.Kind)
	}
	if s.Hosts < 1 {
		return fmt.Errorf("hosts must be >= 1, got %d", s.Hosts)
	}
	if uint64(s.Hosts) > math.MaxUint32 {
		return fmt.Errorf("hosts must fit a uint32 id, got %d", s.Hosts)
	}
	if s.EventsPerHost < 0 {
		return fmt.Errorf("events_per_host must be >= 0, got %d", s.EventsPerHost)
	}
	if s.MeanDelay <= 0 {
		return fmt.Errorf("mean_delay must be positive, got %s", s.MeanDelay)
	}
	if math.IsNaN(s.RemoteFraction) || s.RemoteFraction < 0 || s.RemoteFraction > 1 {
		return fmt.Errorf("remote_fraction must be in [0, 1], got %v", s.RemoteFraction)
	}
	if s.Work < 0 {
		return fmt.Errorf("work must be >= 0, got %d", s.Work)
	}
	return nil
}
