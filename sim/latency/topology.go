package latency

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hostsim/hostsim/sim"
)

// TopologySpec is the YAML description of host-to-host latencies.
//
//	default_latency: 10ms
//	links:
//	  - {src: 0, dst: 1, latency: 2ms, symmetric: true}
type TopologySpec struct {
	DefaultLatency time.Duration `yaml:"default_latency"`
	Links          []LinkSpec    `yaml:"links,omitempty"`
}

// LinkSpec overrides the latency of one directed (or symmetric) host pair.
type LinkSpec struct {
	Src       uint32        `yaml:"src"`
	Dst       uint32        `yaml:"dst"`
	Latency   time.Duration `yaml:"latency"`
	Symmetric bool          `yaml:"symmetric"`
}

// LoadTopology reads and parses a YAML topology file.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadTopology(path string) (*TopologySpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading topology: %w", err)
	}
	var spec TopologySpec
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&spec); err != nil {
		return nil, fmt.Errorf("parsing topology: %w", err)
	}
	return &spec, nil
}

// Validate checks that all latencies are positive and no link is a self link.
func (t *TopologySpec) Validate() error {
	if t.DefaultLatency <= 0 {
		return fmt.Errorf("default_latency must be positive, got %s", t.DefaultLatency)
	}
	for i, l := range t.Links {
		if l.Src == l.Dst {
			return fmt.Errorf("links[%d]: src and dst are both %d", i, l.Src)
		}
		if l.Latency <= 0 {
			return fmt.Errorf("links[%d]: latency must be positive, got %s", i, l.Latency)
		}
	}
	return nil
}

// Build validates the spec and returns the model it describes. A spec with
// no links yields a ConstantModel.
func (t *TopologySpec) Build() (Model, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if len(t.Links) == 0 {
		return NewConstantModel(FromDuration(t.DefaultLatency)), nil
	}
	m := NewMatrixModel(FromDuration(t.DefaultLatency))
	for _, l := range t.Links {
		src, dst := sim.HostID(l.Src), sim.HostID(l.Dst)
		if err := m.SetLink(src, dst, FromDuration(l.Latency)); err != nil {
			return nil, err
		}
		if l.Symmetric {
			if err := m.SetLink(dst, src, FromDuration(l.Latency)); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// FromDuration converts a wall-clock style duration to simulated time.
func FromDuration(d time.Duration) sim.SimTime {
	if d < 0 {
		return 0
	}
	return sim.SimTime(d.Nanoseconds())
}
