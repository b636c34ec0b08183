// Package latency provides inter-host latency oracles for hostsim.
// The scheduler only needs the minimum inter-host latency to size its round
// windows; producers use the per-pair latency to time cross-host events.
package latency

import (
	"fmt"

	"github.com/hostsim/hostsim/sim"
)

// Model gives the one-way latency between two hosts.
type Model interface {
	sim.LatencyOracle
	// Latency returns the delay for an event sent from src to dst.
	Latency(src, dst sim.HostID) sim.SimTime
}

// ConstantModel uses one latency for every pair of distinct hosts.
// A host reaches itself with zero latency.
type ConstantModel struct {
	latency sim.SimTime
}

// NewConstantModel creates a ConstantModel. Panics if latency is zero.
func NewConstantModel(latency sim.SimTime) *ConstantModel {
	if latency == 0 {
		panic("NewConstantModel: latency must be positive")
	}
	return &ConstantModel{latency: latency}
}

// Latency implements Model.
func (m *ConstantModel) Latency(src, dst sim.HostID) sim.SimTime {
	if src == dst {
		return 0
	}
	return m.latency
}

// MinInterHostLatency implements sim.LatencyOracle.
func (m *ConstantModel) MinInterHostLatency() sim.SimTime {
	return m.latency
}

type hostPair struct {
	src, dst sim.HostID
}

// MatrixModel holds explicit per-pair latencies with a default for pairs
// that are not listed.
type MatrixModel struct {
	defaultLatency sim.SimTime
	links          map[hostPair]sim.SimTime
	min            sim.SimTime
}

// NewMatrixModel creates a MatrixModel with the given default latency.
func NewMatrixModel(defaultLatency sim.SimTime) *MatrixModel {
	if defaultLatency == 0 {
		panic("NewMatrixModel: default latency must be positive")
	}
	return &MatrixModel{
		defaultLatency: defaultLatency,
		links:          make(map[hostPair]sim.SimTime),
		min:            defaultLatency,
	}
}

// SetLink sets the latency from src to dst. A self-link is rejected.
func (m *MatrixModel) SetLink(src, dst sim.HostID, latency sim.SimTime) error {
	if src == dst {
		return fmt.Errorf("link %s->%s: self links are implicit", src, dst)
	}
	if latency == 0 {
		return fmt.Errorf("link %s->%s: latency must be positive", src, dst)
	}
	m.links[hostPair{src, dst}] = latency
	if latency < m.min {
		m.min = latency
	}
	return nil
}

// Latency implements Model.
func (m *MatrixModel) Latency(src, dst sim.HostID) sim.SimTime {
	if src == dst {
		return 0
	}
	if l, ok := m.links[hostPair{src, dst}]; ok {
		return l
	}
	return m.defaultLatency
}

// MinInterHostLatency implements sim.LatencyOracle. The default latency
// counts toward the minimum since some pair may fall back to it.
func (m *MatrixModel) MinInterHostLatency() sim.SimTime {
	return m.min
}

// Links returns the number of explicit links.
func (m *MatrixModel) Links() int { return len(m.links) }
