package sim

import (
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"sync"
)

// === SimulationKey ===

// SimulationKey uniquely identifies a reproducible simulation run.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// === Subsystem Constants ===

const (
	// SubsystemWorkload is the RNG subsystem for workload setup (initial
	// events, host placement). Uses master seed directly.
	SubsystemWorkload = "workload"
)

// SubsystemHost returns the subsystem name for a host's own stream.
func SubsystemHost(id HostID) string {
	return fmt.Sprintf("host_%d", uint32(id))
}

// === PartitionedRNG ===

// PartitionedRNG provides deterministic, isolated RNG instances per subsystem.
//
// Derivation formula:
//   - For SubsystemWorkload: uses masterSeed directly
//   - For all other subsystems: masterSeed XOR fnv1a64(subsystemName)
//
// Each stream is a PCG seeded with (derived seed, masterSeed). The returned
// *rand.Rand is also a rand.Source, so samplers such as gonum's distuv can
// draw from the same stream.
//
// Lookups are safe for concurrent use. Each returned *rand.Rand is not: a
// host's stream must only be used by events of that host, which the
// scheduler never runs on two threads at once.
type PartitionedRNG struct {
	key        SimulationKey
	mu         sync.Mutex
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns a deterministically-seeded RNG for the named subsystem.
// The same subsystem name always returns the same *rand.Rand instance (cached).
// Never returns nil.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	p.mu.Lock()
	defer p.mu.Unlock()
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	rng := rand.New(rand.NewPCG(uint64(p.DeriveSeed(name)), uint64(p.key)))
	p.subsystems[name] = rng
	return rng
}

// ForHost returns the RNG stream owned by host id.
func (p *PartitionedRNG) ForHost(id HostID) *rand.Rand {
	return p.ForSubsystem(SubsystemHost(id))
}

// DeriveSeed returns the seed ForSubsystem would use for name.
func (p *PartitionedRNG) DeriveSeed(name string) int64 {
	if name == SubsystemWorkload {
		return int64(p.key)
	}
	return int64(p.key) ^ fnv1a64(name)
}

// Key returns the SimulationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
