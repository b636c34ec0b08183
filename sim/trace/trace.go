package trace

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// TraceLevel controls the verbosity of round tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelRounds captures every round window and host migration.
	TraceLevelRounds TraceLevel = "rounds"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:   true,
	TraceLevelRounds: true,
	"":               true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
	RunID string
}

// SimulationTrace collects round records during a parallel run.
// Rounds are recorded by the coordinating goroutine only; migrations may be
// recorded from any worker and are guarded by a mutex.
type SimulationTrace struct {
	Config     TraceConfig       `yaml:"-"`
	RunID      string            `yaml:"run_id"`
	Rounds     []RoundRecord     `yaml:"rounds"`
	Migrations []MigrationRecord `yaml:"migrations"`

	mu sync.Mutex
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	return &SimulationTrace{
		Config:     config,
		RunID:      config.RunID,
		Rounds:     make([]RoundRecord, 0),
		Migrations: make([]MigrationRecord, 0),
	}
}

// Enabled reports whether anything is recorded. Safe on a nil trace.
func (st *SimulationTrace) Enabled() bool {
	return st != nil && st.Config.Level == TraceLevelRounds
}

// RecordRound appends a round record.
func (st *SimulationTrace) RecordRound(record RoundRecord) {
	st.Rounds = append(st.Rounds, record)
}

// RecordMigration appends a migration record. Safe for concurrent use.
func (st *SimulationTrace) RecordMigration(record MigrationRecord) {
	st.mu.Lock()
	st.Migrations = append(st.Migrations, record)
	st.mu.Unlock()
}

// SaveYAML writes the trace to path.
func (st *SimulationTrace) SaveYAML(path string) error {
	st.mu.Lock()
	data, err := yaml.Marshal(st)
	st.mu.Unlock()
	if err != nil {
		return fmt.Errorf("encoding trace: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing trace: %w", err)
	}
	return nil
}
