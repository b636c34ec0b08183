// Package trace provides round-by-round recording of a parallel run.
// This package has no dependencies on sim/; it stores pure data types.
package trace

// RoundRecord captures one completed scheduling round.
type RoundRecord struct {
	Index            uint64 `yaml:"index"`
	Start            uint64 `yaml:"start_ns"`
	End              uint64 `yaml:"end_ns"`
	MinNextEventTime uint64 `yaml:"min_next_event_ns"`
	EventsRun        uint64 `yaml:"events_run"`
	Steals           uint64 `yaml:"steals"` // steals during this round only
}

// Window returns the length of the round's time window.
func (r RoundRecord) Window() uint64 {
	return r.End - r.Start
}

// MigrationRecord captures a host moving to another worker thread.
type MigrationRecord struct {
	Round     uint64 `yaml:"round"`
	HostID    uint32 `yaml:"host"`
	OldThread int    `yaml:"old_thread"`
	NewThread int    `yaml:"new_thread"`
}
