// Tracks run-wide scheduling statistics: rounds, executed and dropped
// events, steals and migrations.

package sim

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Metrics aggregates statistics about a run for final reporting.
type Metrics struct {
	RunID           string   `json:"run_id"`
	Policy          string   `json:"policy"`
	Workers         int      `json:"workers"`
	Hosts           int      `json:"hosts"`
	Rounds          uint64   `json:"rounds"`
	EventsExecuted  uint64   `json:"events_executed"`
	EventsPerThread []uint64 `json:"events_per_thread"`
	EventsDropped   uint64   `json:"events_dropped"`
	StealAttempts   uint64   `json:"steal_attempts"`
	Steals          uint64   `json:"steals"`
	Migrations      uint64   `json:"migrations"`
	SimEndedTime    SimTime  `json:"sim_ended_time_ns"`  // end of the last window
	NextEventTime   SimTime  `json:"next_event_time_ns"` // earliest event left unrun
	WallTime        float64  `json:"wall_time_s"`
}

func (s *Scheduler) buildMetrics(wall time.Duration, next SimTime) *Metrics {
	stats := s.policy.Stats()
	m := &Metrics{
		RunID:           s.runID,
		Policy:          string(s.cfg.Policy),
		Workers:         s.cfg.Workers,
		Hosts:           len(s.hosts),
		Rounds:          s.coord.Rounds(),
		EventsPerThread: make([]uint64, len(s.workers)),
		EventsDropped:   s.dropped.Load(),
		StealAttempts:   stats.StealAttempts,
		Steals:          stats.Steals,
		Migrations:      stats.Migrations,
		SimEndedTime:    s.window.End,
		NextEventTime:   next,
		WallTime:        wall.Seconds(),
	}
	for i, w := range s.workers {
		m.EventsPerThread[i] = w.EventsRun()
		m.EventsExecuted += m.EventsPerThread[i]
	}
	return m
}

// EventsPerSecond is the wall-clock event throughput.
func (m *Metrics) EventsPerSecond() float64 {
	if m.WallTime <= 0 {
		return 0
	}
	return float64(m.EventsExecuted) / m.WallTime
}

// SaveResults prints the metrics as JSON to stdout and, if outputPath is
// set, also writes them to that file.
func (m *Metrics) SaveResults(outputPath string) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		logrus.Fatalf("Error marshalling metrics: %v", err)
	}
	fmt.Println("=== Simulation Metrics ===")
	fmt.Println(string(data))
	fmt.Printf("Events/sec (wall)    : %.0f\n", m.EventsPerSecond())

	if outputPath == "" {
		return
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		logrus.Fatalf("Error writing metrics to %s: %v", outputPath, err)
	}
	logrus.Infof("Metrics written to: %s", outputPath)
}
