package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	Rounds          int
	TotalEvents     uint64
	TotalSteals     uint64
	MeanWindow      float64 // ns
	MaxWindow       uint64  // ns
	MinWindow       uint64  // ns
	EmptyRounds     int     // rounds in which no event ran
	Migrations      int
	HostsMigrated   int
	MigrationsByDst map[int]int // new thread → count of migrations onto it
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		MigrationsByDst: make(map[int]int),
	}
	if st == nil {
		return summary
	}

	summary.Rounds = len(st.Rounds)
	if len(st.Rounds) > 0 {
		var totalWindow uint64
		summary.MinWindow = st.Rounds[0].Window()
		for _, r := range st.Rounds {
			w := r.Window()
			totalWindow += w
			if w > summary.MaxWindow {
				summary.MaxWindow = w
			}
			if w < summary.MinWindow {
				summary.MinWindow = w
			}
			summary.TotalEvents += r.EventsRun
			summary.TotalSteals += r.Steals
			if r.EventsRun == 0 {
				summary.EmptyRounds++
			}
		}
		summary.MeanWindow = float64(totalWindow) / float64(len(st.Rounds))
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	summary.Migrations = len(st.Migrations)
	hosts := make(map[uint32]bool)
	for _, m := range st.Migrations {
		summary.MigrationsByDst[m.NewThread]++
		hosts[m.HostID] = true
	}
	summary.HostsMigrated = len(hosts)

	return summary
}
