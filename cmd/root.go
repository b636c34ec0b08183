package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hostsim/hostsim/sim"
	"github.com/hostsim/hostsim/sim/latency"
	"github.com/hostsim/hostsim/sim/trace"
	"github.com/hostsim/hostsim/sim/workload"
)

var (
	configPath   string        // Path to run.yaml
	topologyPath string        // Path to a standalone topology file
	logLevel     string        // Log verbosity level
	workers      int           // Worker threads
	policy       string        // Scheduling policy
	endTime      time.Duration // Simulation end time
	runahead     time.Duration // Minimum round window
	pinThreads   bool          // Lock workers to OS threads
	seed         int64         // Workload seed
	hosts        int           // Number of simulated hosts
	workloadKind string        // phold or ring
	traceLevel   string        // none or rounds
	tracePath    string        // Where to write the round trace
	metricsAddr  string        // Address for the prometheus /metrics endpoint
	resultsPath  string        // Where to write the metrics JSON
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "hostsim",
	Short: "Parallel discrete-event scheduler for simulated hosts",
}

// runCmd executes a simulation from a run config plus flag overrides
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulation",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		cfg := DefaultRunConfig()
		if configPath != "" {
			if cfg, err = LoadRunConfig(configPath); err != nil {
				logrus.Fatalf("%v", err)
			}
		}
		if topologyPath != "" {
			topo, err := latency.LoadTopology(topologyPath)
			if err != nil {
				logrus.Fatalf("%v", err)
			}
			cfg.Topology = *topo
		}
		applyFlagOverrides(cmd, &cfg)
		if err := cfg.Validate(); err != nil {
			logrus.Fatalf("Invalid configuration: %v", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector())
		if metricsAddr != "" {
			srv := serveMetrics(metricsAddr, reg)
			defer srv.Close()
		}

		metrics, st, err := runSimulation(ctx, cfg, reg)
		if err != nil && !errors.Is(err, context.Canceled) {
			logrus.Fatalf("Simulation failed: %v", err)
		}
		metrics.SaveResults(resultsPath)

		if st.Enabled() {
			summary := trace.Summarize(st)
			fmt.Printf("Trace: rounds=%d, empty=%d, mean window=%.0fns, migrations=%d (%d hosts)\n",
				summary.Rounds, summary.EmptyRounds, summary.MeanWindow, summary.Migrations, summary.HostsMigrated)
			if tracePath != "" {
				if err := st.SaveYAML(tracePath); err != nil {
					logrus.Fatalf("%v", err)
				}
				logrus.Infof("Trace written to: %s", tracePath)
			}
		}
		logrus.Info("Simulation complete.")
	},
}

// applyFlagOverrides copies explicitly set flags over the config file values.
func applyFlagOverrides(cmd *cobra.Command, cfg *RunConfig) {
	flags := cmd.Flags()
	if flags.Changed("workers") {
		cfg.Scheduler.Workers = workers
	}
	if flags.Changed("policy") {
		cfg.Scheduler.Policy = policy
	}
	if flags.Changed("end-time") {
		cfg.Scheduler.EndTime = endTime
	}
	if flags.Changed("runahead") {
		cfg.Scheduler.MinRunahead = runahead
	}
	if flags.Changed("pin-threads") {
		cfg.Scheduler.PinThreads = pinThreads
	}
	if flags.Changed("trace-level") {
		cfg.Scheduler.TraceLevel = traceLevel
	}
	if flags.Changed("seed") {
		cfg.Workload.Seed = seed
	}
	if flags.Changed("hosts") {
		cfg.Workload.Hosts = hosts
	}
	if flags.Changed("workload") {
		cfg.Workload.Kind = workloadKind
	}
}

// runSimulation builds the topology, workload and scheduler described by
// cfg and runs them to completion. The returned trace is nil unless
// tracing is enabled.
func runSimulation(ctx context.Context, cfg RunConfig, reg prometheus.Registerer) (*sim.Metrics, *trace.SimulationTrace, error) {
	model, err := cfg.Topology.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("topology: %w", err)
	}
	gen, err := workload.NewGenerator(cfg.Workload, model)
	if err != nil {
		return nil, nil, err
	}

	opts := []sim.Option{sim.WithLatencyOracle(model), sim.WithRegistry(reg)}
	var st *trace.SimulationTrace
	schedCfg := cfg.Scheduler.SchedulerConfig()
	if trace.TraceLevel(schedCfg.TraceLevel) == trace.TraceLevelRounds {
		st = trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevelRounds})
		opts = append(opts, sim.WithTrace(st))
	}
	s, err := sim.NewScheduler(schedCfg, opts...)
	if err != nil {
		return nil, nil, err
	}
	if st != nil {
		st.RunID = s.RunID()
		st.Config.RunID = s.RunID()
	}
	if err := gen.Install(s); err != nil {
		return nil, nil, err
	}

	metrics, err := s.Run(ctx)
	if v := gen.Stats().Violations; v > 0 {
		return metrics, st, fmt.Errorf("workload observed %d ordering violations", v)
	}
	return metrics, st, err
}

// serveMetrics exposes reg on addr at /metrics until the returned server is
// closed.
func serveMetrics(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Errorf("metrics endpoint on %s: %v", addr, err)
		}
	}()
	logrus.Infof("Serving metrics on %s/metrics", addr)
	return srv
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().StringVar(&configPath, "config", "", "Path to a run config YAML (see `hostsim defaults`)")
	runCmd.Flags().StringVar(&topologyPath, "topology", "", "Path to a topology YAML, replacing the config's topology section")
	runCmd.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")

	// Scheduler
	runCmd.Flags().IntVar(&workers, "workers", 0, "Worker threads (0 = number of CPUs)")
	runCmd.Flags().StringVar(&policy, "policy", string(sim.PolicyHostSteal), "Scheduling policy (host-steal, host-single, global-single)")
	runCmd.Flags().DurationVar(&endTime, "end-time", time.Duration(sim.DefaultEndTime), "Simulated time at which the run stops")
	runCmd.Flags().DurationVar(&runahead, "runahead", time.Duration(sim.DefaultMinRunahead), "Minimum round window length")
	runCmd.Flags().BoolVar(&pinThreads, "pin-threads", false, "Lock each worker to its own OS thread")

	// Workload
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for the workload's per-host random streams")
	runCmd.Flags().IntVar(&hosts, "hosts", 64, "Number of simulated hosts")
	runCmd.Flags().StringVar(&workloadKind, "workload", workload.KindPHOLD, "Workload kind (phold, ring)")

	// Output
	runCmd.Flags().StringVar(&traceLevel, "trace-level", string(trace.TraceLevelNone), "Trace level (none, rounds)")
	runCmd.Flags().StringVar(&tracePath, "trace-path", "", "Write the round trace YAML to this file")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve prometheus metrics on this address (e.g. :9090)")
	runCmd.Flags().StringVar(&resultsPath, "results-path", "", "Write the metrics JSON to this file")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(defaultsCmd)
}
