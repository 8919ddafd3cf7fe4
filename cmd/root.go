package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/qnet-sim/qnet-sim/sim"
	"github.com/qnet-sim/qnet-sim/sim/analytic"
	"github.com/qnet-sim/qnet-sim/sim/netcfg"
)

var (
	// CLI flags shared by the subcommands
	configPath   string  // Path to the YAML network description
	seed         uint64  // Seed for the run's variate source
	horizon      float64 // Overrides network.max_time when positive
	logLevel     string  // Log verbosity level
	replications int     // Number of independent replications
	perCategory  bool    // Print per-category breakdowns
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "qnetsim",
	Short: "Discrete-event simulator for open multi-class queueing networks",
}

func setupLogging() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

func loadTopology() (*sim.Topology, float64) {
	topo, maxTime, err := netcfg.Load(configPath)
	if err != nil {
		logrus.Fatalf("Cannot load network config: %v", err)
	}
	if horizon > 0 {
		maxTime = horizon
	}
	return topo, maxTime
}

// runCmd executes the simulation using parameters from CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a queueing-network simulation",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()
		topo, maxTime := loadTopology()

		if replications > 1 {
			_, summary, err := sim.RunReplications(topo, maxTime, replications, seed)
			if err != nil {
				logrus.Fatalf("Replications failed: %v", err)
			}
			PrintReplicationSummary(os.Stdout, topo, summary, replications)
			return
		}

		s, err := sim.NewSimulator(topo, seed, maxTime)
		if err != nil {
			logrus.Fatalf("Cannot build simulator: %v", err)
		}
		logrus.Infof("Starting simulation: %d queues, %d categories, horizon=%g, seed=%d",
			len(topo.Queues), len(topo.Categories), maxTime, seed)
		res := s.Run()
		PrintResults(os.Stdout, topo, res, perCategory)
	},
}

// validateCmd runs the simulation and prints simulated measures next to the
// closed-form Jackson-network solution.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Compare simulated measures against closed-form results",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()
		topo, maxTime := loadTopology()

		if len(topo.Categories) != 1 {
			logrus.Fatalf("Analytical validation supports single-category networks; config has %d categories",
				len(topo.Categories))
		}
		for q, spec := range topo.Queues {
			if !spec.Infinite() {
				logrus.Warnf("Queue %d has finite capacity; the Jackson solution ignores rejection and is approximate", q)
			}
		}

		cat := topo.Categories[0]
		net := analytic.Network{
			ExternalRates: make([]float64, len(topo.Queues)),
			ServiceRates:  append([]float64(nil), cat.ServiceRates...),
			NumServers:    make([]int, len(topo.Queues)),
			Routing:       cat.Routing,
		}
		net.ExternalRates[topo.Arrivals.Queue] = topo.Arrivals.Rate
		for q, spec := range topo.Queues {
			net.NumServers[q] = spec.NumServers
		}
		theory, err := analytic.Solve(net)
		if err != nil {
			logrus.Fatalf("Cannot solve network analytically: %v", err)
		}

		s, err := sim.NewSimulator(topo, seed, maxTime)
		if err != nil {
			logrus.Fatalf("Cannot build simulator: %v", err)
		}
		res := s.Run()
		PrintComparison(os.Stdout, res.Stats, theory)
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	for _, c := range []*cobra.Command{runCmd, validateCmd} {
		c.Flags().StringVar(&configPath, "config", "", "Path to YAML network description (required)")
		c.Flags().Uint64Var(&seed, "seed", 42, "Seed for the random variate source")
		c.Flags().Float64Var(&horizon, "horizon", 0, "Simulation horizon; overrides network.max_time when positive")
		c.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
		if err := c.MarkFlagRequired("config"); err != nil {
			panic(err)
		}
	}
	runCmd.Flags().IntVar(&replications, "replications", 1, "Number of independent replications")
	runCmd.Flags().BoolVar(&perCategory, "per-category", false, "Print per-category statistics")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
}
