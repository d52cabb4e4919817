package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"droneops-console/internal/config"
	"droneops-console/internal/console"
	"droneops-console/internal/logging"
	"droneops-console/internal/scenario"
)

var (
	configPath   string
	schemaPath   string
	scenarioName string
	scenarioFile string
	seed         int64
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:          "droneops-console",
	Short:        "DroneOps emergency response console",
	Long:         "droneops-console runs the operator console: phase machine, command dispatch and map view over a canned fleet baseline.",
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Path to baseline YAML (embedded default when empty)")
	pf.StringVar(&schemaPath, "schema", "", "Path to CUE schema file (embedded default when empty)")
	pf.StringVar(&scenarioName, "scenario", "", "Built-in scenario name")
	pf.StringVar(&scenarioFile, "scenario-file", "", "Path to a scenario YAML file")
	pf.Int64Var(&seed, "seed", 0, "Telemetry drift seed (0 uses the clock)")
	pf.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(grafanaCmd)
}

// loadConfig reads the baseline and applies environment overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath, schemaPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the command logger at the --log-level flag's level.
func newLogger(w io.Writer) *slog.Logger {
	return logging.New(w, logging.ParseLevel(logLevel))
}

// newSession builds a console session for cfg using the scenario and seed
// flags. Flags win over the baseline's scenario reference.
func newSession(cfg *config.Config, log *slog.Logger, sk sinks) (*console.Session, error) {
	name, path := scenarioName, scenarioFile
	if name == "" && path == "" {
		name, path = cfg.Scenario.Name, cfg.Scenario.Path
	}
	sc, err := scenario.Resolve(name, path)
	if err != nil {
		return nil, err
	}
	s := seed
	if s == 0 {
		s = time.Now().UnixNano()
	}
	sess, err := console.New(console.Options{
		Config:    cfg,
		Scenario:  sc,
		Telemetry: sk.telemetry,
		Recorder:  sk.recorder,
		Seed:      s,
		Log:       log,
	})
	if err != nil {
		return nil, err
	}
	log.Info("console ready", "cluster_id", cfg.ClusterID, "scenario", sc.Name, "phase", sess.Machine.Phase())
	return sess, nil
}
