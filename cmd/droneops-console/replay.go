package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"droneops-console/internal/export"
)

var (
	replayInput     string
	replaySpeed     float64
	replayPrintOnly bool
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay an exported telemetry log",
	Long:  "replay feeds telemetry rows from a JSONL export back into GreptimeDB or STDOUT, keeping their original spacing.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := newLogger(cmd.ErrOrStderr())
		writer, err := newReplayWriter(cfg, replayPrintOnly, cmd.OutOrStdout(), log)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		n, err := export.ReplayLogFile(ctx, replayInput, writer, replaySpeed)
		log.Info("replay finished", "rows", n, "input", replayInput)
		return err
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayInput, "input", "", "Path to telemetry log file")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1.0, "Playback speed multiplier")
	replayCmd.Flags().BoolVar(&replayPrintOnly, "print-only", false, "Print telemetry to STDOUT instead of writing to DB")
	_ = replayCmd.MarkFlagRequired("input")
}
