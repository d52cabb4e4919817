package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"droneops-console/internal/grafana"
)

var grafanaOut string

var grafanaCmd = &cobra.Command{
	Use:   "grafana",
	Short: "Render Grafana dashboards for the GreptimeDB export tables",
	Long:  "grafana renders dashboards over the configured telemetry, timeline and assignment tables. GREPTIMEDB_DATASOURCE_UID must be set.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		written, err := grafana.Render(grafanaOut, grafana.ParamsFrom(cfg))
		if err != nil {
			return err
		}
		for _, p := range written {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		return nil
	},
}

func init() {
	grafanaCmd.Flags().StringVar(&grafanaOut, "out", "build", "Output directory")
}
