package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"droneops-console/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a baseline file against the CUE schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		if configPath == "" {
			return errors.New("--config is required")
		}
		if err := config.ValidateWithCue(configPath, schemaPath); err != nil {
			return err
		}
		cfg, err := config.Load(configPath, schemaPath)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d drones, %d sensors, %d docks, %d geofences)\n",
			configPath, len(cfg.Drones), len(cfg.Sensors), len(cfg.Docks), len(cfg.Geofences))
		return nil
	},
}
