package main

import (
	"io"
	"log/slog"

	"droneops-console/internal/config"
	"droneops-console/internal/export"
)

// sinks are the export destinations of one console session. Both fields
// are nil when nothing is configured.
type sinks struct {
	telemetry export.TelemetryWriter
	recorder  *export.Recorder
	close     func()
}

// newSinks sets up export writers from the flags and the greptime config.
// exportFile gets telemetry JSONL, with timeline and assignment rows in
// the .timeline and .assignments files next to it. A configured endpoint
// adds GreptimeDB. sinks.close releases any files.
func newSinks(cfg *config.Config, exportFile string, log *slog.Logger) (sinks, error) {
	sk := sinks{close: func() {}}
	var targets []any
	if exportFile != "" {
		fw, err := export.NewFileWriter(exportFile, exportFile+".timeline", exportFile+".assignments")
		if err != nil {
			return sk, err
		}
		sk.close = func() {
			if err := fw.Close(); err != nil {
				log.Warn("close export file", "err", err)
			}
		}
		targets = append(targets, fw)
	}
	if cfg.Export.Greptime.Endpoint != "" {
		gw, err := export.NewGreptimeDBWriter(cfg.Export.Greptime, log)
		if err != nil {
			sk.close()
			return sinks{close: func() {}}, err
		}
		log.Info("greptime export enabled", "endpoint", cfg.Export.Greptime.Endpoint, "table", cfg.Export.Greptime.Table)
		targets = append(targets, gw)
	}
	mw := export.NewMultiWriter(targets...)
	if mw.Empty() {
		return sk, nil
	}
	sk.telemetry = mw
	sk.recorder = export.NewRecorder(cfg.ClusterID, mw, mw, log)
	return sk, nil
}

// newReplayWriter picks the replay target: GreptimeDB when an endpoint is
// configured and printOnly is unset, JSON on out otherwise.
func newReplayWriter(cfg *config.Config, printOnly bool, out io.Writer, log *slog.Logger) (export.TelemetryWriter, error) {
	if printOnly || cfg.Export.Greptime.Endpoint == "" {
		return export.NewJSONWriter(out), nil
	}
	return export.NewGreptimeDBWriter(cfg.Export.Greptime, log)
}
