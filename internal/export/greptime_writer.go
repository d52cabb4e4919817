package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"droneops-console/internal/config"
	"droneops-console/internal/telemetry"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"
)

const defaultGreptimePort = 4001

type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeDBWriter writes console rows to GreptimeDB through the ingester
// client. Tables are created by the server on first write.
type GreptimeDBWriter struct {
	client          greptimeClient
	table           string
	timelineTable   string
	assignmentTable string
	timeout         time.Duration
	log             *slog.Logger
}

// NewGreptimeDBWriter connects to the endpoint in cfg ("host" or "host:port").
func NewGreptimeDBWriter(cfg config.GreptimeConfig, log *slog.Logger) (*GreptimeDBWriter, error) {
	host, port, err := splitEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}
	gcfg := greptime.NewConfig(host).WithPort(port).WithDatabase(cfg.Database)
	client, err := greptime.NewClient(gcfg)
	if err != nil {
		return nil, fmt.Errorf("greptime client: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	w := &GreptimeDBWriter{
		client:          client,
		table:           cfg.Table,
		timelineTable:   cfg.TimelineTable,
		assignmentTable: cfg.AssignmentTable,
		timeout:         5 * time.Second,
		log:             log,
	}
	w.applyDefaults()
	return w, nil
}

func (w *GreptimeDBWriter) applyDefaults() {
	if w.table == "" {
		w.table = telemetry.DefaultTelemetryTable
	}
	if w.timelineTable == "" {
		w.timelineTable = telemetry.DefaultTimelineTable
	}
	if w.assignmentTable == "" {
		w.assignmentTable = telemetry.DefaultAssignmentTable
	}
	if w.timeout <= 0 {
		w.timeout = 5 * time.Second
	}
	if w.log == nil {
		w.log = slog.Default()
	}
}

func splitEndpoint(endpoint string) (string, int, error) {
	if endpoint == "" {
		return "", 0, fmt.Errorf("greptime endpoint is empty")
	}
	host, portStr, err := net.SplitHostPort(endpoint)
	if err != nil {
		return endpoint, defaultGreptimePort, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 {
		return "", 0, fmt.Errorf("invalid greptime port %q", portStr)
	}
	return host, port, nil
}

// Write inserts a single telemetry row.
func (w *GreptimeDBWriter) Write(row telemetry.TelemetryRow) error {
	return w.WriteBatch([]telemetry.TelemetryRow{row})
}

// WriteBatch inserts multiple telemetry rows in one request.
func (w *GreptimeDBWriter) WriteBatch(rows []telemetry.TelemetryRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := table.New(w.table)
	if err != nil {
		return err
	}
	cols := []error{
		tbl.AddTagColumn("cluster_id", types.STRING),
		tbl.AddTagColumn("drone_id", types.STRING),
		tbl.AddFieldColumn("lat", types.FLOAT64),
		tbl.AddFieldColumn("lon", types.FLOAT64),
		tbl.AddFieldColumn("battery", types.FLOAT64),
		tbl.AddFieldColumn("status", types.STRING),
		tbl.AddFieldColumn("signal_strength", types.INT64),
		tbl.AddFieldColumn("phase", types.STRING),
		tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND),
	}
	if err := firstErr(cols); err != nil {
		return fmt.Errorf("telemetry schema: %w", err)
	}
	for _, r := range rows {
		if err := tbl.AddRow(r.ClusterID, r.DroneID, r.Lat, r.Lon, r.Battery, r.Status,
			int64(r.SignalStrength), r.Phase, r.Timestamp); err != nil {
			return fmt.Errorf("telemetry row %s: %w", r.DroneID, err)
		}
	}
	return w.send(tbl, len(rows))
}

// WriteTimeline inserts a single timeline row.
func (w *GreptimeDBWriter) WriteTimeline(row telemetry.TimelineRow) error {
	return w.WriteTimelines([]telemetry.TimelineRow{row})
}

// WriteTimelines inserts multiple timeline rows in one request.
func (w *GreptimeDBWriter) WriteTimelines(rows []telemetry.TimelineRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := table.New(w.timelineTable)
	if err != nil {
		return err
	}
	cols := []error{
		tbl.AddTagColumn("cluster_id", types.STRING),
		tbl.AddTagColumn("phase", types.STRING),
		tbl.AddFieldColumn("incident_id", types.STRING),
		tbl.AddFieldColumn("category", types.STRING),
		tbl.AddFieldColumn("severity", types.STRING),
		tbl.AddFieldColumn("message", types.STRING),
		tbl.AddFieldColumn("elapsed_s", types.INT64),
		tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND),
	}
	if err := firstErr(cols); err != nil {
		return fmt.Errorf("timeline schema: %w", err)
	}
	for _, r := range rows {
		if err := tbl.AddRow(r.ClusterID, r.Phase, r.IncidentID, r.Category, r.Severity,
			r.Message, int64(r.ElapsedSec), r.Timestamp); err != nil {
			return fmt.Errorf("timeline row: %w", err)
		}
	}
	return w.send(tbl, len(rows))
}

// WriteAssignment inserts an assignment row. Drone ids are stored as a JSON
// array string.
func (w *GreptimeDBWriter) WriteAssignment(row telemetry.AssignmentRow) error {
	tbl, err := table.New(w.assignmentTable)
	if err != nil {
		return err
	}
	cols := []error{
		tbl.AddTagColumn("cluster_id", types.STRING),
		tbl.AddTagColumn("event_type", types.STRING),
		tbl.AddFieldColumn("drone_ids", types.STRING),
		tbl.AddFieldColumn("incident_id", types.STRING),
		tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND),
	}
	if err := firstErr(cols); err != nil {
		return fmt.Errorf("assignment schema: %w", err)
	}
	ids, err := json.Marshal(row.DroneIDs)
	if err != nil {
		return err
	}
	if err := tbl.AddRow(row.ClusterID, row.EventType, string(ids), row.IncidentID, row.Timestamp); err != nil {
		return fmt.Errorf("assignment row: %w", err)
	}
	return w.send(tbl, 1)
}

func (w *GreptimeDBWriter) send(tbl *table.Table, n int) error {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	if _, err := w.client.Write(ctx, tbl); err != nil {
		w.log.Error("greptime write failed", "rows", n, "err", err)
		return fmt.Errorf("greptime write: %w", err)
	}
	w.log.Debug("greptime write", "rows", n)
	return nil
}

func firstErr(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
