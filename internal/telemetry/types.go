// Telemetry rows with greptime tags
package telemetry

import "time"

// TelemetryRow represents one drift sample for a drone.
type TelemetryRow struct {
	ClusterID      string    `json:"cluster_id"`      // TAG
	DroneID        string    `json:"drone_id"`        // TAG
	Lat            float64   `json:"lat"`             // FIELD
	Lon            float64   `json:"lon"`             // FIELD
	Battery        float64   `json:"battery"`         // FIELD
	Status         string    `json:"status"`          // FIELD
	SignalStrength int       `json:"signal_strength"` // FIELD
	Phase          string    `json:"phase"`           // FIELD
	Timestamp      time.Time `json:"ts"`              // TIME INDEX
}

// DefaultTelemetryTable is used when no table is configured.
const DefaultTelemetryTable = "drone_telemetry"

// TimelineRow records one timeline entry or phase transition.
type TimelineRow struct {
	ClusterID  string    `json:"cluster_id"`  // TAG
	Phase      string    `json:"phase"`       // TAG
	IncidentID string    `json:"incident_id"` // FIELD
	Category   string    `json:"category"`    // FIELD
	Severity   string    `json:"severity"`    // FIELD
	Message    string    `json:"message"`     // FIELD
	ElapsedSec int       `json:"elapsed_s"`   // FIELD
	Timestamp  time.Time `json:"ts"`          // TIME INDEX
}

// DefaultTimelineTable is used when no table is configured.
const DefaultTimelineTable = "console_timeline"
