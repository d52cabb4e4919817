package telemetry

import "time"

const (
	AssignmentDispatched = "assignment"
	AssignmentReleased   = "unassignment"
)

// AssignmentRow records drones committed to or released from an incident.
type AssignmentRow struct {
	ClusterID  string    `json:"cluster_id"`
	EventType  string    `json:"event_type"`
	DroneIDs   []string  `json:"drone_ids"`
	IncidentID string    `json:"incident_id,omitempty"`
	Timestamp  time.Time `json:"ts"`
}

// DefaultAssignmentTable is used when no table is configured.
const DefaultAssignmentTable = "drone_assignments"
