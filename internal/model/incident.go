package model

import "time"

// IncidentSeverity ranks an incident.
type IncidentSeverity string

const (
	SeverityLow      IncidentSeverity = "low"
	SeverityMedium   IncidentSeverity = "medium"
	SeverityHigh     IncidentSeverity = "high"
	SeverityCritical IncidentSeverity = "critical"
)

// IncidentStatus is the lifecycle position of an incident.
type IncidentStatus string

const (
	IncidentDetected IncidentStatus = "detected"
	IncidentActive   IncidentStatus = "active"
	IncidentResolved IncidentStatus = "resolved"
)

// ThreatAssessment summarises the automated analysis of an incident.
type ThreatAssessment struct {
	HeatSignatureC       float64 `json:"heat_signature_c" yaml:"heat_signature_c"`
	GrowthRate           string  `json:"growth_rate" yaml:"growth_rate"`
	WindSpeed            string  `json:"wind_speed" yaml:"wind_speed"`
	WindDirection        string  `json:"wind_direction" yaml:"wind_direction"`
	StructuresAtRisk     int     `json:"structures_at_risk" yaml:"structures_at_risk"`
	DistanceToStructures string  `json:"distance_to_structures" yaml:"distance_to_structures"`
}

// Incident is the single active emergency tracked by the console.
type Incident struct {
	ID              string           `json:"id"`
	Type            string           `json:"type"`
	Title           string           `json:"title"`
	Severity        IncidentSeverity `json:"severity"`
	Position        LatLng           `json:"position"`
	Address         string           `json:"address"`
	Confidence      int              `json:"confidence"`
	DetectedAt      time.Time        `json:"detected_at"`
	Status          IncidentStatus   `json:"status"`
	Threat          ThreatAssessment `json:"threat"`
	AssignedDrones  []string         `json:"assigned_drones"`
	GroundUnits     []string         `json:"ground_units"`
	EvacuationsSent int              `json:"evacuations_sent"`
}

// Clone returns a deep copy of i.
func (i Incident) Clone() Incident {
	i.AssignedDrones = append([]string(nil), i.AssignedDrones...)
	i.GroundUnits = append([]string(nil), i.GroundUnits...)
	return i
}

// EventCategory classifies a timeline entry.
type EventCategory string

const (
	EventDetection    EventCategory = "detection"
	EventDispatch     EventCategory = "dispatch"
	EventConfirmation EventCategory = "confirmation"
	EventCoordination EventCategory = "coordination"
	EventEvacuation   EventCategory = "evacuation"
	EventResolution   EventCategory = "resolution"
)

// EventSeverity is the display weight of a timeline entry.
type EventSeverity string

const (
	EventInfo     EventSeverity = "info"
	EventWarning  EventSeverity = "warning"
	EventCritical EventSeverity = "critical"
)

// TimelineEvent is one line of the operational narrative.
type TimelineEvent struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"ts"`
	Category  EventCategory `json:"category"`
	Message   string        `json:"message"`
	Severity  EventSeverity `json:"severity"`
}
