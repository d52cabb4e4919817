package scenario

import "droneops-console/internal/model"

// DefaultName is the scenario used when none is configured.
const DefaultName = "foothills-wildfire"

var incidentSite = model.LatLng{Lat: 34.0522, Lng: -118.2437}

func intp(v int) *int { return &v }

// BuiltIn returns the predefined narratives.
func BuiltIn() map[string]Scenario {
	return map[string]Scenario{
		DefaultName: {
			Name:        "Foothills Wildfire",
			Description: "A thermal anomaly near a residential area escalates into an active wildfire response.",
			Monitoring: Narrative{
				Description: "Routine patrols, all sensors nominal.",
				Timeline: []EventTemplate{
					{OffsetSec: -3600, Category: model.EventDetection, Message: "Routine patrol completed - Sector Alpha", Severity: model.EventInfo},
					{OffsetSec: -2400, Category: model.EventDispatch, Message: "D-118 deployed for perimeter check", Severity: model.EventInfo},
					{OffsetSec: -1200, Category: model.EventDetection, Message: "All sensors reporting normal", Severity: model.EventInfo},
					{OffsetSec: -600, Category: model.EventCoordination, Message: "Shift change acknowledged", Severity: model.EventInfo},
					{OffsetSec: -300, Category: model.EventDetection, Message: "D-247 battery at 85%", Severity: model.EventInfo},
				},
			},
			Validating: Narrative{
				Description: "Thermal anomaly awaiting operator validation.",
				Timeline: []EventTemplate{
					{OffsetSec: -15, Category: model.EventDetection, Message: "Thermal anomaly detected by S-002", Severity: model.EventWarning},
					{OffsetSec: -12, Category: model.EventDetection, Message: "AI analysis initiated", Severity: model.EventInfo},
					{OffsetSec: -8, Category: model.EventConfirmation, Message: "Threat validated - Heat signature 287°C", Severity: model.EventWarning},
					{OffsetSec: -5, Category: model.EventDispatch, Message: "D-247 dispatched from patrol route", Severity: model.EventInfo},
					{OffsetSec: 0, Category: model.EventCoordination, Message: "ETA to incident: 27 seconds", Severity: model.EventInfo},
				},
				Incident: &IncidentTemplate{
					ID:         "INC-2847",
					Type:       "thermal_anomaly",
					Title:      "THERMAL ANOMALY DETECTED",
					Severity:   model.SeverityHigh,
					Position:   incidentSite,
					Address:    "Foothills Residential Area",
					Confidence: 92,
					Threat: model.ThreatAssessment{
						HeatSignatureC:       287,
						GrowthRate:           "12m/min",
						WindSpeed:            "18mph",
						WindDirection:        "NE",
						StructuresAtRisk:     47,
						DistanceToStructures: "50m",
					},
					Rationale: "Heat signature of 287°C is consistent with an early-stage vegetation fire; wind from the NE pushes it toward 47 structures 50m away.",
				},
				Assignments: []Assignment{
					{DroneID: "D-247", Status: model.DroneEnRoute, Task: "Responding to incident", ETASec: intp(27)},
				},
				SensorAlerts: []string{"S-002"},
			},
			Responding: Narrative{
				Description: "Confirmed wildfire, drones and ground units engaged.",
				Timeline: []EventTemplate{
					{OffsetSec: -120, Category: model.EventDetection, Message: "Thermal signature detected", Severity: model.EventWarning},
					{OffsetSec: -105, Category: model.EventConfirmation, Message: "AI validated threat, D-247 dispatched", Severity: model.EventWarning},
					{OffsetSec: -78, Category: model.EventConfirmation, Message: "Fire confirmed, 50m from residential", Severity: model.EventCritical},
					{OffsetSec: -65, Category: model.EventCoordination, Message: "Fire department notified with coordinates", Severity: model.EventInfo},
					{OffsetSec: -50, Category: model.EventEvacuation, Message: "47 households alerted via emergency system", Severity: model.EventWarning},
					{OffsetSec: -35, Category: model.EventDispatch, Message: "D-309 deployed for evacuation support", Severity: model.EventInfo},
					{OffsetSec: -20, Category: model.EventCoordination, Message: "Fire Unit 12 en route, ETA 4 minutes", Severity: model.EventInfo},
					{OffsetSec: -5, Category: model.EventCoordination, Message: "D-247 providing live thermal feed", Severity: model.EventInfo},
				},
				Incident: &IncidentTemplate{
					ID:         "INC-2847",
					Type:       "fire",
					Title:      "WILDFIRE - ACTIVE RESPONSE",
					Severity:   model.SeverityCritical,
					Position:   incidentSite,
					Address:    "Foothills Residential Area",
					Confidence: 98,
					Threat: model.ThreatAssessment{
						HeatSignatureC:       450,
						GrowthRate:           "18m/min",
						WindSpeed:            "18mph",
						WindDirection:        "NE",
						StructuresAtRisk:     47,
						DistanceToStructures: "30m",
					},
					GroundUnits:     []string{"Fire Unit 12", "Fire Unit 7"},
					EvacuationsSent: 47,
					Rationale:       "Fire confirmed at 450°C and growing 18m/min; thermal overwatch and evacuation support keep crews and residents ahead of the front.",
				},
				Assignments: []Assignment{
					{DroneID: "D-247", Status: model.DroneOnMission, Task: "Thermal reconnaissance"},
					{DroneID: "D-309", Status: model.DroneOnMission, Task: "Evacuation support"},
				},
				SensorAlerts: []string{"S-002"},
			},
		},
	}
}
