package scenario

import (
	"errors"
	"fmt"
	"os"
	"time"

	"droneops-console/internal/model"

	"gopkg.in/yaml.v3"
)

// Phase names used as narrative keys and trigger targets.
const (
	PhaseMonitoring = "monitoring"
	PhaseValidating = "validating"
	PhaseResponding = "responding"
)

// Scenario is the canned narrative the console plays through: a baseline
// timeline plus what happens when an incident is raised and approved.
type Scenario struct {
	Name        string    `yaml:"name,omitempty"`
	Description string    `yaml:"description,omitempty"`
	Monitoring  Narrative `yaml:"monitoring"`
	Validating  Narrative `yaml:"validating"`
	Responding  Narrative `yaml:"responding"`
}

// Narrative describes one phase: its timeline, the incident state, the drone
// assignments and any sensors that flip to alert.
type Narrative struct {
	Description  string            `yaml:"description,omitempty"`
	Timeline     []EventTemplate   `yaml:"timeline"`
	Incident     *IncidentTemplate `yaml:"incident,omitempty"`
	Assignments  []Assignment      `yaml:"assignments,omitempty"`
	SensorAlerts []string          `yaml:"sensor_alerts,omitempty"`
	Triggers     []Trigger         `yaml:"triggers,omitempty"`
}

// EventTemplate is a timeline entry placed relative to the phase anchor.
type EventTemplate struct {
	OffsetSec int                 `yaml:"offset_s"`
	Category  model.EventCategory `yaml:"category"`
	Message   string              `yaml:"message"`
	Severity  model.EventSeverity `yaml:"severity"`
}

// IncidentTemplate is the incident as it stands within a phase.
type IncidentTemplate struct {
	ID              string                 `yaml:"id"`
	Type            string                 `yaml:"type"`
	Title           string                 `yaml:"title"`
	Severity        model.IncidentSeverity `yaml:"severity"`
	Position        model.LatLng           `yaml:"position"`
	Address         string                 `yaml:"address"`
	Confidence      int                    `yaml:"confidence"`
	Threat          model.ThreatAssessment `yaml:"threat"`
	GroundUnits     []string               `yaml:"ground_units,omitempty"`
	EvacuationsSent int                    `yaml:"evacuations_sent,omitempty"`
	Rationale       string                 `yaml:"rationale,omitempty"`
}

// Assignment retasks one drone when a phase is entered.
type Assignment struct {
	DroneID string            `yaml:"drone_id"`
	Status  model.DroneStatus `yaml:"status"`
	Task    string            `yaml:"task"`
	ETASec  *int              `yaml:"eta_s,omitempty"`
}

// Trigger moves the console to another phase based on an event.
type Trigger struct {
	Event string `yaml:"event"`
	Value int    `yaml:"value"`
	Next  string `yaml:"next"`
}

// Event represents a runtime occurrence that may advance the scenario.
type Event struct {
	Type  string
	Value int
}

// Load reads a YAML scenario definition from disk.
func Load(path string) (*Scenario, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var s Scenario
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Resolve returns the named built-in scenario or loads path when set.
func Resolve(name, path string) (*Scenario, error) {
	if path != "" {
		return Load(path)
	}
	if name == "" {
		name = DefaultName
	}
	sc, ok := BuiltIn()[name]
	if !ok {
		return nil, fmt.Errorf("unknown scenario %q", name)
	}
	return &sc, nil
}

// Validate checks that the incident phases carry an incident.
func (s *Scenario) Validate() error {
	if s.Validating.Incident == nil {
		return fmt.Errorf("scenario %q: validating phase has no incident", s.Name)
	}
	if s.Responding.Incident == nil {
		return fmt.Errorf("scenario %q: responding phase has no incident", s.Name)
	}
	if s.Monitoring.Incident != nil {
		return fmt.Errorf("scenario %q: monitoring phase must not carry an incident", s.Name)
	}
	return nil
}

// CheckFleet reports assignments and sensor alerts that name ids missing
// from the fleet, so a custom baseline cannot silently ignore them.
func (s *Scenario) CheckFleet(droneIDs, sensorIDs []string) error {
	drones := map[string]bool{}
	for _, id := range droneIDs {
		drones[id] = true
	}
	sensors := map[string]bool{}
	for _, id := range sensorIDs {
		sensors[id] = true
	}
	var errs []error
	for _, n := range []struct {
		phase string
		n     Narrative
	}{{PhaseMonitoring, s.Monitoring}, {PhaseValidating, s.Validating}, {PhaseResponding, s.Responding}} {
		for _, a := range n.n.Assignments {
			if !drones[a.DroneID] {
				errs = append(errs, fmt.Errorf("scenario %q: %s assigns unknown drone %q", s.Name, n.phase, a.DroneID))
			}
		}
		for _, id := range n.n.SensorAlerts {
			if !sensors[id] {
				errs = append(errs, fmt.Errorf("scenario %q: %s alerts unknown sensor %q", s.Name, n.phase, id))
			}
		}
	}
	return errors.Join(errs...)
}

// Narrative returns the narrative for a phase name.
func (s *Scenario) Narrative(phase string) (Narrative, bool) {
	switch phase {
	case PhaseMonitoring:
		return s.Monitoring, true
	case PhaseValidating:
		return s.Validating, true
	case PhaseResponding:
		return s.Responding, true
	}
	return Narrative{}, false
}

// NextPhase returns the name of the next phase given the current phase and event.
// If no trigger matches, ok will be false.
func (s *Scenario) NextPhase(current string, ev Event) (next string, ok bool) {
	n, found := s.Narrative(current)
	if !found {
		return "", false
	}
	for _, tr := range n.Triggers {
		if tr.Event == ev.Type && ev.Value >= tr.Value {
			return tr.Next, true
		}
	}
	return "", false
}

// Events instantiates the timeline relative to anchor. IDs are prefixed with
// phase so that entries stay unique across narrative swaps.
func (n Narrative) Events(phase string, anchor time.Time) []model.TimelineEvent {
	out := make([]model.TimelineEvent, 0, len(n.Timeline))
	for i, tpl := range n.Timeline {
		out = append(out, model.TimelineEvent{
			ID:        fmt.Sprintf("%s-%02d", phase, i+1),
			Timestamp: anchor.Add(time.Duration(tpl.OffsetSec) * time.Second),
			Category:  tpl.Category,
			Message:   tpl.Message,
			Severity:  tpl.Severity,
		})
	}
	return out
}

// Build turns the template into an incident detected at detectedAt.
func (t IncidentTemplate) Build(status model.IncidentStatus, detectedAt time.Time, assigned []string) model.Incident {
	return model.Incident{
		ID:              t.ID,
		Type:            t.Type,
		Title:           t.Title,
		Severity:        t.Severity,
		Position:        t.Position,
		Address:         t.Address,
		Confidence:      t.Confidence,
		DetectedAt:      detectedAt,
		Status:          status,
		Threat:          t.Threat,
		AssignedDrones:  append([]string(nil), assigned...),
		GroundUnits:     append([]string(nil), t.GroundUnits...),
		EvacuationsSent: t.EvacuationsSent,
	}
}
