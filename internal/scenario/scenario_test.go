package scenario

import (
	"strings"
	"testing"
	"time"

	"droneops-console/internal/model"
)

func TestScenarioTransition(t *testing.T) {
	s := Scenario{
		Monitoring: Narrative{
			Triggers: []Trigger{{Event: "phase_seconds", Value: 10, Next: PhaseValidating}},
		},
	}

	next, ok := s.NextPhase(PhaseMonitoring, Event{Type: "phase_seconds", Value: 10})
	if !ok || next != PhaseValidating {
		t.Fatalf("expected transition to validating, got %s", next)
	}
	if _, ok := s.NextPhase(PhaseMonitoring, Event{Type: "phase_seconds", Value: 9}); ok {
		t.Fatalf("trigger fired below threshold")
	}
	if _, ok := s.NextPhase("unknown", Event{Type: "phase_seconds", Value: 99}); ok {
		t.Fatalf("trigger fired for unknown phase")
	}
}

func TestLoadScenario(t *testing.T) {
	sc, err := Load("testdata/flood.yaml")
	if err != nil {
		t.Fatalf("load scenario: %v", err)
	}
	if sc.Name != "river-flood" {
		t.Fatalf("unexpected name %s", sc.Name)
	}
	if sc.Validating.Incident == nil || sc.Validating.Incident.ID != "INC-9001" {
		t.Fatalf("unexpected validating incident %+v", sc.Validating.Incident)
	}
	a := sc.Validating.Assignments[0]
	if a.Status != model.DroneEnRoute || a.ETASec == nil || *a.ETASec != 40 {
		t.Fatalf("unexpected assignment %+v", a)
	}
	if len(sc.Monitoring.Triggers) != 1 {
		t.Fatalf("expected 1 monitoring trigger, got %d", len(sc.Monitoring.Triggers))
	}
}

func TestLoadScenarioRejectsMissingIncident(t *testing.T) {
	if _, err := Load("testdata/broken.yaml"); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestBuiltInArcs(t *testing.T) {
	sc, err := Resolve("", "")
	if err != nil {
		t.Fatalf("resolve default: %v", err)
	}
	if err := sc.Validate(); err != nil {
		t.Fatalf("built-in invalid: %v", err)
	}
	if len(sc.Monitoring.Timeline) != 5 || len(sc.Validating.Timeline) != 5 || len(sc.Responding.Timeline) != 8 {
		t.Fatalf("unexpected timeline sizes %d/%d/%d",
			len(sc.Monitoring.Timeline), len(sc.Validating.Timeline), len(sc.Responding.Timeline))
	}
	if sc.Validating.Incident.Severity != model.SeverityHigh || sc.Responding.Incident.Severity != model.SeverityCritical {
		t.Fatalf("severity should escalate between phases")
	}
	if _, err := Resolve("does-not-exist", ""); err == nil {
		t.Fatalf("expected error for unknown scenario")
	}
}

func TestNarrativeEvents(t *testing.T) {
	anchor := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	n := BuiltIn()[DefaultName].Monitoring
	evs := n.Events(PhaseMonitoring, anchor)
	if len(evs) != len(n.Timeline) {
		t.Fatalf("expected %d events, got %d", len(n.Timeline), len(evs))
	}
	if evs[0].ID != "monitoring-01" {
		t.Fatalf("unexpected id %s", evs[0].ID)
	}
	if !evs[0].Timestamp.Equal(anchor.Add(-time.Hour)) {
		t.Fatalf("unexpected timestamp %v", evs[0].Timestamp)
	}
	for i := 1; i < len(evs); i++ {
		if evs[i].Timestamp.Before(evs[i-1].Timestamp) {
			t.Fatalf("events out of order at %d", i)
		}
	}
}

func TestIncidentBuildCopiesSlices(t *testing.T) {
	tpl := *BuiltIn()[DefaultName].Responding.Incident
	assigned := []string{"D-247"}
	inc := tpl.Build(model.IncidentActive, time.Now(), assigned)
	assigned[0] = "mutated"
	inc.GroundUnits[0] = "mutated"
	if inc.AssignedDrones[0] != "D-247" {
		t.Fatalf("assigned drones aliased caller slice")
	}
	if tpl.GroundUnits[0] != "Fire Unit 12" {
		t.Fatalf("ground units aliased template slice")
	}
}

func TestCheckFleet(t *testing.T) {
	sc := BuiltIn()[DefaultName]
	drones := []string{"D-247", "D-309", "D-118"}
	sensors := []string{"S-001", "S-002"}
	if err := sc.CheckFleet(drones, sensors); err != nil {
		t.Fatalf("built-in scenario should fit the fleet: %v", err)
	}

	err := sc.CheckFleet([]string{"D-309"}, sensors)
	if err == nil || !strings.Contains(err.Error(), `unknown drone "D-247"`) {
		t.Fatalf("expected missing D-247 error, got %v", err)
	}
	if err := sc.CheckFleet(drones, nil); err == nil || !strings.Contains(err.Error(), `unknown sensor "S-002"`) {
		t.Fatalf("expected missing S-002 error, got %v", err)
	}
}
