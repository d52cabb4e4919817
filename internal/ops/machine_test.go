package ops

import (
	"math/rand"
	"testing"
	"time"

	"droneops-console/internal/config"
	"droneops-console/internal/model"
	"droneops-console/internal/telemetry"

	"github.com/google/go-cmp/cmp"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time           { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestMachine(t *testing.T) (*Machine, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	drifter := telemetry.NewDrifter("test", 1).WithClock(clock.now)
	return NewMachine(BaselineFromConfig(config.Default()), nil, drifter, clock.now), clock
}

func countStatus(s Snapshot, st model.DroneStatus) int {
	return s.CountStatus(func(x model.DroneStatus) bool { return x == st })
}

func TestScenarioRaiseApproveResolve(t *testing.T) {
	m, clock := newTestMachine(t)
	baseline := m.Snapshot()

	// A: raise
	r := m.RaiseIncident()
	if !r.Changed || r.From != Monitoring || r.To != Validating {
		t.Fatalf("unexpected raise result %+v", r)
	}
	s := m.Snapshot()
	if s.Phase != Validating || s.Incident == nil || s.Incident.Status != model.IncidentDetected {
		t.Fatalf("unexpected state after raise: phase=%s incident=%+v", s.Phase, s.Incident)
	}
	if n := countStatus(s, model.DroneEnRoute); n != 1 {
		t.Fatalf("expected 1 en-route drone, got %d", n)
	}
	d, _ := s.Drone("D-247")
	if d.ETA == nil || *d.ETA != 27 || d.Task != "Responding to incident" {
		t.Fatalf("unexpected D-247 after raise: %+v", d)
	}
	if s.Focus.Center != s.Incident.Position {
		t.Fatalf("focus should move to incident, got %+v", s.Focus)
	}
	for _, sn := range s.Sensors {
		if sn.ID == "S-002" && sn.Status != model.SensorAlert {
			t.Fatalf("expected S-002 in alert")
		}
	}
	if s.Timeline[0].Message != "Thermal anomaly detected by S-002" {
		t.Fatalf("unexpected validating timeline %+v", s.Timeline[0])
	}

	// B: approve
	clock.advance(5 * time.Second)
	m.ElapsedTick()
	r = m.Approve()
	if !r.Changed || r.To != Responding {
		t.Fatalf("unexpected approve result %+v", r)
	}
	s = m.Snapshot()
	if s.Incident.Status != model.IncidentActive || s.Incident.Severity != model.SeverityCritical {
		t.Fatalf("incident should escalate, got %+v", s.Incident)
	}
	if n := countStatus(s, model.DroneOnMission); n != 2 {
		t.Fatalf("expected 2 on-mission drones, got %d", n)
	}
	if d, _ := s.Drone("D-247"); d.ETA != nil {
		t.Fatalf("ETA should clear on mission, got %d", *d.ETA)
	}
	if diff := cmp.Diff([]string{"D-247", "D-309"}, s.Incident.AssignedDrones); diff != "" {
		t.Fatalf("assigned drones mismatch (-want +got):\n%s", diff)
	}
	if !s.Incident.DetectedAt.Equal(baseline.Timeline[0].Timestamp.Add(time.Hour)) {
		t.Fatalf("detection time should stay at raise time, got %v", s.Incident.DetectedAt)
	}
	if s.ElapsedSec != 1 || !m.ElapsedTick() {
		t.Fatalf("elapsed counter should keep running, got %d", s.ElapsedSec)
	}

	// C: resolve
	r = m.MarkResolved()
	if !r.Changed || r.To != Monitoring {
		t.Fatalf("unexpected resolve result %+v", r)
	}
	if diff := cmp.Diff(baseline, m.Snapshot()); diff != "" {
		t.Fatalf("resolve should restore baseline (-want +got):\n%s", diff)
	}
}

func TestApproveInMonitoringIsNoop(t *testing.T) {
	m, _ := newTestMachine(t)
	before := m.Snapshot()
	r := m.Approve()
	if r.Changed || r.From != Monitoring || r.To != Monitoring || r.Reason == "" {
		t.Fatalf("unexpected result %+v", r)
	}
	if diff := cmp.Diff(before, m.Snapshot()); diff != "" {
		t.Fatalf("approve in monitoring changed state:\n%s", diff)
	}
}

func TestSamePhaseRequestsAreNoops(t *testing.T) {
	m, _ := newTestMachine(t)
	m.RaiseIncident()
	before := m.Snapshot()
	if r := m.RaiseIncident(); r.Changed {
		t.Fatalf("second raise should be a no-op")
	}
	m.Approve()
	mid := m.Snapshot()
	if r := m.Approve(); r.Changed || r.Reason != "response already approved" {
		t.Fatalf("second approve should be a no-op, got %+v", r)
	}
	if r := m.RaiseIncident(); r.Changed {
		t.Fatalf("raise while responding should be a no-op")
	}
	if diff := cmp.Diff(mid, m.Snapshot()); diff != "" {
		t.Fatalf("no-op changed state:\n%s", diff)
	}
	if before.Phase != Validating {
		t.Fatalf("unexpected phase %s", before.Phase)
	}
	m.Veto()
	for _, fn := range []func() Result{m.Veto, m.MarkResolved, m.MonitorOnly} {
		if r := fn(); r.Changed {
			t.Fatalf("return-to-monitoring in monitoring should be a no-op, got %+v", r)
		}
	}
}

func TestElapsedLaw(t *testing.T) {
	m, _ := newTestMachine(t)
	if m.ElapsedTick() || m.Snapshot().ElapsedSec != 0 {
		t.Fatalf("elapsed must not run in monitoring")
	}
	m.RaiseIncident()
	if m.Snapshot().ElapsedSec != 0 {
		t.Fatalf("elapsed should start at 0")
	}
	for i := 0; i < 3; i++ {
		m.ElapsedTick()
	}
	m.Approve()
	if got := m.Snapshot().ElapsedSec; got != 3 {
		t.Fatalf("elapsed should carry across approve, got %d", got)
	}
	m.ElapsedTick()
	if got := m.Snapshot().ElapsedSec; got != 4 {
		t.Fatalf("expected 4, got %d", got)
	}
	m.Veto()
	if got := m.Snapshot().ElapsedSec; got != 0 {
		t.Fatalf("elapsed should reset on monitoring, got %d", got)
	}
}

func TestDriftDoesNotChangePhase(t *testing.T) {
	m, _ := newTestMachine(t)
	m.RaiseIncident()
	before := m.Snapshot()
	rows := m.DriftTick()
	after := m.Snapshot()
	if len(rows) != len(before.Drones) {
		t.Fatalf("expected one row per drone, got %d", len(rows))
	}
	if after.Phase != before.Phase {
		t.Fatalf("drift changed phase")
	}
	if diff := cmp.Diff(before.Incident, after.Incident); diff != "" {
		t.Fatalf("drift changed incident:\n%s", diff)
	}
	for i := range before.Drones {
		if before.Drones[i].Status != after.Drones[i].Status || before.Drones[i].Task != after.Drones[i].Task {
			t.Fatalf("drift changed drone %s", before.Drones[i].ID)
		}
	}
	moved := false
	for i := range before.Drones {
		if before.Drones[i].Status.Airborne() && before.Drones[i].Position != after.Drones[i].Position {
			moved = true
		}
	}
	if !moved {
		t.Fatalf("expected airborne drones to drift")
	}
}

func TestJumpTo(t *testing.T) {
	m, _ := newTestMachine(t)
	if r := m.JumpTo(Responding); !r.Changed || r.From != Monitoring || r.To != Responding {
		t.Fatalf("unexpected jump result %+v", r)
	}
	if m.Snapshot().Incident.Status != model.IncidentActive {
		t.Fatalf("expected active incident")
	}
	if r := m.JumpTo(Validating); r.To != Validating {
		t.Fatalf("unexpected jump result %+v", r)
	}
	s := m.Snapshot()
	if s.Incident.Status != model.IncidentDetected || countStatus(s, model.DroneOnMission) != 0 {
		t.Fatalf("jump back to validating should not keep responding state")
	}
	if r := m.JumpTo(Validating); r.Changed {
		t.Fatalf("jump to current phase should be a no-op")
	}
	m.JumpTo(Monitoring)
	if m.Phase() != Monitoring {
		t.Fatalf("expected monitoring")
	}
}

func TestOnChangeObservers(t *testing.T) {
	m, _ := newTestMachine(t)
	var phases []Phase
	m.OnChange(func(s Snapshot) { phases = append(phases, s.Phase) })
	m.Approve()
	m.RaiseIncident()
	m.Approve()
	m.Veto()
	want := []Phase{Validating, Responding, Monitoring}
	if diff := cmp.Diff(want, phases); diff != "" {
		t.Fatalf("observer phases mismatch (-want +got):\n%s", diff)
	}
}

func TestCheckTriggers(t *testing.T) {
	m, clock := newTestMachine(t)
	m.sc.Monitoring.Triggers = append(m.sc.Monitoring.Triggers, scenarioTrigger(30))
	if r := m.CheckTriggers(); r.Changed {
		t.Fatalf("trigger fired early")
	}
	clock.advance(31 * time.Second)
	if r := m.CheckTriggers(); !r.Changed || r.To != Validating {
		t.Fatalf("expected trigger to raise incident, got %+v", r)
	}
}

func TestVetoRoundTripOverRandomSequences(t *testing.T) {
	for seed := int64(0); seed < 50; seed++ {
		m, clock := newTestMachine(t)
		baseline := m.Snapshot()
		rng := rand.New(rand.NewSource(seed))
		for step := 0; step < 40; step++ {
			clock.advance(time.Second)
			switch rng.Intn(9) {
			case 0:
				m.RaiseIncident()
			case 1:
				m.Approve()
			case 2:
				m.Veto()
			case 3:
				m.MarkResolved()
			case 4:
				m.MonitorOnly()
			case 5:
				m.JumpTo([]Phase{Monitoring, Validating, Responding}[rng.Intn(3)])
			case 6:
				m.DriftTick()
			case 7, 8:
				m.ElapsedTick()
			}
			s := m.Snapshot()
			if (s.Phase == Monitoring) != (s.Incident == nil) {
				t.Fatalf("seed %d step %d: incident presence inconsistent with phase %s", seed, step, s.Phase)
			}
			if s.Phase == Monitoring {
				if s.ElapsedSec != 0 {
					t.Fatalf("seed %d step %d: elapsed %d in monitoring", seed, step, s.ElapsedSec)
				}
				if n := s.CountStatus(model.DroneStatus.Active); n != 0 {
					t.Fatalf("seed %d step %d: %d committed drones in monitoring", seed, step, n)
				}
			}
		}
		if m.Phase() == Monitoring {
			m.RaiseIncident()
		}
		if r := m.Veto(); !r.Changed {
			t.Fatalf("seed %d: veto did not change phase", seed)
		}
		if diff := cmp.Diff(baseline, m.Snapshot()); diff != "" {
			t.Fatalf("seed %d: veto did not restore baseline (-want +got):\n%s", seed, diff)
		}
	}
}

func TestParsePhase(t *testing.T) {
	for in, want := range map[string]Phase{"green": Monitoring, "2": Validating, " Responding ": Responding} {
		got, err := ParsePhase(in)
		if err != nil || got != want {
			t.Fatalf("ParsePhase(%q) = %s, %v", in, got, err)
		}
	}
	if _, err := ParsePhase("purple"); err == nil {
		t.Fatalf("expected error")
	}
	if Validating.Color() != "amber" || Responding.Label() != "RESPONDING" {
		t.Fatalf("unexpected phase presentation")
	}
}
