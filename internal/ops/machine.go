package ops

import (
	"sync"
	"time"

	"droneops-console/internal/model"
	"droneops-console/internal/scenario"
	"droneops-console/internal/telemetry"
)

// Machine owns the operational phase, the active incident and the fleet
// snapshot. All transitions are total: a request that does not apply in the
// current phase returns an unchanged Result instead of an error.
type Machine struct {
	mu sync.Mutex

	base    Baseline
	sc      *scenario.Scenario
	drifter *telemetry.Drifter
	now     func() time.Time
	epoch   time.Time

	phase      Phase
	phaseSince time.Time
	incident   *model.Incident
	drones     []model.Drone
	sensors    []model.Sensor
	timeline   []model.TimelineEvent
	elapsed    int
	focus      model.Focus
	rationale  string

	observers []func(Snapshot)
}

// NewMachine creates a machine in Monitoring. A nil scenario selects the
// built-in one, a nil drifter disables drift and a nil clock uses time.Now.
func NewMachine(base Baseline, sc *scenario.Scenario, drifter *telemetry.Drifter, now func() time.Time) *Machine {
	if sc == nil {
		def := scenario.BuiltIn()[scenario.DefaultName]
		sc = &def
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	m := &Machine{
		base:    base,
		sc:      sc,
		drifter: drifter,
		now:     now,
		epoch:   now(),
	}
	m.resetLocked()
	return m
}

// OnChange registers fn to receive a snapshot after every state change.
// Observers run on the caller's goroutine after the lock is released.
func (m *Machine) OnChange(fn func(Snapshot)) {
	m.mu.Lock()
	m.observers = append(m.observers, fn)
	m.mu.Unlock()
}

// Phase returns the current phase.
func (m *Machine) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// Snapshot returns a deep copy of the current state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// RaiseIncident moves Monitoring to Validating.
func (m *Machine) RaiseIncident() Result {
	m.mu.Lock()
	if m.phase != Monitoring {
		r := noop(m.phase, "an incident is already active")
		m.mu.Unlock()
		return r
	}
	r := m.raiseLocked()
	return m.commit(r)
}

// Approve moves Validating to Responding.
func (m *Machine) Approve() Result {
	m.mu.Lock()
	if m.phase != Validating {
		reason := "no incident is awaiting approval"
		if m.phase == Responding {
			reason = "response already approved"
		}
		r := noop(m.phase, reason)
		m.mu.Unlock()
		return r
	}
	r := m.approveLocked()
	return m.commit(r)
}

// Veto rejects the pending or active response and returns to Monitoring.
func (m *Machine) Veto() Result { return m.toMonitoring("vetoed") }

// MarkResolved closes the active incident and returns to Monitoring.
func (m *Machine) MarkResolved() Result { return m.toMonitoring("resolved") }

// MonitorOnly drops the response but keeps watching from Monitoring.
func (m *Machine) MonitorOnly() Result { return m.toMonitoring("monitor only") }

// JumpTo reaches target by composing the regular transitions.
func (m *Machine) JumpTo(target Phase) Result {
	m.mu.Lock()
	from := m.phase
	if from == target {
		m.mu.Unlock()
		return noop(from, "already in "+string(target))
	}
	switch target {
	case Monitoring:
		m.resetLocked()
	case Validating:
		if from == Responding {
			m.resetLocked()
		}
		m.raiseLocked()
	case Responding:
		if from == Monitoring {
			m.raiseLocked()
		}
		m.approveLocked()
	default:
		m.mu.Unlock()
		return noop(from, "unknown phase "+string(target))
	}
	return m.commit(Result{From: from, To: m.phase, Changed: true, Reason: "jump"})
}

// CheckTriggers fires scenario triggers that depend on time spent in the
// current phase.
func (m *Machine) CheckTriggers() Result {
	m.mu.Lock()
	secs := int(m.now().Sub(m.phaseSince) / time.Second)
	next, ok := m.sc.NextPhase(string(m.phase), scenario.Event{Type: "phase_seconds", Value: secs})
	m.mu.Unlock()
	if !ok {
		return noop(m.Phase(), "")
	}
	target, err := ParsePhase(next)
	if err != nil {
		return noop(m.Phase(), err.Error())
	}
	return m.JumpTo(target)
}

// DriftTick perturbs airborne drones. It never touches the phase, the
// incident or drone statuses.
func (m *Machine) DriftTick() []telemetry.TelemetryRow {
	m.mu.Lock()
	if m.drifter == nil {
		m.mu.Unlock()
		return nil
	}
	rows := make([]telemetry.TelemetryRow, 0, len(m.drones))
	for i := range m.drones {
		rows = append(rows, m.drifter.Drift(&m.drones[i], string(m.phase)))
	}
	m.notifyLocked()
	return rows
}

// ElapsedTick advances the elapsed counter by one second outside
// Monitoring. It reports whether the counter moved.
func (m *Machine) ElapsedTick() bool {
	m.mu.Lock()
	if m.phase == Monitoring {
		m.mu.Unlock()
		return false
	}
	m.elapsed++
	m.notifyLocked()
	return true
}

// SetFocus records a requested map centre.
func (m *Machine) SetFocus(f model.Focus) {
	m.mu.Lock()
	m.focus = f
	m.notifyLocked()
}

func (m *Machine) toMonitoring(reason string) Result {
	m.mu.Lock()
	if m.phase == Monitoring {
		r := noop(m.phase, "no active incident")
		m.mu.Unlock()
		return r
	}
	from := m.phase
	m.resetLocked()
	return m.commit(Result{From: from, To: Monitoring, Changed: true, Reason: reason})
}

// commit notifies observers and releases the lock taken by the caller.
func (m *Machine) commit(r Result) Result {
	m.notifyLocked()
	return r
}

// notifyLocked releases the lock and calls observers with a fresh snapshot.
func (m *Machine) notifyLocked() {
	if len(m.observers) == 0 {
		m.mu.Unlock()
		return
	}
	snap := m.snapshotLocked()
	obs := append([]func(Snapshot){}, m.observers...)
	m.mu.Unlock()
	for _, fn := range obs {
		fn(snap)
	}
}

func (m *Machine) resetLocked() {
	m.phase = Monitoring
	m.phaseSince = m.now()
	m.incident = nil
	m.drones = cloneDrones(m.base.Drones)
	m.sensors = cloneSensors(m.base.Sensors)
	m.timeline = m.sc.Monitoring.Events(scenario.PhaseMonitoring, m.epoch)
	m.elapsed = 0
	m.focus = m.base.Focus
	m.rationale = ""
}

func (m *Machine) raiseLocked() Result {
	from := m.phase
	n := m.sc.Validating
	now := m.now()
	inc := n.Incident.Build(model.IncidentDetected, now, assignedIDs(n.Assignments))
	m.incident = &inc
	m.applyNarrativeLocked(n, scenario.PhaseValidating, now)
	m.elapsed = 0
	m.focus = model.Focus{Center: inc.Position, Zoom: ZoomIncident, Reason: "incident " + inc.ID}
	m.phase = Validating
	m.phaseSince = now
	return Result{From: from, To: Validating, Changed: true, Reason: "incident raised"}
}

func (m *Machine) approveLocked() Result {
	n := m.sc.Responding
	now := m.now()
	detected := now
	if m.incident != nil {
		detected = m.incident.DetectedAt
	}
	inc := n.Incident.Build(model.IncidentActive, detected, assignedIDs(n.Assignments))
	m.incident = &inc
	m.applyNarrativeLocked(n, scenario.PhaseResponding, now)
	m.phase = Responding
	m.phaseSince = now
	return Result{From: Validating, To: Responding, Changed: true, Reason: "response approved"}
}

func (m *Machine) applyNarrativeLocked(n scenario.Narrative, phase string, anchor time.Time) {
	for _, a := range n.Assignments {
		for i := range m.drones {
			if m.drones[i].ID != a.DroneID {
				continue
			}
			m.drones[i].Status = a.Status
			m.drones[i].Task = a.Task
			m.drones[i].ETA = nil
			if a.ETASec != nil {
				eta := *a.ETASec
				m.drones[i].ETA = &eta
			}
		}
	}
	for _, id := range n.SensorAlerts {
		for i := range m.sensors {
			if m.sensors[i].ID == id {
				m.sensors[i].Status = model.SensorAlert
			}
		}
	}
	m.timeline = n.Events(phase, anchor)
	if n.Incident != nil {
		m.rationale = n.Incident.Rationale
	}
}

func (m *Machine) snapshotLocked() Snapshot {
	return Snapshot{
		Phase:       m.phase,
		Incident:    cloneIncident(m.incident),
		Drones:      cloneDrones(m.drones),
		Sensors:     cloneSensors(m.sensors),
		Docks:       append([]model.DockStation(nil), m.base.Docks...),
		Geofences:   append([]model.Geofence(nil), m.base.Geofences...),
		Environment: m.base.Environment,
		Timeline:    append([]model.TimelineEvent(nil), m.timeline...),
		ElapsedSec:  m.elapsed,
		Focus:       m.focus,
		Rationale:   m.rationale,
	}
}

func assignedIDs(as []scenario.Assignment) []string {
	ids := make([]string, 0, len(as))
	for _, a := range as {
		ids = append(ids, a.DroneID)
	}
	return ids
}
