package export

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"droneops-console/internal/model"
	"droneops-console/internal/ops"
	"droneops-console/internal/telemetry"
)

// Recorder turns machine snapshots into timeline and assignment rows. It
// only emits when something changed, so it can observe every snapshot,
// including drift ticks.
type Recorder struct {
	clusterID string
	lines     TimelineWriter
	asgn      AssignmentWriter
	log       *slog.Logger
	now       func() time.Time

	mu       sync.Mutex
	started  bool
	phase    ops.Phase
	assigned map[string]bool
}

// NewRecorder creates a recorder. Either writer may be nil.
func NewRecorder(clusterID string, lines TimelineWriter, asgn AssignmentWriter, log *slog.Logger) *Recorder {
	if log == nil {
		log = slog.Default()
	}
	return &Recorder{
		clusterID: clusterID,
		lines:     lines,
		asgn:      asgn,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
		assigned:  map[string]bool{},
	}
}

// WithClock replaces the time source.
func (r *Recorder) WithClock(now func() time.Time) *Recorder {
	r.now = now
	return r
}

// Observe exports what changed since the previous snapshot. Sink errors are
// logged and returned.
func (r *Recorder) Observe(snap ops.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	incidentID := ""
	if snap.Incident != nil {
		incidentID = snap.Incident.ID
	}

	if !r.started || snap.Phase != r.phase {
		rows := r.timelineRows(snap, incidentID)
		if r.lines != nil {
			errs = append(errs, WriteTimelineRows(r.lines, rows))
		}
		r.started = true
		r.phase = snap.Phase
	}

	dispatched, released := r.diffAssigned(snap.Drones)
	if r.asgn != nil {
		ts := r.now()
		if len(dispatched) > 0 {
			errs = append(errs, r.asgn.WriteAssignment(telemetry.AssignmentRow{
				ClusterID: r.clusterID, EventType: telemetry.AssignmentDispatched,
				DroneIDs: dispatched, IncidentID: incidentID, Timestamp: ts,
			}))
		}
		if len(released) > 0 {
			errs = append(errs, r.asgn.WriteAssignment(telemetry.AssignmentRow{
				ClusterID: r.clusterID, EventType: telemetry.AssignmentReleased,
				DroneIDs: released, IncidentID: incidentID, Timestamp: ts,
			}))
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		r.log.Warn("export failed", "phase", snap.Phase, "err", err)
	}
	return err
}

func (r *Recorder) timelineRows(snap ops.Snapshot, incidentID string) []telemetry.TimelineRow {
	msg := fmt.Sprintf("phase %s", snap.Phase)
	if r.started {
		msg = fmt.Sprintf("phase %s -> %s", r.phase, snap.Phase)
	}
	rows := []telemetry.TimelineRow{{
		ClusterID:  r.clusterID,
		Phase:      string(snap.Phase),
		IncidentID: incidentID,
		Category:   "phase",
		Severity:   string(phaseSeverity(snap.Phase)),
		Message:    msg,
		ElapsedSec: snap.ElapsedSec,
		Timestamp:  r.now(),
	}}
	for _, ev := range snap.Timeline {
		rows = append(rows, telemetry.TimelineRow{
			ClusterID:  r.clusterID,
			Phase:      string(snap.Phase),
			IncidentID: incidentID,
			Category:   string(ev.Category),
			Severity:   string(ev.Severity),
			Message:    ev.Message,
			ElapsedSec: snap.ElapsedSec,
			Timestamp:  ev.Timestamp,
		})
	}
	return rows
}

func (r *Recorder) diffAssigned(drones []model.Drone) (dispatched, released []string) {
	now := map[string]bool{}
	for _, d := range drones {
		if d.Status.Active() {
			now[d.ID] = true
			if !r.assigned[d.ID] {
				dispatched = append(dispatched, d.ID)
			}
		}
	}
	for id := range r.assigned {
		if !now[id] {
			released = append(released, id)
		}
	}
	sort.Strings(dispatched)
	sort.Strings(released)
	r.assigned = now
	return dispatched, released
}

func phaseSeverity(p ops.Phase) model.EventSeverity {
	switch p {
	case ops.Validating:
		return model.EventWarning
	case ops.Responding:
		return model.EventCritical
	}
	return model.EventInfo
}
