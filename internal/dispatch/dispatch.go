// Package dispatch routes typed commands and key presses to the state
// machine and turns the outcome into operator advisories.
package dispatch

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"droneops-console/internal/grammar"
	"droneops-console/internal/logging"
	"droneops-console/internal/model"
	"droneops-console/internal/ops"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "droneops-console/internal/dispatch"

// Level is the display weight of an advisory.
type Level string

const (
	LevelInfo     Level = "info"
	LevelWarning  Level = "warning"
	LevelRejected Level = "rejected"
)

// Advisory is a non-fatal notification shown to the operator.
type Advisory struct {
	ID          uuid.UUID `json:"id"`
	Time        time.Time `json:"ts"`
	Title       string    `json:"title"`
	Detail      string    `json:"detail"`
	Level       Level     `json:"level"`
	Suggestions []string  `json:"suggestions,omitempty"`
}

func (a Advisory) String() string {
	s := a.Title
	if a.Detail != "" {
		s += ": " + a.Detail
	}
	if len(a.Suggestions) > 0 {
		s += " (try: " + strings.Join(a.Suggestions, ", ") + ")"
	}
	return s
}

// Result is the outcome of one command.
type Result struct {
	Input      string         `json:"input"`
	Action     grammar.Action `json:"action,omitempty"`
	Matched    bool           `json:"matched"`
	Advisory   Advisory       `json:"advisory"`
	Transition *ops.Result    `json:"transition,omitempty"`
	Focus      *model.Focus   `json:"focus,omitempty"`
	Select     string         `json:"select,omitempty"`
}

// advisoryLogSize bounds the recent-advisory log.
const advisoryLogSize = 50

var droneIDPattern = regexp.MustCompile(`d-?(\d+)`)

// Dispatcher resolves commands against the current machine phase.
type Dispatcher struct {
	m          *ops.Machine
	lowBattery float64
	now        func() time.Time

	mu  sync.Mutex
	log []Advisory

	commands metric.Int64Counter
}

// New creates a dispatcher bound to m. lowBattery is the charge below which
// a docked drone is not offered as backup.
func New(m *ops.Machine, lowBattery float64, now func() time.Time) *Dispatcher {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	meter := otel.Meter(instrumentationName)
	commands, err := meter.Int64Counter("droneops.console.commands",
		metric.WithDescription("Operator commands by action and outcome"))
	if err != nil {
		otel.Handle(err)
	}
	return &Dispatcher{m: m, lowBattery: lowBattery, now: now, commands: commands}
}

// Dispatch resolves input through the grammar and executes the action.
func (d *Dispatcher) Dispatch(ctx context.Context, input string) Result {
	log := logging.FromContext(ctx)
	res := Result{Input: input}
	entry, ok := grammar.Resolve(input)
	if !ok {
		log.Info("command not recognized", "input", grammar.Normalize(input))
		res.Advisory = d.advise(LevelRejected, "Command not recognized",
			fmt.Sprintf("%q did not match any command.", strings.TrimSpace(input)), grammar.Examples()...)
		d.count(ctx, "unrecognized", "rejected")
		return res
	}
	res.Matched = true
	res.Action = entry.Action
	d.execute(ctx, &res, grammar.Normalize(input))
	log.Info("command dispatched", "action", res.Action, "level", res.Advisory.Level)
	d.count(ctx, string(res.Action), string(res.Advisory.Level))
	return res
}

// Key handles a keyboard binding. ok is false for keys that are unbound or
// ignored in the current phase.
func (d *Dispatcher) Key(ctx context.Context, key string) (Result, bool) {
	log := logging.FromContext(ctx)
	res := Result{Input: key, Matched: true}
	switch key {
	case " ", "space":
		if d.m.Phase() != ops.Validating {
			return Result{}, false
		}
		res.Action = grammar.Approve
		d.execute(ctx, &res, "approve")
	case "esc":
		res.Action = grammar.Decline
		d.execute(ctx, &res, "decline")
	case "1", "2", "3":
		target, _ := ops.ParsePhase(key)
		tr := d.m.JumpTo(target)
		res.Transition = &tr
		if tr.Changed {
			res.Advisory = d.advise(LevelInfo, "Phase "+target.Label(), fmt.Sprintf("Jumped from %s.", tr.From))
		} else {
			res.Advisory = d.advise(LevelInfo, "Phase "+target.Label(), "Already there.")
		}
	default:
		return Result{}, false
	}
	log.Info("key dispatched", "key", key, "action", res.Action, "phase", d.m.Phase())
	d.count(ctx, "key:"+key, string(res.Advisory.Level))
	return res, true
}

// Advisories returns the most recent advisories, oldest first.
func (d *Dispatcher) Advisories() []Advisory {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Advisory(nil), d.log...)
}

func (d *Dispatcher) execute(ctx context.Context, res *Result, norm string) {
	snap := d.m.Snapshot()
	switch res.Action {
	case grammar.StatusCheck:
		res.Advisory = d.advise(LevelInfo, "System Status", statusText(snap))

	case grammar.IncidentDetails:
		if snap.Incident == nil {
			res.Advisory = d.advise(LevelInfo, "No Active Incident", "All zones are clear.")
			return
		}
		inc := snap.Incident
		res.Advisory = d.advise(LevelInfo, "Incident Details",
			fmt.Sprintf("%s at %s. Confidence: %d%%", inc.Title, inc.Address, inc.Confidence))

	case grammar.Approve:
		if snap.Phase != ops.Validating {
			res.Advisory = d.advise(LevelRejected, "No Pending Decision", "Nothing to approve right now.")
			return
		}
		d.transition(ctx, res, d.m.Approve)
		res.Advisory = d.advise(LevelWarning, "Response Approved", "Full response initiated.")

	case grammar.Decline:
		if snap.Incident == nil {
			res.Advisory = d.advise(LevelRejected, "Nothing To Dismiss", "Already monitoring.")
			return
		}
		d.transition(ctx, res, d.m.Veto)
		res.Advisory = d.advise(LevelInfo, "Alert Dismissed", "Returning to monitoring.")

	case grammar.MonitorOnly:
		if snap.Incident == nil {
			res.Advisory = d.advise(LevelRejected, "Nothing To Stand Down", "Already monitoring.")
			return
		}
		d.transition(ctx, res, d.m.MonitorOnly)
		res.Advisory = d.advise(LevelInfo, "Monitoring Only", "Response stood down, sensors remain on watch.")

	case grammar.MarkResolved:
		if snap.Incident == nil {
			res.Advisory = d.advise(LevelRejected, "No Active Incident", "Nothing to resolve.")
			return
		}
		d.transition(ctx, res, d.m.MarkResolved)
		res.Advisory = d.advise(LevelInfo, "Incident Resolved", "Good call. Returning to normal operations.")

	case grammar.DeployBackup:
		backup, ok := nextBackup(snap, d.lowBattery)
		if !ok {
			res.Advisory = d.advise(LevelRejected, "No Backup Available", "No docked drone has enough charge.")
			return
		}
		res.Advisory = d.advise(LevelInfo, "Backup Drone Deployed",
			fmt.Sprintf("%s launching from %s.", backup.ID, backup.Zone))

	case grammar.SendThermal:
		if snap.Incident == nil {
			res.Advisory = d.advise(LevelRejected, "No Thermal Data", "No active incident to share.")
			return
		}
		res.Advisory = d.advise(LevelInfo, "Thermal Map Sent", "Fire department received thermal imagery.")

	case grammar.ShowDrone:
		m := droneIDPattern.FindStringSubmatch(norm)
		if m == nil {
			res.Advisory = d.advise(LevelRejected, "Specify Drone ID", `Say "show drone D-247"`)
			return
		}
		id := "D-" + m[1]
		drone, ok := snap.Drone(id)
		if !ok || !drone.Position.Valid() {
			res.Advisory = d.advise(LevelRejected, "Unknown Drone", fmt.Sprintf("No position for %s.", id))
			return
		}
		f := model.Focus{Center: drone.Position, Zoom: ops.ZoomDrone, Reason: "drone " + id}
		d.m.SetFocus(f)
		res.Focus = &f
		res.Select = id
		res.Advisory = d.advise(LevelInfo, "Focusing on "+id, "Map centered on drone location.")

	case grammar.ExplainRationale:
		if snap.Incident == nil {
			res.Advisory = d.advise(LevelInfo, "AI Reasoning", "No active analysis. All zones are normal.")
			return
		}
		detail := snap.Rationale
		if detail == "" {
			detail = fmt.Sprintf("Heat signature of %.0f°C matches fire pattern. Wind pushing toward structures.",
				snap.Incident.Threat.HeatSignatureC)
		}
		res.Advisory = d.advise(LevelInfo, "AI Reasoning", detail)

	case grammar.ZoomIncident:
		if snap.Incident == nil {
			res.Advisory = d.advise(LevelRejected, "No Active Incident", "No incident to focus on.")
			return
		}
		f := model.Focus{Center: snap.Incident.Position, Zoom: ops.ZoomIncident, Reason: "incident " + snap.Incident.ID}
		d.m.SetFocus(f)
		res.Focus = &f
		res.Advisory = d.advise(LevelInfo, "Map Centered", "Focused on incident location.")

	default:
		res.Advisory = d.advise(LevelRejected, "Unsupported Command", string(res.Action))
	}
}

func (d *Dispatcher) transition(ctx context.Context, res *Result, fn func() ops.Result) {
	tr := fn()
	res.Transition = &tr
	logging.FromContext(ctx).Info("phase transition",
		"action", res.Action, "from", tr.From, "to", tr.To, "changed", tr.Changed, "reason", tr.Reason)
}

func (d *Dispatcher) advise(level Level, title, detail string, suggestions ...string) Advisory {
	a := Advisory{
		ID:          uuid.New(),
		Time:        d.now(),
		Title:       title,
		Detail:      detail,
		Level:       level,
		Suggestions: suggestions,
	}
	d.mu.Lock()
	d.log = append(d.log, a)
	if len(d.log) > advisoryLogSize {
		d.log = append([]Advisory(nil), d.log[len(d.log)-advisoryLogSize:]...)
	}
	d.mu.Unlock()
	return a
}

func (d *Dispatcher) count(ctx context.Context, action, outcome string) {
	if d.commands == nil {
		return
	}
	d.commands.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("outcome", outcome),
	))
}

func statusText(s ops.Snapshot) string {
	active := s.CountStatus(model.DroneStatus.Active)
	switch s.Phase {
	case ops.Validating:
		return fmt.Sprintf("Alert state. Incident detected, awaiting approval. %d drone(s) responding.", active)
	case ops.Responding:
		return fmt.Sprintf("Active response. %d drones deployed, ground units en route.", active)
	}
	airborne := s.CountStatus(model.DroneStatus.Airborne)
	return fmt.Sprintf("System normal. %d drones active, all zones covered.", airborne)
}

// nextBackup picks the first docked drone with charge above lowBattery.
func nextBackup(s ops.Snapshot, lowBattery float64) (model.Drone, bool) {
	for _, d := range s.Drones {
		if d.Status == model.DroneDocked && d.Battery > lowBattery {
			return d, true
		}
	}
	return model.Drone{}, false
}
