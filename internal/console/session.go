// Package console wires the state machine, dispatcher, map engine and
// timers into one session. Every Session method must run on the owning
// event loop: the bubbletea Update function or an ops.Loop.
package console

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"droneops-console/internal/config"
	"droneops-console/internal/dispatch"
	"droneops-console/internal/export"
	"droneops-console/internal/logging"
	"droneops-console/internal/mapview"
	"droneops-console/internal/model"
	"droneops-console/internal/ops"
	"droneops-console/internal/scenario"
	"droneops-console/internal/telemetry"
)

// Options configures a session.
type Options struct {
	Config   *config.Config
	Scenario *scenario.Scenario
	// Surface receives map layers. A nil surface means a terminal canvas.
	Surface mapview.Surface
	// Telemetry receives drift rows; Recorder receives snapshots. Both optional.
	Telemetry export.TelemetryWriter
	Recorder  *export.Recorder
	Seed      int64
	Now       func() time.Time
	Log       *slog.Logger
}

// Session is one operator console.
type Session struct {
	Machine    *ops.Machine
	Dispatcher *dispatch.Dispatcher
	Engine     *mapview.Engine
	// Canvas is set when the session draws to the built-in terminal surface.
	Canvas *mapview.Canvas

	cfg   *config.Config
	sched *ops.Scheduler
	tele  export.TelemetryWriter
	log   *slog.Logger
	last  mapview.Stats
}

// New builds a session from opts. Timers are not started until Start. It
// fails when the scenario retasks drones or sensors the baseline lacks.
func New(opts Options) (*Session, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	sc := opts.Scenario
	if sc == nil {
		def, err := scenario.Resolve("", "")
		if err != nil {
			return nil, err
		}
		sc = def
	}
	if err := sc.CheckFleet(droneIDs(cfg), sensorIDs(cfg)); err != nil {
		return nil, fmt.Errorf("scenario does not fit baseline: %w", err)
	}
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	base := ops.BaselineFromConfig(cfg)
	drifter := telemetry.NewDrifter(cfg.ClusterID, opts.Seed).WithClock(now)
	m := ops.NewMachine(base, sc, drifter, now)

	s := &Session{
		Machine:    m,
		Dispatcher: dispatch.New(m, cfg.LowBatteryThreshold, now),
		cfg:        cfg,
		tele:       opts.Telemetry,
		log:        log,
	}
	surface := opts.Surface
	if surface == nil {
		s.Canvas = mapview.NewCanvas(base.Focus)
		surface = s.Canvas
	}
	s.Engine = mapview.NewEngine(surface, cfg.LowBatteryThreshold, log)
	if rec := opts.Recorder; rec != nil {
		m.OnChange(func(snap ops.Snapshot) { _ = rec.Observe(snap) })
		_ = rec.Observe(m.Snapshot())
	}
	return s, nil
}

func droneIDs(cfg *config.Config) []string {
	ids := make([]string, 0, len(cfg.Drones))
	for _, d := range cfg.Drones {
		ids = append(ids, d.ID)
	}
	return ids
}

func sensorIDs(cfg *config.Config) []string {
	ids := make([]string, 0, len(cfg.Sensors))
	for _, s := range cfg.Sensors {
		ids = append(ids, s.ID)
	}
	return ids
}

// Config returns the baseline configuration.
func (s *Session) Config() *config.Config { return s.cfg }

// Start launches the drift and elapsed timers. emit is called from timer
// goroutines and must hand the tick to the event loop.
func (s *Session) Start(ctx context.Context, emit func(ops.Tick)) {
	s.sched = ops.NewScheduler(s.cfg.DriftInterval, emit)
	s.sched.Start(ctx)
	s.sched.SyncPhase(s.Machine.Phase())
	s.Refresh(ctx)
}

// Stop cancels the timers and waits for them to exit.
func (s *Session) Stop() {
	if s.sched != nil {
		s.sched.Stop()
	}
}

// Command runs a typed phrase.
func (s *Session) Command(ctx context.Context, input string) dispatch.Result {
	res := s.Dispatcher.Dispatch(ctx, input)
	s.apply(ctx, res)
	return res
}

// Key runs a key binding. ok is false when the key is not bound.
func (s *Session) Key(ctx context.Context, key string) (dispatch.Result, bool) {
	res, ok := s.Dispatcher.Key(ctx, key)
	if ok {
		s.apply(ctx, res)
	}
	return res, ok
}

func (s *Session) apply(ctx context.Context, res dispatch.Result) {
	if res.Select != "" {
		// showing the highlighted drone again clears the highlight
		s.Engine.Select(res.Select)
	}
	if res.Transition != nil && res.Transition.Changed {
		logging.FromContext(ctx).Info("phase changed",
			"from", res.Transition.From, "phase", res.Transition.To, "reason", res.Transition.Reason)
	}
	s.Refresh(ctx)
}

// Tick handles one timer tick and reports whether the snapshot changed.
func (s *Session) Tick(ctx context.Context, t ops.Tick) bool {
	if s.sched != nil && !s.sched.Fresh(t) {
		return false
	}
	switch t.Kind {
	case ops.TickDrift:
		rows := s.Machine.DriftTick()
		if s.tele != nil {
			if err := export.WriteRows(s.tele, rows); err != nil {
				logging.FromContext(ctx).Warn("telemetry export failed", "err", err)
			}
		}
		if r := s.Machine.CheckTriggers(); r.Changed {
			logging.FromContext(ctx).Info("scenario trigger fired", "from", r.From, "phase", r.To)
		}
	case ops.TickElapsed:
		if !s.Machine.ElapsedTick() {
			return false
		}
	}
	s.Refresh(ctx)
	return true
}

// Refresh aligns the timers with the current phase and reconciles the map.
func (s *Session) Refresh(ctx context.Context) mapview.Stats {
	snap := s.Machine.Snapshot()
	if s.sched != nil {
		s.sched.SyncPhase(snap.Phase)
	}
	s.last = s.Engine.Reconcile(ctx, snap)
	return s.last
}

// LastStats returns the result of the most recent reconciliation.
func (s *Session) LastStats() mapview.Stats { return s.last }

// Focus queues a map pan or zoom and reconciles.
func (s *Session) Focus(ctx context.Context, f model.Focus) {
	s.Engine.RequestFocus(f)
	s.Refresh(ctx)
}

// SelectNext moves the selection to the next drone with a position, or
// clears it after the last one.
func (s *Session) SelectNext(ctx context.Context) string {
	snap := s.Machine.Snapshot()
	cur := s.Engine.Selected()
	var ids []string
	for _, d := range snap.Drones {
		if d.Position.Valid() {
			ids = append(ids, d.ID)
		}
	}
	next := ""
	if len(ids) > 0 {
		next = ids[0]
		for i, id := range ids {
			if id == cur {
				next = ""
				if i+1 < len(ids) {
					next = ids[i+1]
				}
				break
			}
		}
	}
	s.Engine.SetSelected(next)
	s.Refresh(ctx)
	return next
}

// ToggleGroup flips a layer group and reconciles.
func (s *Session) ToggleGroup(ctx context.Context, g mapview.Group) bool {
	visible := s.Engine.ToggleGroup(g)
	s.Refresh(ctx)
	return visible
}
