package mapview

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"droneops-console/internal/model"
	"droneops-console/internal/ops"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "droneops-console/internal/mapview"

// Stats summarises one reconciliation pass.
type Stats struct {
	Created   int  `json:"created"`
	Updated   int  `json:"updated"`
	Removed   int  `json:"removed"`
	Unchanged int  `json:"unchanged"`
	Skipped   int  `json:"skipped"`
	Errors    int  `json:"errors"`
	Focused   bool `json:"focused"`
	Degraded  bool `json:"degraded"`
	// Layers is the registry size after the pass.
	Layers int `json:"layers"`
}

// Engine is the only writer to its surface. Passes are serialised by mu.
type Engine struct {
	mu      sync.Mutex
	surface Surface
	reg     *Registry
	log     *slog.Logger
	view    View

	staticDone   bool
	pendingFocus *model.Focus
	lastFocus    *model.Focus
	degraded     bool

	layerOps metric.Int64Counter
	passes   metric.Int64Counter
}

// NewEngine creates an engine writing to surface.
func NewEngine(surface Surface, lowBattery float64, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	meter := otel.Meter(instrumentationName)
	layerOps, err := meter.Int64Counter("droneops.map.layer_ops",
		metric.WithDescription("Layer create, update and remove calls issued to the surface"))
	if err != nil {
		otel.Handle(err)
	}
	passes, err := meter.Int64Counter("droneops.map.passes",
		metric.WithDescription("Reconciliation passes"))
	if err != nil {
		otel.Handle(err)
	}
	return &Engine{
		surface:  surface,
		reg:      NewRegistry(),
		log:      log,
		view:     View{LowBattery: lowBattery, Hidden: map[Group]bool{}},
		layerOps: layerOps,
		passes:   passes,
	}
}

// Select toggles the highlighted drone and returns the new selection.
func (e *Engine) Select(id string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.view.Selected == id {
		e.view.Selected = ""
	} else {
		e.view.Selected = id
	}
	return e.view.Selected
}

// SetSelected highlights id, or clears the selection when id is empty.
func (e *Engine) SetSelected(id string) {
	e.mu.Lock()
	e.view.Selected = id
	e.mu.Unlock()
}

// Selected returns the highlighted drone id.
func (e *Engine) Selected() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.view.Selected
}

// ToggleGroup flips a layer group's visibility and returns whether it is
// now visible.
func (e *Engine) ToggleGroup(g Group) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.view.Hidden[g] = !e.view.Hidden[g]
	return !e.view.Hidden[g]
}

// GroupVisible reports whether g is shown.
func (e *Engine) GroupVisible(g Group) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.view.Hidden[g]
}

// RequestFocus queues a pan/zoom. Requests made between passes are
// coalesced and only the last one reaches the surface.
func (e *Engine) RequestFocus(f model.Focus) {
	e.mu.Lock()
	e.pendingFocus = &f
	e.mu.Unlock()
}

// Degraded reports whether the surface has been declared unavailable.
func (e *Engine) Degraded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.degraded
}

// Keys returns the registered layer keys.
func (e *Engine) Keys() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reg.Keys()
}

// Layers returns the registered layer specs.
func (e *Engine) Layers() []LayerSpec {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reg.Specs()
}

// Reconcile brings the surface in line with snap: create what is missing,
// update what changed in place, remove what is gone.
func (e *Engine) Reconcile(ctx context.Context, snap ops.Snapshot) Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	var st Stats
	if e.degraded {
		st.Degraded = true
		return st
	}
	if e.passes != nil {
		e.passes.Add(ctx, 1)
	}

	if !e.staticDone {
		if !e.ensureStatic(ctx, snap.Geofences, &st) {
			return st
		}
	}

	scene := BuildScene(snap, e.view)
	st.Skipped = len(scene.Skipped)
	for _, s := range scene.Skipped {
		e.log.Warn("map entity skipped", "key", s)
	}

	for _, key := range scene.Keys() {
		spec := scene.Specs[key]
		if cur, ok := e.reg.get(key); ok {
			if cur.spec.Equal(spec) {
				st.Unchanged++
				continue
			}
			if err := e.surface.UpdateLayer(cur.handle, spec); err != nil {
				if e.fail(ctx, "update", key, err, &st) {
					return st
				}
				continue
			}
			e.reg.put(key, entry{handle: cur.handle, spec: spec.clone()})
			st.Updated++
			e.count(ctx, "update")
			continue
		}
		h, err := e.surface.CreateLayer(spec)
		if err != nil {
			if e.fail(ctx, "create", key, err, &st) {
				return st
			}
			continue
		}
		e.reg.put(key, entry{handle: h, spec: spec.clone()})
		st.Created++
		e.count(ctx, "create")
	}

	for _, key := range e.reg.Keys() {
		cur, _ := e.reg.get(key)
		if cur.static {
			continue
		}
		if _, want := scene.Specs[key]; want {
			continue
		}
		if err := e.surface.RemoveLayer(cur.handle); err != nil {
			if e.fail(ctx, "remove", key, err, &st) {
				return st
			}
			continue
		}
		e.reg.remove(key)
		st.Removed++
		e.count(ctx, "remove")
	}

	e.applyFocus(ctx, snap.Focus, &st)
	st.Layers = e.reg.Len()
	return st
}

// ensureStatic creates the geofence layers once. It reports false when the
// pass must stop because the surface is gone.
func (e *Engine) ensureStatic(ctx context.Context, gs []model.Geofence, st *Stats) bool {
	done := true
	for _, spec := range GeofenceSpecs(gs) {
		if _, ok := e.reg.get(spec.Key); ok {
			continue
		}
		h, err := e.surface.CreateLayer(spec)
		if err != nil {
			if e.fail(ctx, "create", spec.Key, err, st) {
				return false
			}
			done = false
			continue
		}
		e.reg.put(spec.Key, entry{handle: h, spec: spec.clone(), static: true})
		st.Created++
		e.count(ctx, "create")
	}
	e.staticDone = done
	return true
}

func (e *Engine) applyFocus(ctx context.Context, snapFocus model.Focus, st *Stats) {
	var target *model.Focus
	if e.lastFocus == nil || *e.lastFocus != snapFocus {
		f := snapFocus
		target = &f
		e.lastFocus = &f
	}
	if e.pendingFocus != nil {
		target = e.pendingFocus
		e.pendingFocus = nil
	}
	if target == nil || !target.Center.Valid() {
		return
	}
	if err := e.surface.Focus(*target); err != nil {
		e.fail(ctx, "focus", target.Reason, err, st)
		return
	}
	st.Focused = true
}

// fail records a surface error and reports whether the pass must stop.
func (e *Engine) fail(ctx context.Context, op, key string, err error, st *Stats) bool {
	st.Errors++
	if errors.Is(err, ErrSurfaceUnavailable) {
		e.degraded = true
		st.Degraded = true
		e.log.Error("map surface unavailable, switching to summary view", "op", op, "key", key, "err", err)
		return true
	}
	e.log.Warn("map layer operation failed", "op", op, "key", key, "err", err)
	if e.layerOps != nil {
		e.layerOps.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op), attribute.String("outcome", "error")))
	}
	return false
}

func (e *Engine) count(ctx context.Context, op string) {
	if e.layerOps == nil {
		return
	}
	e.layerOps.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op), attribute.String("outcome", "ok")))
}
