package mapview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"sort"
	"strings"
	"testing"
	"time"

	"droneops-console/internal/config"
	"droneops-console/internal/model"
	"droneops-console/internal/ops"
	"droneops-console/internal/telemetry"

	"github.com/google/go-cmp/cmp"
)

type surfaceOp struct {
	op  string
	key string
}

type recordingSurface struct {
	layers      map[Handle]LayerSpec
	ops         []surfaceOp
	focus       []model.Focus
	failCreate  map[string]int
	unavailable bool
	next        int
}

func newRecordingSurface() *recordingSurface {
	return &recordingSurface{layers: map[Handle]LayerSpec{}, failCreate: map[string]int{}}
}

func (s *recordingSurface) CreateLayer(spec LayerSpec) (Handle, error) {
	if s.unavailable {
		return "", ErrSurfaceUnavailable
	}
	if s.failCreate[spec.Key] > 0 {
		s.failCreate[spec.Key]--
		return "", errors.New("transient failure")
	}
	s.next++
	h := Handle(fmt.Sprintf("h%d", s.next))
	s.layers[h] = spec
	s.ops = append(s.ops, surfaceOp{"create", spec.Key})
	return h, nil
}

func (s *recordingSurface) UpdateLayer(h Handle, spec LayerSpec) error {
	if s.unavailable {
		return ErrSurfaceUnavailable
	}
	if _, ok := s.layers[h]; !ok {
		return errors.New("unknown handle")
	}
	s.layers[h] = spec
	s.ops = append(s.ops, surfaceOp{"update", spec.Key})
	return nil
}

func (s *recordingSurface) RemoveLayer(h Handle) error {
	if s.unavailable {
		return ErrSurfaceUnavailable
	}
	spec, ok := s.layers[h]
	if !ok {
		return errors.New("unknown handle")
	}
	delete(s.layers, h)
	s.ops = append(s.ops, surfaceOp{"remove", spec.Key})
	return nil
}

func (s *recordingSurface) Focus(f model.Focus) error {
	if s.unavailable {
		return ErrSurfaceUnavailable
	}
	s.focus = append(s.focus, f)
	return nil
}

func (s *recordingSurface) reset() { s.ops = nil; s.focus = nil }

func (s *recordingSurface) count(op, key string) int {
	n := 0
	for _, o := range s.ops {
		if o.op == op && (key == "" || o.key == key) {
			n++
		}
	}
	return n
}

func newFixture(t *testing.T) (*ops.Machine, *Engine, *recordingSurface) {
	t.Helper()
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := func() time.Time { return clock }
	cfg := config.Default()
	m := ops.NewMachine(ops.BaselineFromConfig(cfg), nil, telemetry.NewDrifter("test", 3).WithClock(now), now)
	surf := newRecordingSurface()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return m, NewEngine(surf, cfg.LowBatteryThreshold, log), surf
}

// expectedKeys lists the visible entity keys independently of BuildScene.
func expectedKeys(s ops.Snapshot, hidden map[Group]bool) []string {
	var keys []string
	if !hidden[GroupDocks] {
		for _, d := range s.Docks {
			keys = append(keys, DockKey(d.ID))
		}
	}
	if !hidden[GroupSensors] {
		for _, x := range s.Sensors {
			keys = append(keys, SensorKey(x.ID))
		}
	}
	if !hidden[GroupDrones] {
		for _, d := range s.Drones {
			keys = append(keys, DroneKey(d.ID))
			if s.Incident != nil && d.Status.Active() {
				keys = append(keys, PathKey(d.ID))
			}
		}
	}
	if s.Incident != nil {
		keys = append(keys, IncidentZoneKey(s.Incident.ID), IncidentMarkerKey(s.Incident.ID), WindConeKey)
		if s.Phase == ops.Responding {
			keys = append(keys, FireSpreadKey, EvacKey(1), EvacKey(2), EvacKey(3), EvacKey(4))
		}
	}
	for _, g := range s.Geofences {
		keys = append(keys, GeofenceKey(g.ID))
	}
	sort.Strings(keys)
	return keys
}

func TestRegistryMatchesVisibleEntitiesOverRandomSequences(t *testing.T) {
	ctx := context.Background()
	groups := []Group{GroupDrones, GroupSensors, GroupDocks}
	for seed := int64(0); seed < 30; seed++ {
		m, e, surf := newFixture(t)
		hidden := map[Group]bool{}
		rng := rand.New(rand.NewSource(seed))
		for step := 0; step < 60; step++ {
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
				m.JumpTo([]ops.Phase{ops.Monitoring, ops.Validating, ops.Responding}[rng.Intn(3)])
			case 5:
				m.DriftTick()
			case 6:
				snap := m.Snapshot()
				e.Select(snap.Drones[rng.Intn(len(snap.Drones))].ID)
			case 7:
				g := groups[rng.Intn(len(groups))]
				hidden[g] = !e.ToggleGroup(g)
			case 8:
				m.MonitorOnly()
			}
			snap := m.Snapshot()
			st := e.Reconcile(ctx, snap)
			if st.Errors != 0 || st.Degraded {
				t.Fatalf("seed %d step %d: unexpected errors %+v", seed, step, st)
			}
			if diff := cmp.Diff(expectedKeys(snap, hidden), e.Keys()); diff != "" {
				t.Fatalf("seed %d step %d (phase %s): registry mismatch (-want +got):\n%s", seed, step, snap.Phase, diff)
			}
			if st.Layers != len(e.Keys()) {
				t.Fatalf("seed %d step %d: stats report %d layers, registry %d", seed, step, st.Layers, len(e.Keys()))
			}
			if len(surf.layers) != len(e.Keys()) {
				t.Fatalf("seed %d step %d: surface has %d layers, registry %d", seed, step, len(surf.layers), len(e.Keys()))
			}
		}
	}
}

func TestSelectionToggleIsStyleOnly(t *testing.T) {
	ctx := context.Background()
	m, e, surf := newFixture(t)
	e.Reconcile(ctx, m.Snapshot())
	surf.reset()

	if got := e.Select("D-118"); got != "D-118" {
		t.Fatalf("expected D-118 selected, got %q", got)
	}
	st := e.Reconcile(ctx, m.Snapshot())
	if st.Created != 0 || st.Removed != 0 || st.Updated != 1 {
		t.Fatalf("select should only update one layer, got %+v", st)
	}
	h, _ := e.reg.Handle(DroneKey("D-118"))
	if surf.layers[h].Style.Color != ColorSelected {
		t.Fatalf("selected drone not highlighted: %+v", surf.layers[h].Style)
	}

	if got := e.Select("D-118"); got != "" {
		t.Fatalf("second select should clear, got %q", got)
	}
	st = e.Reconcile(ctx, m.Snapshot())
	if st.Created != 0 || st.Removed != 0 || st.Updated != 1 {
		t.Fatalf("deselect should only update one layer, got %+v", st)
	}
	if surf.count("create", "") != 0 || surf.count("remove", "") != 0 {
		t.Fatalf("selection caused create/remove: %+v", surf.ops)
	}
	if surf.layers[h].Style.Color != ColorDefault {
		t.Fatalf("deselected drone kept highlight: %+v", surf.layers[h].Style)
	}
}

func TestUnchangedSnapshotIsNoop(t *testing.T) {
	ctx := context.Background()
	m, e, surf := newFixture(t)
	e.Reconcile(ctx, m.Snapshot())
	surf.reset()
	st := e.Reconcile(ctx, m.Snapshot())
	if len(surf.ops) != 0 || st.Focused || st.Unchanged == 0 {
		t.Fatalf("second pass over same snapshot should not touch the surface: %+v %+v", st, surf.ops)
	}
}

func TestPhaseOverlaysLifecycle(t *testing.T) {
	ctx := context.Background()
	m, e, surf := newFixture(t)
	e.Reconcile(ctx, m.Snapshot())

	m.RaiseIncident()
	e.Reconcile(ctx, m.Snapshot())
	keys := e.Keys()
	if !contains(keys, WindConeKey) || contains(keys, FireSpreadKey) || contains(keys, EvacKey(1)) {
		t.Fatalf("validating should show wind cone only: %v", keys)
	}
	if !contains(keys, PathKey("D-247")) {
		t.Fatalf("en-route drone should have a flight path: %v", keys)
	}
	zoneH, _ := e.reg.Handle(IncidentZoneKey("INC-2847"))
	if surf.layers[zoneH].RadiusM != ZoneRadiusValidating {
		t.Fatalf("unexpected zone radius %v", surf.layers[zoneH].RadiusM)
	}

	surf.reset()
	m.Approve()
	st := e.Reconcile(ctx, m.Snapshot())
	keys = e.Keys()
	if !contains(keys, FireSpreadKey) || !contains(keys, EvacKey(4)) || !contains(keys, PathKey("D-309")) {
		t.Fatalf("responding overlays missing: %v", keys)
	}
	if surf.count("remove", IncidentZoneKey("INC-2847")) != 0 || surf.count("update", IncidentZoneKey("INC-2847")) != 1 {
		t.Fatalf("incident zone should be updated in place: %+v", surf.ops)
	}
	if surf.layers[zoneH].RadiusM != ZoneRadiusResponding {
		t.Fatalf("zone radius not escalated")
	}
	if st.Removed != 0 {
		t.Fatalf("approve should not remove layers, got %+v", st)
	}

	m.Veto()
	e.Reconcile(ctx, m.Snapshot())
	for _, k := range e.Keys() {
		if k == WindConeKey || k == FireSpreadKey || strings.HasPrefix(k, "evac:") || strings.HasPrefix(k, "path:") || strings.HasPrefix(k, "incident:") {
			t.Fatalf("stale overlay %s after return to monitoring", k)
		}
	}
}

func TestGeofencesCreatedOnce(t *testing.T) {
	ctx := context.Background()
	m, e, surf := newFixture(t)
	for i := 0; i < 3; i++ {
		m.JumpTo([]ops.Phase{ops.Responding, ops.Monitoring, ops.Validating}[i])
		e.Reconcile(ctx, m.Snapshot())
	}
	for _, g := range m.Snapshot().Geofences {
		key := GeofenceKey(g.ID)
		if surf.count("create", key) != 1 || surf.count("update", key) != 0 || surf.count("remove", key) != 0 {
			t.Fatalf("geofence %s touched more than once: %+v", key, surf.ops)
		}
	}
}

func TestMissingPositionSkipped(t *testing.T) {
	ctx := context.Background()
	_, e, surf := newFixture(t)
	snap := ops.Snapshot{
		Drones: []model.Drone{
			{ID: "D-1", Status: model.DronePatrolling, Battery: 80, Position: model.LatLng{Lat: 34.05, Lng: -118.24}},
			{ID: "D-2", Status: model.DronePatrolling, Battery: 80},
		},
		Focus: model.Focus{Center: model.LatLng{Lat: 34.05, Lng: -118.24}, Zoom: 14},
	}
	st := e.Reconcile(ctx, snap)
	if st.Skipped != 1 || st.Created != 1 || st.Errors != 0 {
		t.Fatalf("unexpected stats %+v", st)
	}
	if diff := cmp.Diff([]string{DroneKey("D-1")}, e.Keys()); diff != "" {
		t.Fatalf("registry mismatch:\n%s", diff)
	}
	if len(surf.layers) != 1 {
		t.Fatalf("expected 1 surface layer, got %d", len(surf.layers))
	}
}

func TestCreateFailureRetriedNextPass(t *testing.T) {
	ctx := context.Background()
	m, e, surf := newFixture(t)
	surf.failCreate[DroneKey("D-247")] = 1
	st := e.Reconcile(ctx, m.Snapshot())
	if st.Errors != 1 || contains(e.Keys(), DroneKey("D-247")) {
		t.Fatalf("failed create should leave key absent: %+v", st)
	}
	st = e.Reconcile(ctx, m.Snapshot())
	if st.Created != 1 || !contains(e.Keys(), DroneKey("D-247")) {
		t.Fatalf("expected retry to create D-247: %+v", st)
	}
}

func TestSurfaceUnavailableDegrades(t *testing.T) {
	ctx := context.Background()
	m, e, surf := newFixture(t)
	surf.unavailable = true
	st := e.Reconcile(ctx, m.Snapshot())
	if !st.Degraded || !e.Degraded() {
		t.Fatalf("expected degraded mode, got %+v", st)
	}
	surf.unavailable = false
	if st := e.Reconcile(ctx, m.Snapshot()); !st.Degraded || len(surf.ops) != 0 {
		t.Fatalf("degraded engine must skip passes: %+v", st)
	}
	// the machine keeps working without the map
	if r := m.RaiseIncident(); !r.Changed {
		t.Fatalf("machine should keep running in degraded mode")
	}
}

func TestFocusCoalesced(t *testing.T) {
	ctx := context.Background()
	m, e, surf := newFixture(t)
	e.Reconcile(ctx, m.Snapshot())
	if len(surf.focus) != 1 {
		t.Fatalf("first pass should focus once, got %d", len(surf.focus))
	}
	surf.reset()

	last := model.Focus{Center: model.LatLng{Lat: 34.06, Lng: -118.25}, Zoom: 15, Reason: "third"}
	e.RequestFocus(model.Focus{Center: model.LatLng{Lat: 34.04, Lng: -118.23}, Zoom: 13, Reason: "first"})
	e.RequestFocus(model.Focus{Center: model.LatLng{Lat: 34.05, Lng: -118.24}, Zoom: 14, Reason: "second"})
	e.RequestFocus(last)
	e.Reconcile(ctx, m.Snapshot())
	if diff := cmp.Diff([]model.Focus{last}, surf.focus); diff != "" {
		t.Fatalf("expected only the last focus (-want +got):\n%s", diff)
	}

	surf.reset()
	m.RaiseIncident()
	e.Reconcile(ctx, m.Snapshot())
	if len(surf.focus) != 1 || surf.focus[0].Zoom != ops.ZoomIncident {
		t.Fatalf("incident should trigger one focus, got %+v", surf.focus)
	}
}

func TestDroneColorPrecedence(t *testing.T) {
	low := model.Drone{ID: "D-621", Status: model.DroneReturning, Battery: 10}
	cases := []struct {
		name     string
		d        model.Drone
		selected string
		want     string
	}{
		{"selected beats low battery", low, "D-621", ColorSelected},
		{"low battery", low, "", ColorLowBattery},
		{"low battery beats on-mission", model.Drone{ID: "x", Status: model.DroneOnMission, Battery: 5}, "", ColorLowBattery},
		{"on-mission", model.Drone{ID: "x", Status: model.DroneOnMission, Battery: 90}, "", ColorOnMission},
		{"en-route", model.Drone{ID: "x", Status: model.DroneEnRoute, Battery: 90}, "", ColorEnRoute},
		{"offline not low battery", model.Drone{ID: "x", Status: model.DroneOffline, Battery: 0}, "", ColorOffline},
		{"default", model.Drone{ID: "x", Status: model.DronePatrolling, Battery: 90}, "", ColorDefault},
	}
	for _, c := range cases {
		if got := DroneColor(c.d, c.selected, 25); got != c.want {
			t.Fatalf("%s: got %s want %s", c.name, got, c.want)
		}
	}
}

func TestHiddenGroupRemovesLayers(t *testing.T) {
	ctx := context.Background()
	m, e, _ := newFixture(t)
	e.Reconcile(ctx, m.Snapshot())
	if visible := e.ToggleGroup(GroupSensors); visible {
		t.Fatalf("toggle should hide sensors")
	}
	st := e.Reconcile(ctx, m.Snapshot())
	if st.Removed != 6 {
		t.Fatalf("expected 6 sensor layers removed, got %+v", st)
	}
	e.ToggleGroup(GroupSensors)
	if st := e.Reconcile(ctx, m.Snapshot()); st.Created != 6 {
		t.Fatalf("expected 6 sensor layers recreated, got %+v", st)
	}
}

func contains(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
