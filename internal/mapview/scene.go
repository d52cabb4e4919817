package mapview

import (
	"fmt"
	"sort"

	"droneops-console/internal/model"
	"droneops-console/internal/ops"
)

// Incident zone radii by phase.
const (
	ZoneRadiusValidating = 150.0
	ZoneRadiusResponding = 300.0
)

// View is the operator-controlled part of what the map shows.
type View struct {
	Selected   string
	Hidden     map[Group]bool
	LowBattery float64
}

func (v View) visible(g Group) bool { return !v.Hidden[g] }

// Scene is the desired layer set for one snapshot.
type Scene struct {
	Specs map[string]LayerSpec
	// Skipped lists entity keys left out because their data was unusable.
	Skipped []string
}

// Keys returns the desired keys in sorted order.
func (s Scene) Keys() []string {
	keys := make([]string, 0, len(s.Specs))
	for k := range s.Specs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *Scene) add(spec LayerSpec) { s.Specs[spec.Key] = spec }

func (s *Scene) skip(key, reason string) {
	s.Skipped = append(s.Skipped, fmt.Sprintf("%s (%s)", key, reason))
}

// BuildScene derives the dynamic layers for snap. Geofences are static and
// handled separately by GeofenceSpecs.
func BuildScene(snap ops.Snapshot, v View) Scene {
	sc := Scene{Specs: make(map[string]LayerSpec)}

	if v.visible(GroupDocks) {
		for _, d := range snap.Docks {
			key := DockKey(d.ID)
			if !d.Position.Valid() {
				sc.skip(key, "missing position")
				continue
			}
			sc.add(LayerSpec{
				Key:    key,
				Group:  GroupDocks,
				Kind:   KindMarker,
				Points: []model.LatLng{d.Position},
				Style:  Style{Color: ColorDock, Glyph: "▣"},
				Label:  fmt.Sprintf("%s %d/%d", d.ID, d.DronesAvailable, d.TotalCapacity),
			})
		}
	}

	if v.visible(GroupSensors) {
		for _, s := range snap.Sensors {
			key := SensorKey(s.ID)
			if !s.Position.Valid() {
				sc.skip(key, "missing position")
				continue
			}
			sc.add(LayerSpec{
				Key:    key,
				Group:  GroupSensors,
				Kind:   KindMarker,
				Points: []model.LatLng{s.Position},
				Style:  sensorStyle(s),
				Label:  s.ID,
			})
		}
	}

	if v.visible(GroupDrones) {
		for _, d := range snap.Drones {
			key := DroneKey(d.ID)
			if !d.Position.Valid() {
				sc.skip(key, "missing position")
				continue
			}
			sc.add(LayerSpec{
				Key:    key,
				Group:  GroupDrones,
				Kind:   KindMarker,
				Points: []model.LatLng{d.Position},
				Style:  Style{Color: DroneColor(d, v.Selected, v.LowBattery), Glyph: "▲", Pulse: d.ID == v.Selected},
				Label:  d.ID,
			})
		}
	}

	if inc := snap.Incident; inc != nil {
		addIncident(&sc, snap, *inc, v)
	}
	return sc
}

func addIncident(sc *Scene, snap ops.Snapshot, inc model.Incident, v View) {
	if !inc.Position.Valid() {
		sc.skip(IncidentZoneKey(inc.ID), "missing position")
		return
	}
	responding := snap.Phase == ops.Responding

	if v.visible(GroupIncident) {
		radius, color := ZoneRadiusValidating, ColorWarning
		if responding {
			radius, color = ZoneRadiusResponding, ColorCritical
		}
		sc.add(LayerSpec{
			Key:     IncidentZoneKey(inc.ID),
			Group:   GroupIncident,
			Kind:    KindCircle,
			Points:  []model.LatLng{inc.Position},
			RadiusM: radius,
			Style:   Style{Color: color, Fill: color, Opacity: 0.15, Weight: 2, Pulse: true},
		})
		sc.add(LayerSpec{
			Key:    IncidentMarkerKey(inc.ID),
			Group:  GroupIncident,
			Kind:   KindMarker,
			Points: []model.LatLng{inc.Position},
			Style:  Style{Color: color, Glyph: "✖"},
			Label:  inc.ID,
		})
	}

	if v.visible(GroupOverlay) {
		if ring, err := WindCone(inc.Position, windDirection(snap, inc)); err != nil {
			sc.skip(WindConeKey, err.Error())
		} else {
			sc.add(LayerSpec{
				Key:    WindConeKey,
				Group:  GroupOverlay,
				Kind:   KindPolygon,
				Points: ring,
				Style:  Style{Color: ColorDefault, Fill: ColorDefault, Opacity: 0.1, Weight: 1},
				Label:  "wind " + windDirection(snap, inc),
			})
		}
		if responding {
			if ring, err := FireSpread(inc.Position); err != nil {
				sc.skip(FireSpreadKey, err.Error())
			} else {
				sc.add(LayerSpec{
					Key:    FireSpreadKey,
					Group:  GroupOverlay,
					Kind:   KindPolygon,
					Points: ring,
					Style:  Style{Color: ColorCritical, Fill: ColorCritical, Opacity: 0.2, Weight: 1, Dashed: true},
					Label:  "spread " + inc.Threat.GrowthRate,
				})
			}
		}
	}

	if v.visible(GroupPaths) && v.visible(GroupDrones) {
		for _, d := range snap.Drones {
			if !d.Status.Active() || !d.Position.Valid() {
				continue
			}
			pts, err := FlightPath(d.Position, inc.Position)
			if err != nil {
				sc.skip(PathKey(d.ID), err.Error())
				continue
			}
			sc.add(LayerSpec{
				Key:    PathKey(d.ID),
				Group:  GroupPaths,
				Kind:   KindLine,
				Points: pts,
				Style:  Style{Color: DroneColor(d, "", 0), Weight: 2, Dashed: true},
			})
		}
	}

	if responding && v.visible(GroupEvac) {
		for i, p := range EvacPoints(inc.Position) {
			color := ColorEvacWait
			if p.OK {
				color = ColorEvacOK
			}
			sc.add(LayerSpec{
				Key:    EvacKey(i + 1),
				Group:  GroupEvac,
				Kind:   KindMarker,
				Points: []model.LatLng{p.Position},
				Style:  Style{Color: color, Glyph: "●"},
			})
		}
	}
}

// GeofenceSpecs returns the static geofence layers.
func GeofenceSpecs(gs []model.Geofence) []LayerSpec {
	out := make([]LayerSpec, 0, len(gs))
	for _, g := range gs {
		if !g.Center.Valid() || g.RadiusM <= 0 {
			continue
		}
		style := Style{Color: ColorCoverage, Weight: 1, Opacity: 0.05}
		if g.Kind == model.GeofenceRestricted {
			style = Style{Color: ColorRestricted, Fill: ColorRestricted, Weight: 1, Opacity: 0.1, Dashed: true}
		}
		out = append(out, LayerSpec{
			Key:     GeofenceKey(g.ID),
			Group:   GroupGeofences,
			Kind:    KindCircle,
			Points:  []model.LatLng{g.Center},
			RadiusM: g.RadiusM,
			Style:   style,
			Label:   g.Name,
		})
	}
	return out
}

// DroneColor applies the styling precedence: selected, low battery,
// on-mission, en-route, offline, default. Offline drones are never styled
// as low battery.
func DroneColor(d model.Drone, selected string, lowBattery float64) string {
	switch {
	case selected != "" && d.ID == selected:
		return ColorSelected
	case d.Status != model.DroneOffline && d.Battery < lowBattery:
		return ColorLowBattery
	case d.Status == model.DroneOnMission:
		return ColorOnMission
	case d.Status == model.DroneEnRoute:
		return ColorEnRoute
	case d.Status == model.DroneOffline:
		return ColorOffline
	}
	return ColorDefault
}

func sensorStyle(s model.Sensor) Style {
	switch s.Status {
	case model.SensorAlert:
		return Style{Color: ColorCritical, Glyph: "◉", Pulse: true}
	case model.SensorOffline:
		return Style{Color: ColorOffline, Glyph: "◉"}
	}
	return Style{Color: ColorDefault, Glyph: "◉"}
}

func windDirection(snap ops.Snapshot, inc model.Incident) string {
	if inc.Threat.WindDirection != "" {
		return inc.Threat.WindDirection
	}
	return snap.Environment.WindDirection
}
