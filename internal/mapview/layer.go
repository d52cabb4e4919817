// Package mapview keeps a persistent rendering surface in step with the
// machine snapshot by diffing desired layers against a layer registry.
package mapview

import (
	"errors"
	"fmt"

	"droneops-console/internal/model"
)

// ErrSurfaceUnavailable is returned by a surface that cannot render at all.
// The engine switches to degraded mode when it sees it.
var ErrSurfaceUnavailable = errors.New("mapview: rendering surface unavailable")

// Handle is the surface's opaque reference to a layer.
type Handle string

// Surface is the rendering contract the engine writes to.
type Surface interface {
	CreateLayer(spec LayerSpec) (Handle, error)
	UpdateLayer(h Handle, spec LayerSpec) error
	RemoveLayer(h Handle) error
	Focus(f model.Focus) error
}

// Kind is the geometry type of a layer.
type Kind string

const (
	KindMarker  Kind = "marker"
	KindCircle  Kind = "circle"
	KindPolygon Kind = "polygon"
	KindLine    Kind = "line"
)

// Group is a toggleable family of layers.
type Group string

const (
	GroupDocks     Group = "docks"
	GroupDrones    Group = "drones"
	GroupSensors   Group = "sensors"
	GroupIncident  Group = "incident"
	GroupOverlay   Group = "overlay"
	GroupPaths     Group = "paths"
	GroupEvac      Group = "evac"
	GroupGeofences Group = "geofences"
)

// Palette.
const (
	ColorSelected   = "#FF851B"
	ColorLowBattery = "#FF3B3B"
	ColorOnMission  = "#00C853"
	ColorEnRoute    = "#FFB800"
	ColorOffline    = "#6B7280"
	ColorDefault    = "#00D9FF"
	ColorCritical   = "#FF3B3B"
	ColorWarning    = "#FFB800"
	ColorDock       = "#E5E7EB"
	ColorEvacOK     = "#00C853"
	ColorEvacWait   = "#FF851B"
	ColorRestricted = "#FF851B"
	ColorCoverage   = "#1E3A5F"
)

// Style is the visual parameter set of a layer.
type Style struct {
	Color   string  `json:"color"`
	Fill    string  `json:"fill,omitempty"`
	Opacity float64 `json:"opacity,omitempty"`
	Weight  int     `json:"weight,omitempty"`
	Dashed  bool    `json:"dashed,omitempty"`
	Pulse   bool    `json:"pulse,omitempty"`
	Glyph   string  `json:"glyph,omitempty"`
}

// LayerSpec is the desired state of one layer.
type LayerSpec struct {
	Key     string         `json:"key"`
	Group   Group          `json:"group"`
	Kind    Kind           `json:"kind"`
	Points  []model.LatLng `json:"points"`
	RadiusM float64        `json:"radius_m,omitempty"`
	Style   Style          `json:"style"`
	Label   string         `json:"label,omitempty"`
}

// Equal reports whether two specs render identically.
func (s LayerSpec) Equal(o LayerSpec) bool {
	if s.Key != o.Key || s.Group != o.Group || s.Kind != o.Kind || s.RadiusM != o.RadiusM ||
		s.Style != o.Style || s.Label != o.Label || len(s.Points) != len(o.Points) {
		return false
	}
	for i := range s.Points {
		if s.Points[i] != o.Points[i] {
			return false
		}
	}
	return true
}

// Anchor is the first point of the layer.
func (s LayerSpec) Anchor() model.LatLng {
	if len(s.Points) == 0 {
		return model.LatLng{}
	}
	return s.Points[0]
}

func (s LayerSpec) clone() LayerSpec {
	s.Points = append([]model.LatLng(nil), s.Points...)
	return s
}

// Registry keys.
func DockKey(id string) string           { return "dock:" + id }
func DroneKey(id string) string          { return "drone:" + id }
func SensorKey(id string) string         { return "sensor:" + id }
func IncidentZoneKey(id string) string   { return "incident:" + id + ":zone" }
func IncidentMarkerKey(id string) string { return "incident:" + id + ":marker" }
func PathKey(droneID string) string      { return "path:" + droneID }
func EvacKey(n int) string               { return fmt.Sprintf("evac:%d", n) }
func GeofenceKey(id string) string       { return "geofence:" + id }

const (
	FireSpreadKey = "overlay:fire-spread"
	WindConeKey   = "overlay:wind-cone"
)
