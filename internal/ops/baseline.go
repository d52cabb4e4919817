package ops

import (
	"droneops-console/internal/config"
	"droneops-console/internal/model"
)

// Focus zoom levels.
const (
	ZoomOverview = 14
	ZoomIncident = 16
	ZoomDrone    = 17
)

// Baseline is the canned Monitoring state the machine starts from and
// returns to.
type Baseline struct {
	Drones      []model.Drone
	Sensors     []model.Sensor
	Docks       []model.DockStation
	Geofences   []model.Geofence
	Environment model.EnvironmentalReading
	Focus       model.Focus
}

// BaselineFromConfig copies the entity lists out of cfg.
func BaselineFromConfig(cfg *config.Config) Baseline {
	zoom := cfg.Map.Zoom
	if zoom == 0 {
		zoom = ZoomOverview
	}
	return Baseline{
		Drones:      cloneDrones(cfg.Drones),
		Sensors:     cloneSensors(cfg.Sensors),
		Docks:       append([]model.DockStation(nil), cfg.Docks...),
		Geofences:   append([]model.Geofence(nil), cfg.Geofences...),
		Environment: cfg.Environment,
		Focus:       model.Focus{Center: cfg.Map.Center, Zoom: zoom, Reason: "overview"},
	}
}
