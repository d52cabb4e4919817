// Entity records shared by the state machine, the dispatcher and the map engine.
package model

import "math"

// LatLng holds a WGS84 latitude and longitude.
type LatLng struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// Valid reports whether p can be placed on a map. The zero value counts as
// missing data rather than a point in the Gulf of Guinea.
func (p LatLng) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return false
	}
	if p.Lat < -90 || p.Lat > 90 || p.Lng < -180 || p.Lng > 180 {
		return false
	}
	return p.Lat != 0 || p.Lng != 0
}

// Offset returns p shifted by the given degrees.
func (p LatLng) Offset(dLat, dLng float64) LatLng {
	return LatLng{Lat: p.Lat + dLat, Lng: p.Lng + dLng}
}

// DroneStatus is the flight state of a drone.
type DroneStatus string

// Drone status constants.
const (
	DroneDocked     DroneStatus = "docked"
	DronePatrolling DroneStatus = "patrolling"
	DroneEnRoute    DroneStatus = "en-route"
	DroneOnMission  DroneStatus = "on-mission"
	DroneReturning  DroneStatus = "returning"
	DroneOffline    DroneStatus = "offline"
)

// Airborne reports whether a drone in this status is flying.
func (s DroneStatus) Airborne() bool {
	switch s {
	case DronePatrolling, DroneEnRoute, DroneOnMission, DroneReturning:
		return true
	}
	return false
}

// Active reports whether the drone is committed to an incident.
func (s DroneStatus) Active() bool {
	return s == DroneEnRoute || s == DroneOnMission
}

// Drone holds runtime state for one fleet member.
type Drone struct {
	ID             string      `json:"id" yaml:"id"`
	Status         DroneStatus `json:"status" yaml:"status"`
	Battery        float64     `json:"battery" yaml:"battery"`
	Position       LatLng      `json:"position" yaml:"position"`
	Task           string      `json:"task,omitempty" yaml:"task,omitempty"`
	Zone           string      `json:"zone,omitempty" yaml:"zone,omitempty"`
	SignalStrength int         `json:"signal_strength" yaml:"signal_strength"`
	ETA            *int        `json:"eta,omitempty" yaml:"eta,omitempty"`
}

// Clone returns a deep copy of d.
func (d Drone) Clone() Drone {
	if d.ETA != nil {
		eta := *d.ETA
		d.ETA = &eta
	}
	return d
}

// SensorType is the sensing modality of a ground sensor.
type SensorType string

const (
	SensorThermal SensorType = "thermal"
	SensorMotion  SensorType = "motion"
	SensorSmoke   SensorType = "smoke"
	SensorCamera  SensorType = "camera"
)

// SensorStatus is the alert state of a sensor.
type SensorStatus string

const (
	SensorNormal  SensorStatus = "normal"
	SensorAlert   SensorStatus = "alert"
	SensorOffline SensorStatus = "offline"
)

// Sensor is a fixed ground sensor.
type Sensor struct {
	ID          string       `json:"id" yaml:"id"`
	Type        SensorType   `json:"type" yaml:"type"`
	Position    LatLng       `json:"position" yaml:"position"`
	Temperature *float64     `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	LastReading string       `json:"last_reading" yaml:"last_reading"`
	Status      SensorStatus `json:"status" yaml:"status"`
}

// Clone returns a deep copy of s.
func (s Sensor) Clone() Sensor {
	if s.Temperature != nil {
		t := *s.Temperature
		s.Temperature = &t
	}
	return s
}

// DockStatus is the availability of a dock station.
type DockStatus string

const (
	DockOperational DockStatus = "operational"
	DockMaintenance DockStatus = "maintenance"
)

// DockStation is a charging and launch site.
type DockStation struct {
	ID              string     `json:"id" yaml:"id"`
	Position        LatLng     `json:"position" yaml:"position"`
	DronesAvailable int        `json:"drones_available" yaml:"drones_available"`
	TotalCapacity   int        `json:"total_capacity" yaml:"total_capacity"`
	Status          DockStatus `json:"status" yaml:"status"`
}

// GeofenceKind distinguishes restricted airspace from coverage rings.
type GeofenceKind string

const (
	GeofenceRestricted GeofenceKind = "restricted"
	GeofenceCoverage   GeofenceKind = "coverage"
)

// Geofence is a static circular zone drawn once per session.
type Geofence struct {
	ID      string       `json:"id" yaml:"id"`
	Name    string       `json:"name" yaml:"name"`
	Kind    GeofenceKind `json:"kind" yaml:"kind"`
	Center  LatLng       `json:"center" yaml:"center"`
	RadiusM float64      `json:"radius_m" yaml:"radius_m"`
}

// EnvironmentalReading is the current weather picture.
type EnvironmentalReading struct {
	TemperatureC  float64 `json:"temperature_c" yaml:"temperature_c"`
	Humidity      float64 `json:"humidity" yaml:"humidity"`
	WindSpeedMPH  float64 `json:"wind_speed_mph" yaml:"wind_speed_mph"`
	WindDirection string  `json:"wind_direction" yaml:"wind_direction"`
	Visibility    string  `json:"visibility" yaml:"visibility"`
}

// Focus is a requested map centre and zoom level.
type Focus struct {
	Center LatLng `json:"center"`
	Zoom   int    `json:"zoom"`
	Reason string `json:"reason,omitempty"`
}
