package telemetry

import (
	"math"
	"math/rand"
	"time"

	"droneops-console/internal/model"
)

// Drifter perturbs battery and position of airborne drones to simulate
// live telemetry. It never changes a drone's status or task.
type Drifter struct {
	ClusterID string
	// MaxStepM bounds the random walk per tick in metres.
	MaxStepM float64
	// DrainMin and DrainMax bound the battery drain per tick in percent.
	DrainMin, DrainMax float64

	rand *rand.Rand
	now  func() time.Time
}

// NewDrifter creates a drifter seeded for reproducible runs.
func NewDrifter(clusterID string, seed int64) *Drifter {
	return &Drifter{
		ClusterID: clusterID,
		MaxStepM:  8,
		DrainMin:  0.1,
		DrainMax:  0.3,
		rand:      rand.New(rand.NewSource(seed)),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the timestamp source, mainly for tests.
func (d *Drifter) WithClock(now func() time.Time) *Drifter {
	d.now = now
	return d
}

// Drift advances one drone by a tick and returns the sample. Grounded or
// offline drones and drones without a usable position are sampled unchanged.
func (d *Drifter) Drift(drone *model.Drone, phase string) TelemetryRow {
	if drone.Status.Airborne() && drone.Position.Valid() {
		drone.Position = d.randomWalk(drone.Position)
		drone.Battery -= d.DrainMin + d.rand.Float64()*(d.DrainMax-d.DrainMin)
		if drone.Battery < 0 {
			drone.Battery = 0
		}
	}
	return TelemetryRow{
		ClusterID:      d.ClusterID,
		DroneID:        drone.ID,
		Lat:            drone.Position.Lat,
		Lon:            drone.Position.Lng,
		Battery:        drone.Battery,
		Status:         string(drone.Status),
		SignalStrength: drone.SignalStrength,
		Phase:          phase,
		Timestamp:      d.now(),
	}
}

// randomWalk moves the position a random distance in a random direction.
func (d *Drifter) randomWalk(pos model.LatLng) model.LatLng {
	heading := d.rand.Float64() * 2 * math.Pi
	dist := d.rand.Float64() * d.MaxStepM

	deltaLat := (dist * math.Cos(heading)) / 111000
	deltaLon := (dist * math.Sin(heading)) / (111000 * math.Cos(pos.Lat*math.Pi/180))
	return model.LatLng{Lat: pos.Lat + deltaLat, Lng: pos.Lng + deltaLon}
}
