package ops

import "droneops-console/internal/model"

// Snapshot is a read-only deep copy of the machine state.
type Snapshot struct {
	Phase       Phase                      `json:"phase"`
	Incident    *model.Incident            `json:"incident"`
	Drones      []model.Drone              `json:"drones"`
	Sensors     []model.Sensor             `json:"sensors"`
	Docks       []model.DockStation        `json:"docks"`
	Geofences   []model.Geofence           `json:"geofences"`
	Environment model.EnvironmentalReading `json:"environment"`
	Timeline    []model.TimelineEvent      `json:"timeline"`
	ElapsedSec  int                        `json:"elapsed_s"`
	Focus       model.Focus                `json:"focus"`
	Rationale   string                     `json:"rationale,omitempty"`
}

// Drone returns the drone with id.
func (s Snapshot) Drone(id string) (model.Drone, bool) {
	for _, d := range s.Drones {
		if d.ID == id {
			return d, true
		}
	}
	return model.Drone{}, false
}

// CountStatus counts drones whose status satisfies pred.
func (s Snapshot) CountStatus(pred func(model.DroneStatus) bool) int {
	n := 0
	for _, d := range s.Drones {
		if pred(d.Status) {
			n++
		}
	}
	return n
}

func cloneDrones(in []model.Drone) []model.Drone {
	out := make([]model.Drone, len(in))
	for i, d := range in {
		out[i] = d.Clone()
	}
	return out
}

func cloneSensors(in []model.Sensor) []model.Sensor {
	out := make([]model.Sensor, len(in))
	for i, s := range in {
		out[i] = s.Clone()
	}
	return out
}

func cloneIncident(in *model.Incident) *model.Incident {
	if in == nil {
		return nil
	}
	c := in.Clone()
	return &c
}
