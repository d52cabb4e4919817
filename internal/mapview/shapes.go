package mapview

import (
	"fmt"
	"math"
	"strings"

	"droneops-console/internal/model"

	"github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

var (
	toMercator   = wgs84.EPSG().Transform(4326, 3857)
	fromMercator = wgs84.EPSG().Transform(3857, 4326)
)

// Project converts a WGS84 position to EPSG:3857 metres.
func Project(p model.LatLng) geom.XY {
	x, y, _ := toMercator(p.Lng, p.Lat, 0)
	return geom.XY{X: x, Y: y}
}

// Unproject converts EPSG:3857 metres back to WGS84.
func Unproject(xy geom.XY) model.LatLng {
	lng, lat, _ := fromMercator(xy.X, xy.Y, 0)
	return model.LatLng{Lat: lat, Lng: lng}
}

// Degree offsets around the incident, matching the prediction overlays.
var (
	fireSpreadOffsets = [][2]float64{{0.003, 0.002}, {0.006, 0.005}, {0.004, 0.008}, {0.001, 0.006}}
	windConeOffsets   = [][2]float64{{0, 0}, {-0.015, -0.008}, {-0.008, -0.015}}
	evacOffsets       = []struct {
		dLat, dLng float64
		ok         bool
	}{
		{0.003, 0.004, true},
		{-0.002, 0.006, false},
		{0.005, -0.002, false},
		{-0.004, -0.005, true},
	}
)

// windConeBase is the bearing the cone offsets were laid out for.
const windConeBase = 45.0

var compass = map[string]float64{
	"N": 0, "NE": 45, "E": 90, "SE": 135, "S": 180, "SW": 225, "W": 270, "NW": 315,
}

// CompassBearing maps a compass point to degrees clockwise from north.
func CompassBearing(dir string) (float64, bool) {
	b, ok := compass[strings.ToUpper(strings.TrimSpace(dir))]
	return b, ok
}

// FireSpread returns the closed ring of the predicted fire front.
func FireSpread(center model.LatLng) ([]model.LatLng, error) {
	ring := make([]model.LatLng, 0, len(fireSpreadOffsets)+1)
	for _, o := range fireSpreadOffsets {
		ring = append(ring, center.Offset(o[0], o[1]))
	}
	return closeRing(ring)
}

// WindCone returns the closed ring of the downwind cone for a wind blowing
// from dir. Unknown directions use the north-east layout.
func WindCone(center model.LatLng, dir string) ([]model.LatLng, error) {
	bearing, ok := CompassBearing(dir)
	if !ok {
		bearing = windConeBase
	}
	theta := (bearing - windConeBase) * math.Pi / 180
	sin, cos := math.Sincos(theta)
	origin := Project(center)
	ring := make([]model.LatLng, 0, len(windConeOffsets)+1)
	for _, o := range windConeOffsets {
		p := Project(center.Offset(o[0], o[1]))
		dx, dy := p.X-origin.X, p.Y-origin.Y
		rx := dx*cos + dy*sin
		ry := -dx*sin + dy*cos
		ring = append(ring, Unproject(geom.XY{X: origin.X + rx, Y: origin.Y + ry}))
	}
	return closeRing(ring)
}

// FlightPath returns the straight route from a drone to its target.
func FlightPath(from, to model.LatLng) ([]model.LatLng, error) {
	a, b := Project(from), Project(to)
	seq := geom.NewSequence([]float64{a.X, a.Y, b.X, b.Y}, geom.DimXY)
	ls := geom.NewLineString(seq)
	if err := ls.Validate(); err != nil {
		return nil, fmt.Errorf("flight path: %w", err)
	}
	if ls.Length() == 0 {
		return nil, fmt.Errorf("flight path: drone is on target")
	}
	return []model.LatLng{from, to}, nil
}

// EvacPoint is one household on the evacuation list.
type EvacPoint struct {
	Position model.LatLng
	OK       bool
}

// EvacPoints returns the households around the incident.
func EvacPoints(center model.LatLng) []EvacPoint {
	out := make([]EvacPoint, 0, len(evacOffsets))
	for _, o := range evacOffsets {
		out = append(out, EvacPoint{Position: center.Offset(o.dLat, o.dLng), OK: o.ok})
	}
	return out
}

// Centroid returns the centre of mass of a closed ring.
func Centroid(ring []model.LatLng) (model.LatLng, error) {
	poly, err := polygon(ring)
	if err != nil {
		return model.LatLng{}, err
	}
	xy, ok := poly.Centroid().XY()
	if !ok {
		return model.LatLng{}, fmt.Errorf("centroid: empty polygon")
	}
	return Unproject(xy), nil
}

// closeRing appends the first point and checks the ring forms a valid
// polygon with non-zero area.
func closeRing(ring []model.LatLng) ([]model.LatLng, error) {
	if len(ring) < 3 {
		return nil, fmt.Errorf("ring needs 3 points, got %d", len(ring))
	}
	ring = append(ring, ring[0])
	poly, err := polygon(ring)
	if err != nil {
		return nil, err
	}
	if poly.Area() == 0 {
		return nil, fmt.Errorf("ring has zero area")
	}
	return ring, nil
}

func polygon(ring []model.LatLng) (geom.Polygon, error) {
	coords := make([]float64, 0, 2*len(ring))
	for _, p := range ring {
		if !p.Valid() {
			return geom.Polygon{}, fmt.Errorf("invalid vertex %v", p)
		}
		xy := Project(p)
		coords = append(coords, xy.X, xy.Y)
	}
	ls := geom.NewLineString(geom.NewSequence(coords, geom.DimXY))
	poly := geom.NewPolygon([]geom.LineString{ls})
	if err := poly.Validate(); err != nil {
		return geom.Polygon{}, fmt.Errorf("invalid polygon: %w", err)
	}
	return poly, nil
}
