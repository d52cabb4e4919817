package mapview

import (
	"errors"
	"math"
	"strings"
	"testing"

	"droneops-console/internal/model"
)

var site = model.LatLng{Lat: 34.0522, Lng: -118.2437}

func near(a, b model.LatLng, tol float64) bool {
	return math.Abs(a.Lat-b.Lat) <= tol && math.Abs(a.Lng-b.Lng) <= tol
}

func TestProjectRoundTrip(t *testing.T) {
	got := Unproject(Project(site))
	if !near(got, site, 1e-9) {
		t.Fatalf("round trip drifted: %v", got)
	}
}

func TestFireSpreadRing(t *testing.T) {
	ring, err := FireSpread(site)
	if err != nil {
		t.Fatalf("FireSpread: %v", err)
	}
	if len(ring) != 5 || ring[0] != ring[4] {
		t.Fatalf("expected closed ring of 5 points, got %v", ring)
	}
	c, err := Centroid(ring)
	if err != nil {
		t.Fatalf("Centroid: %v", err)
	}
	if c.Lat <= site.Lat || c.Lng <= site.Lng {
		t.Fatalf("fire spread should sit north-east of the site, centroid %v", c)
	}
}

func TestWindConeFollowsDirection(t *testing.T) {
	ne, err := WindCone(site, "NE")
	if err != nil {
		t.Fatalf("WindCone NE: %v", err)
	}
	if !near(ne[1], site.Offset(-0.015, -0.008), 1e-9) {
		t.Fatalf("NE cone should keep the base layout, got %v", ne[1])
	}
	sw, err := WindCone(site, "sw")
	if err != nil {
		t.Fatalf("WindCone SW: %v", err)
	}
	for _, p := range sw[1:3] {
		if p.Lat <= site.Lat || p.Lng <= site.Lng {
			t.Fatalf("SW wind should push the cone north-east, got %v", p)
		}
	}
	if !near(sw[0], site, 1e-9) {
		t.Fatalf("cone apex moved: %v", sw[0])
	}
	unknown, err := WindCone(site, "variable")
	if err != nil || !near(unknown[1], ne[1], 1e-12) {
		t.Fatalf("unknown direction should fall back to NE layout")
	}
}

func TestCompassBearing(t *testing.T) {
	if b, ok := CompassBearing(" se "); !ok || b != 135 {
		t.Fatalf("got %v %v", b, ok)
	}
	if _, ok := CompassBearing("NNE"); ok {
		t.Fatalf("NNE is not supported")
	}
}

func TestFlightPath(t *testing.T) {
	from := site.Offset(-0.0027, 0.0036)
	pts, err := FlightPath(from, site)
	if err != nil || len(pts) != 2 || pts[0] != from || pts[1] != site {
		t.Fatalf("unexpected path %v %v", pts, err)
	}
	if _, err := FlightPath(site, site); err == nil {
		t.Fatalf("zero length path should fail")
	}
}

func TestEvacPoints(t *testing.T) {
	pts := EvacPoints(site)
	want := []bool{true, false, false, true}
	if len(pts) != len(want) {
		t.Fatalf("expected %d points", len(want))
	}
	for i, p := range pts {
		if p.OK != want[i] || !p.Position.Valid() {
			t.Fatalf("point %d: %+v", i, p)
		}
	}
}

func TestCanvasRender(t *testing.T) {
	c := NewCanvas(model.Focus{Center: site, Zoom: 16})
	h, err := c.CreateLayer(LayerSpec{Key: "drone:D-1", Kind: KindMarker, Points: []model.LatLng{site}, Style: Style{Glyph: "X"}, Label: "D-1"})
	if err != nil {
		t.Fatalf("CreateLayer: %v", err)
	}
	if _, err := c.CreateLayer(LayerSpec{Key: "zone", Kind: KindCircle, Points: []model.LatLng{site}, RadiusM: 150}); err != nil {
		t.Fatalf("CreateLayer circle: %v", err)
	}
	out := c.Render(40, 12)
	if n := strings.Count(out, "\n") + 1; n != 12 {
		t.Fatalf("expected 12 rows, got %d", n)
	}
	if !strings.Contains(out, "XD-1") {
		t.Fatalf("marker and label not drawn:\n%s", out)
	}
	if !strings.Contains(out, "·") {
		t.Fatalf("circle not drawn:\n%s", out)
	}

	if err := c.RemoveLayer(h); err != nil {
		t.Fatalf("RemoveLayer: %v", err)
	}
	if strings.Contains(c.Render(40, 12), "X") {
		t.Fatalf("removed marker still drawn")
	}
	if err := c.UpdateLayer(h, LayerSpec{}); err == nil {
		t.Fatalf("update of removed layer should fail")
	}
	if c.Render(0, 5) != "" {
		t.Fatalf("empty canvas size should render nothing")
	}
}

func TestCanvasPolygonLabelAtCentroid(t *testing.T) {
	ring, err := FireSpread(site)
	if err != nil {
		t.Fatalf("FireSpread: %v", err)
	}
	c, err := Centroid(ring)
	if err != nil {
		t.Fatalf("Centroid: %v", err)
	}
	canvas := NewCanvas(model.Focus{Center: c, Zoom: 16})
	if _, err := canvas.CreateLayer(LayerSpec{Key: FireSpreadKey, Kind: KindPolygon, Points: ring, Style: Style{Color: ColorCritical}, Label: "spread fast"}); err != nil {
		t.Fatalf("CreateLayer: %v", err)
	}
	out := canvas.Render(80, 24)
	found := -1
	for i, row := range strings.Split(out, "\n") {
		if strings.Contains(row, "spread fast") {
			found = i
		}
	}
	// the centroid sits on the middle rows of a canvas focused on it
	if found != 11 && found != 12 {
		t.Fatalf("label not drawn at the centroid (row %d):\n%s", found, out)
	}
}

func TestCanvasUnavailable(t *testing.T) {
	c := NewCanvas(model.Focus{Center: site, Zoom: 14})
	c.SetUnavailable(true)
	if _, err := c.CreateLayer(LayerSpec{Key: "k"}); !errors.Is(err, ErrSurfaceUnavailable) {
		t.Fatalf("expected ErrSurfaceUnavailable, got %v", err)
	}
	if err := c.Focus(model.Focus{}); !errors.Is(err, ErrSurfaceUnavailable) {
		t.Fatalf("expected ErrSurfaceUnavailable, got %v", err)
	}
}

func TestCanvasPan(t *testing.T) {
	c := NewCanvas(model.Focus{Center: site, Zoom: 14})
	f := c.Pan(4, 0)
	if f.Center.Lng <= site.Lng || math.Abs(f.Center.Lat-site.Lat) > 1e-9 || f.Zoom != 14 {
		t.Fatalf("pan right moved wrong way: %+v", f)
	}
	f = c.Pan(0, 3)
	if f.Center.Lat >= site.Lat {
		t.Fatalf("pan down should move south: %+v", f)
	}
}
