package mapview

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"droneops-console/internal/model"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/mattn/go-runewidth"
	"github.com/peterstace/simplefeatures/geom"
)

// Web mercator ground resolution at zoom 0 in metres per pixel.
const mercatorResolution = 156543.03392804097

// Terminal cells are roughly twice as tall as they are wide.
const (
	cellWidthPx  = 8
	cellHeightPx = 16
)

type canvasLayer struct {
	spec LayerSpec
	seq  int
}

// Canvas is a terminal rendering surface. It keeps layers by handle and
// draws them onto a character grid in web mercator.
type Canvas struct {
	mu          sync.Mutex
	layers      map[Handle]canvasLayer
	seq         int
	focus       model.Focus
	unavailable bool
}

// NewCanvas creates a canvas centred on initial.
func NewCanvas(initial model.Focus) *Canvas {
	return &Canvas{layers: make(map[Handle]canvasLayer), focus: initial}
}

// SetUnavailable makes every surface call fail with ErrSurfaceUnavailable.
func (c *Canvas) SetUnavailable(v bool) {
	c.mu.Lock()
	c.unavailable = v
	c.mu.Unlock()
}

// CreateLayer implements Surface.
func (c *Canvas) CreateLayer(spec LayerSpec) (Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unavailable {
		return "", ErrSurfaceUnavailable
	}
	h := Handle(uuid.NewString())
	c.seq++
	c.layers[h] = canvasLayer{spec: spec.clone(), seq: c.seq}
	return h, nil
}

// UpdateLayer implements Surface.
func (c *Canvas) UpdateLayer(h Handle, spec LayerSpec) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unavailable {
		return ErrSurfaceUnavailable
	}
	l, ok := c.layers[h]
	if !ok {
		return fmt.Errorf("canvas: unknown layer %s", h)
	}
	l.spec = spec.clone()
	c.layers[h] = l
	return nil
}

// RemoveLayer implements Surface.
func (c *Canvas) RemoveLayer(h Handle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unavailable {
		return ErrSurfaceUnavailable
	}
	if _, ok := c.layers[h]; !ok {
		return fmt.Errorf("canvas: unknown layer %s", h)
	}
	delete(c.layers, h)
	return nil
}

// Focus implements Surface.
func (c *Canvas) Focus(f model.Focus) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unavailable {
		return ErrSurfaceUnavailable
	}
	if f.Zoom < 1 {
		f.Zoom = 1
	}
	c.focus = f
	return nil
}

// View returns the current centre and zoom.
func (c *Canvas) View() model.Focus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.focus
}

// Len returns the number of layers on the canvas.
func (c *Canvas) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.layers)
}

// Pan returns the focus shifted by whole cells at the current zoom.
func (c *Canvas) Pan(dCols, dRows int) model.Focus {
	f := c.View()
	mpp := mercatorResolution / math.Exp2(float64(f.Zoom))
	xy := Project(f.Center)
	xy.X += float64(dCols) * mpp * cellWidthPx
	xy.Y -= float64(dRows) * mpp * cellHeightPx
	f.Center = Unproject(xy)
	f.Reason = "pan"
	return f
}

type cell struct {
	glyph string
	color string
}

type grid struct {
	w, h   int
	cells  [][]cell
	cx, cy float64
	mppX   float64
	mppY   float64
}

func (g *grid) locate(xy geom.XY) (col, row int) {
	col = g.w/2 + int(math.Floor((xy.X-g.cx)/g.mppX))
	row = g.h/2 - int(math.Floor((xy.Y-g.cy)/g.mppY)) - 1
	return col, row
}

func (g *grid) set(col, row int, glyph, color string) {
	if col < 0 || row < 0 || col >= g.w || row >= g.h {
		return
	}
	g.cells[row][col] = cell{glyph: glyph, color: color}
}

func (g *grid) free(col, row int) bool {
	return col >= 0 && row >= 0 && col < g.w && row < g.h && g.cells[row][col].glyph == " "
}

func (g *grid) segment(a, b geom.XY, glyph, color string, dashed bool) {
	c0, r0 := g.locate(a)
	c1, r1 := g.locate(b)
	steps := max(abs(c1-c0), abs(r1-r0))
	if steps == 0 {
		g.set(c0, r0, glyph, color)
		return
	}
	for i := 0; i <= steps; i++ {
		if dashed && i%2 == 1 {
			continue
		}
		t := float64(i) / float64(steps)
		col := c0 + int(math.Round(t*float64(c1-c0)))
		row := r0 + int(math.Round(t*float64(r1-r0)))
		g.set(col, row, glyph, color)
	}
}

func kindOrder(k Kind) int {
	switch k {
	case KindCircle:
		return 0
	case KindPolygon:
		return 1
	case KindLine:
		return 2
	}
	return 3
}

// Render draws the canvas into a width x height block of text.
func (c *Canvas) Render(width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	c.mu.Lock()
	layers := make([]canvasLayer, 0, len(c.layers))
	for _, l := range c.layers {
		layers = append(layers, l)
	}
	focus := c.focus
	c.mu.Unlock()

	sort.Slice(layers, func(i, j int) bool {
		ki, kj := kindOrder(layers[i].spec.Kind), kindOrder(layers[j].spec.Kind)
		if ki != kj {
			return ki < kj
		}
		return layers[i].seq < layers[j].seq
	})

	mpp := mercatorResolution / math.Exp2(float64(focus.Zoom))
	center := Project(focus.Center)
	g := &grid{w: width, h: height, cx: center.X, cy: center.Y, mppX: mpp * cellWidthPx, mppY: mpp * cellHeightPx}
	g.cells = make([][]cell, height)
	for r := range g.cells {
		g.cells[r] = make([]cell, width)
		for i := range g.cells[r] {
			g.cells[r][i] = cell{glyph: " "}
		}
	}

	for _, l := range layers {
		drawLayer(g, l.spec)
	}
	return g.String()
}

func drawLayer(g *grid, spec LayerSpec) {
	if len(spec.Points) == 0 {
		return
	}
	color := spec.Style.Color
	switch spec.Kind {
	case KindCircle:
		center := spec.Points[0]
		xy := Project(center)
		// Mercator stretches ground distances by 1/cos(lat).
		r := spec.RadiusM / math.Cos(center.Lat*math.Pi/180)
		const samples = 72
		var prev geom.XY
		for i := 0; i <= samples; i++ {
			a := 2 * math.Pi * float64(i) / samples
			p := geom.XY{X: xy.X + r*math.Cos(a), Y: xy.Y + r*math.Sin(a)}
			if i > 0 {
				g.segment(prev, p, "·", color, spec.Style.Dashed)
			}
			prev = p
		}
	case KindPolygon, KindLine:
		glyph := "*"
		if spec.Kind == KindLine {
			glyph = "·"
		}
		for i := 1; i < len(spec.Points); i++ {
			g.segment(Project(spec.Points[i-1]), Project(spec.Points[i]), glyph, color, spec.Style.Dashed)
		}
		if spec.Kind == KindPolygon {
			if c, err := Centroid(spec.Points); err == nil {
				col, row := g.locate(Project(c))
				drawLabel(g, col-runewidth.StringWidth(spec.Label)/2, row, spec.Label, color)
			}
		}
	case KindMarker:
		col, row := g.locate(Project(spec.Points[0]))
		glyph := spec.Style.Glyph
		if glyph == "" || runewidth.StringWidth(glyph) != 1 {
			glyph = "o"
		}
		g.set(col, row, glyph, color)
		drawLabel(g, col+1, row, spec.Label, color)
	}
}

func drawLabel(g *grid, col, row int, label, color string) {
	if label == "" {
		return
	}
	for _, r := range label {
		s := string(r)
		if runewidth.StringWidth(s) != 1 || !g.free(col, row) {
			return
		}
		g.set(col, row, s, color)
		col++
	}
}

// String renders the grid with ANSI colours, one style per colour run.
func (g *grid) String() string {
	var b strings.Builder
	for r, row := range g.cells {
		if r > 0 {
			b.WriteByte('\n')
		}
		var run strings.Builder
		runColor := ""
		flush := func() {
			if run.Len() == 0 {
				return
			}
			if runColor == "" {
				b.WriteString(run.String())
			} else {
				b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(runColor)).Render(run.String()))
			}
			run.Reset()
		}
		for _, c := range row {
			if c.color != runColor {
				flush()
				runColor = c.color
			}
			run.WriteString(c.glyph)
		}
		flush()
	}
	return b.String()
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
