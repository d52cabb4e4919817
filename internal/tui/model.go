package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"

	"droneops-console/internal/console"
	"droneops-console/internal/dispatch"
	"droneops-console/internal/mapview"
	"droneops-console/internal/model"
	"droneops-console/internal/ops"
)

const (
	minMapWidth  = 20
	panCols      = 4
	panRows      = 2
	maxZoom      = 19
	minZoom      = 3
	taskColWidth = 22
)

var phaseColors = map[ops.Phase]lipgloss.Color{
	ops.Monitoring: lipgloss.Color("#00C853"),
	ops.Validating: lipgloss.Color("#FFB800"),
	ops.Responding: lipgloss.Color("#FF3B3B"),
}

var levelColors = map[dispatch.Level]lipgloss.Color{
	dispatch.LevelInfo:     lipgloss.Color("12"),
	dispatch.LevelWarning:  lipgloss.Color("11"),
	dispatch.LevelRejected: lipgloss.Color("9"),
}

// viewKeys toggle layer groups.
var viewKeys = map[string]mapview.Group{
	"d": mapview.GroupDrones,
	"s": mapview.GroupSensors,
	"k": mapview.GroupDocks,
	"o": mapview.GroupOverlay,
	"p": mapview.GroupPaths,
	"g": mapview.GroupGeofences,
}

type tuiModel struct {
	ctx    context.Context
	sess   *console.Session
	snap   ops.Snapshot
	table  table.Model
	vp     viewport.Model
	input  textinput.Model
	typing bool
	help   bool
	admin  bool
	banner *dispatch.Advisory
	width  int
	height int
}

func newModel(ctx context.Context, sess *console.Session) tuiModel {
	cols := []table.Column{
		{Title: "Drone", Width: 6},
		{Title: "Status", Width: 10},
		{Title: "Batt", Width: 5},
		{Title: "ETA", Width: 4},
		{Title: "Task", Width: taskColWidth},
	}
	in := textinput.New()
	in.Prompt = ": "
	in.Placeholder = strings.Join(grammarHints(), " | ")
	in.CharLimit = 120
	m := tuiModel{
		ctx:   ctx,
		sess:  sess,
		table: table.New(table.WithColumns(cols)),
		vp:    viewport.New(0, 0),
		input: in,
	}
	m.refresh()
	return m
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		m.refresh()
	case tickMsg:
		if m.sess.Tick(m.ctx, msg.Tick) {
			m.refresh()
		}
	case commandMsg:
		res := m.sess.Command(m.ctx, msg.input)
		m.show(res.Advisory)
	case adminMsg:
		m.admin = msg.active
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m tuiModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.typing {
		switch msg.Type {
		case tea.KeyEnter:
			line := strings.TrimSpace(m.input.Value())
			m.typing = false
			m.input.Blur()
			m.input.Reset()
			if line != "" {
				res := m.sess.Command(m.ctx, line)
				m.show(res.Advisory)
			}
			return m, nil
		case tea.KeyEsc:
			m.typing = false
			m.input.Blur()
			m.input.Reset()
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	if m.help {
		switch msg.String() {
		case "?", "esc", "q":
			m.help = false
		}
		return m, nil
	}

	key := msg.String()
	switch key {
	case "q", "ctrl+c":
		return m, tea.Quit
	case ":", "/":
		m.typing = true
		return m, m.input.Focus()
	case "?":
		m.help = true
		return m, nil
	case " ", "space", "esc", "1", "2", "3":
		if res, ok := m.sess.Key(m.ctx, key); ok {
			m.show(res.Advisory)
		}
		return m, nil
	case "tab":
		m.sess.SelectNext(m.ctx)
	case "x":
		m.sess.Engine.SetSelected("")
		m.sess.Refresh(m.ctx)
	case "c":
		res := m.sess.Command(m.ctx, "zoom to incident")
		m.show(res.Advisory)
		return m, nil
	case "+", "=", "-":
		if m.sess.Canvas != nil {
			f := m.sess.Canvas.View()
			if key == "-" {
				f.Zoom = max(minZoom, f.Zoom-1)
			} else {
				f.Zoom = min(maxZoom, f.Zoom+1)
			}
			f.Reason = "zoom"
			m.sess.Focus(m.ctx, f)
		}
	case "left", "right", "up", "down":
		if m.sess.Canvas != nil {
			dc, dr := 0, 0
			switch key {
			case "left":
				dc = -panCols
			case "right":
				dc = panCols
			case "up":
				dr = -panRows
			case "down":
				dr = panRows
			}
			m.sess.Focus(m.ctx, m.sess.Canvas.Pan(dc, dr))
		}
	case "pgup":
		m.vp.LineUp(m.vp.Height / 2)
		return m, nil
	case "pgdown":
		m.vp.LineDown(m.vp.Height / 2)
		return m, nil
	default:
		if g, ok := viewKeys[key]; ok {
			m.sess.ToggleGroup(m.ctx, g)
		}
	}
	m.refresh()
	return m, nil
}

func (m *tuiModel) show(a dispatch.Advisory) {
	m.banner = &a
	m.refresh()
}

// layout sizes the panes from the window size.
func (m *tuiModel) layout() {
	_, right := m.paneWidths()
	bodyH := m.bodyHeight()
	rows := len(m.snap.Drones)
	tableH := min(rows+1, max(2, bodyH/2))
	m.table.SetHeight(tableH)
	m.table.SetWidth(right)
	m.vp.Width = right
	m.vp.Height = max(1, bodyH-tableH-3)
}

func (m tuiModel) paneWidths() (left, right int) {
	if m.width <= 0 {
		return 0, 60
	}
	left = max(minMapWidth, m.width*3/5)
	right = max(20, m.width-left-1)
	return left, right
}

func (m tuiModel) bodyHeight() int {
	// header, banner, footer
	return max(4, m.height-3)
}

// refresh pulls a fresh snapshot into the table and timeline.
func (m *tuiModel) refresh() {
	m.snap = m.sess.Machine.Snapshot()
	low := m.sess.Config().LowBatteryThreshold
	rows := make([]table.Row, 0, len(m.snap.Drones))
	for _, d := range m.snap.Drones {
		eta := ""
		if d.ETA != nil {
			eta = fmt.Sprintf("%ds", *d.ETA)
		}
		batt := fmt.Sprintf("%.0f%%", d.Battery)
		if d.Status != model.DroneOffline && d.Battery < low {
			batt += "!"
		}
		rows = append(rows, table.Row{d.ID, string(d.Status), batt, eta, runewidth.Truncate(d.Task, taskColWidth, "…")})
	}
	m.table.SetRows(rows)

	width := m.vp.Width
	if width <= 0 {
		width = 60
	}
	var lines []string
	for _, ev := range m.snap.Timeline {
		line := fmt.Sprintf("%s %-8s %s", ev.Timestamp.Format("15:04:05"), ev.Severity, ev.Message)
		lines = append(lines, wordwrap.String(line, width))
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	m.vp.GotoBottom()
}

func (m tuiModel) View() string {
	if m.help {
		return renderHelp()
	}
	header := m.renderHeader()
	banner := m.renderBanner()
	footer := m.renderFooter()

	left, right := m.paneWidths()
	bodyH := m.bodyHeight()
	var mapPane string
	switch {
	case m.sess.Engine.Degraded() || m.sess.Canvas == nil:
		mapPane = Summary(m.snap, m.sess.Dispatcher.Advisories(), left)
	default:
		mapPane = m.sess.Canvas.Render(left, bodyH)
	}
	mapPane = lipgloss.NewStyle().Width(left).Height(bodyH).MaxHeight(bodyH).Render(mapPane)

	title := lipgloss.NewStyle().Bold(true)
	side := lipgloss.JoinVertical(lipgloss.Left,
		title.Render("Fleet"),
		m.table.View(),
		title.Render("Timeline"),
		m.vp.View(),
	)
	side = lipgloss.NewStyle().Width(right).MaxHeight(bodyH).Render(side)
	sep := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(strings.Repeat("│\n", bodyH-1) + "│")
	body := lipgloss.JoinHorizontal(lipgloss.Top, mapPane, sep, side)
	return lipgloss.JoinVertical(lipgloss.Left, header, body, banner, footer)
}

func (m tuiModel) renderHeader() string {
	p := m.snap.Phase
	badge := lipgloss.NewStyle().Bold(true).Padding(0, 1).
		Foreground(lipgloss.Color("0")).Background(phaseColors[p]).Render(p.Label())
	parts := []string{badge}
	if p != ops.Monitoring {
		parts = append(parts, fmt.Sprintf("T+%02d:%02d", m.snap.ElapsedSec/60, m.snap.ElapsedSec%60))
	}
	if inc := m.snap.Incident; inc != nil {
		parts = append(parts, fmt.Sprintf("%s %s (%d%%)", inc.ID, inc.Title, inc.Confidence))
	}
	env := m.snap.Environment
	parts = append(parts, fmt.Sprintf("wind %s %.0fmph", env.WindDirection, env.WindSpeedMPH))
	adminColor := lipgloss.Color("9")
	if m.admin {
		adminColor = lipgloss.Color("10")
	}
	parts = append(parts, "admin "+lipgloss.NewStyle().Foreground(adminColor).Render("●"))
	if sel := m.sess.Engine.Selected(); sel != "" {
		parts = append(parts, "selected "+sel)
	}
	if st := m.sess.LastStats(); !st.Degraded {
		parts = append(parts, fmt.Sprintf("%d layers", st.Layers))
	}
	return strings.Join(parts, "  ")
}

func (m tuiModel) renderBanner() string {
	if m.banner == nil {
		return ""
	}
	style := lipgloss.NewStyle().Bold(true).Foreground(levelColors[m.banner.Level])
	return style.Render(m.banner.Title) + " " + m.banner.Detail + suggestionText(m.banner.Suggestions)
}

func (m tuiModel) renderFooter() string {
	if m.typing {
		return m.input.View()
	}
	hints := "space approve  esc veto  1/2/3 phase  : command  tab select  arrows pan  +/- zoom  ? help  q quit"
	if m.width > 0 {
		hints = runewidth.Truncate(hints, m.width, "…")
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(hints)
}

func suggestionText(s []string) string {
	if len(s) == 0 {
		return ""
	}
	return " (try: " + strings.Join(s, ", ") + ")"
}

func renderHelp() string {
	lines := []string{
		"Keys",
		"  space        approve the pending response",
		"  esc          veto / dismiss",
		"  1 2 3        jump to monitoring, validating, responding",
		"  :            type a command",
		"  tab / x      select next drone / clear selection",
		"  c            center on incident",
		"  arrows +/-   pan and zoom the map",
		"  d s k o p g  toggle drones, sensors, docks, overlays, paths, geofences",
		"  pgup/pgdown  scroll the timeline",
		"  q            quit",
		"",
		"Commands",
	}
	for _, h := range commandHelp() {
		lines = append(lines, "  "+h)
	}
	lines = append(lines, "", "press ? or esc to close")
	return strings.Join(lines, "\n")
}
