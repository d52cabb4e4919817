package tui

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"
	"golang.org/x/term"

	"droneops-console/internal/dispatch"
	"droneops-console/internal/grammar"
	"droneops-console/internal/model"
	"droneops-console/internal/ops"
)

// summaryTimeline is how many recent timeline entries the summary lists.
const summaryTimeline = 5

// IsInteractive reports whether f is a terminal the dashboard can take over.
func IsInteractive(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}

// Summary renders snap as plain text. It is the view used when stdout is
// not a terminal or the map surface is unavailable.
func Summary(snap ops.Snapshot, advisories []dispatch.Advisory, width int) string {
	if width <= 0 {
		width = 80
	}
	var b strings.Builder
	line := func(s string) {
		b.WriteString(wordwrap.String(s, width))
		b.WriteByte('\n')
	}

	head := fmt.Sprintf("[%s] %s", strings.ToUpper(snap.Phase.Color()), snap.Phase.Label())
	if snap.Phase != ops.Monitoring {
		head += fmt.Sprintf("  T+%02d:%02d", snap.ElapsedSec/60, snap.ElapsedSec%60)
	}
	line(head)
	if inc := snap.Incident; inc != nil {
		line(fmt.Sprintf("Incident %s: %s, %s (%s, %d%% confidence)", inc.ID, inc.Title, inc.Address, inc.Severity, inc.Confidence))
		if t := inc.Threat; t.HeatSignatureC > 0 {
			line(fmt.Sprintf("Threat: %.0f°C, spread %s, wind %s %s, %d structures at risk", t.HeatSignatureC, t.GrowthRate, t.WindSpeed, t.WindDirection, t.StructuresAtRisk))
		}
	} else {
		line("No active incident.")
	}

	airborne := snap.CountStatus(model.DroneStatus.Airborne)
	line(fmt.Sprintf("Fleet: %d drones, %d airborne", len(snap.Drones), airborne))
	for _, d := range snap.Drones {
		row := fmt.Sprintf("  %s %s %4.0f%%", fit(d.ID, 6), fit(string(d.Status), 10), d.Battery)
		if d.ETA != nil {
			row += fmt.Sprintf(" eta %ds", *d.ETA)
		}
		if d.Task != "" {
			row += " " + d.Task
		}
		b.WriteString(runewidth.Truncate(row, width, "…"))
		b.WriteByte('\n')
	}

	var alerts []string
	for _, s := range snap.Sensors {
		if s.Status == model.SensorAlert {
			alerts = append(alerts, s.ID)
		}
	}
	if len(alerts) > 0 {
		line("Sensor alerts: " + strings.Join(alerts, ", "))
	}

	tl := snap.Timeline
	if len(tl) > summaryTimeline {
		tl = tl[len(tl)-summaryTimeline:]
	}
	if len(tl) > 0 {
		line("Timeline:")
		for _, ev := range tl {
			line(fmt.Sprintf("  %s %s", ev.Timestamp.Format("15:04:05"), ev.Message))
		}
	}
	if n := len(advisories); n > 0 {
		line("Last advisory: " + advisories[n-1].String())
	}
	return strings.TrimRight(b.String(), "\n")
}

// fit pads or truncates s to exactly w cells.
func fit(s string, w int) string {
	return runewidth.FillRight(runewidth.Truncate(s, w, ""), w)
}

func grammarHints() []string { return grammar.Examples() }

func commandHelp() []string {
	out := make([]string, 0, len(grammar.Table))
	for _, e := range grammar.Table {
		out = append(out, fmt.Sprintf("%s %s", fit(e.Phrase, 26), e.Description))
	}
	return out
}
