// Package ops holds the operational state machine: phases, transitions and
// the timers that drive drift and elapsed time.
package ops

import (
	"fmt"
	"strings"

	"droneops-console/internal/scenario"
)

// Phase is the operational state of the console.
type Phase string

const (
	Monitoring Phase = scenario.PhaseMonitoring
	Validating Phase = scenario.PhaseValidating
	Responding Phase = scenario.PhaseResponding
)

// Color returns the alert colour shown for the phase.
func (p Phase) Color() string {
	switch p {
	case Validating:
		return "amber"
	case Responding:
		return "red"
	}
	return "green"
}

// Label is the upper-case header text for the phase.
func (p Phase) Label() string { return strings.ToUpper(string(p)) }

// ParsePhase accepts phase names, alert colours and the numeric shortcuts.
func ParsePhase(s string) (Phase, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "monitoring", "green", "1":
		return Monitoring, nil
	case "validating", "amber", "2":
		return Validating, nil
	case "responding", "red", "3":
		return Responding, nil
	}
	return "", fmt.Errorf("unknown phase %q", s)
}

// Result describes the outcome of a transition request. Transitions never
// fail; a request that does not apply is reported with Changed=false.
type Result struct {
	From    Phase  `json:"from"`
	To      Phase  `json:"to"`
	Changed bool   `json:"changed"`
	Reason  string `json:"reason,omitempty"`
}

func noop(p Phase, reason string) Result {
	return Result{From: p, To: p, Reason: reason}
}
