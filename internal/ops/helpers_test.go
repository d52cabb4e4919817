package ops

import "droneops-console/internal/scenario"

func scenarioTrigger(secs int) scenario.Trigger {
	return scenario.Trigger{Event: "phase_seconds", Value: secs, Next: scenario.PhaseValidating}
}
