// Package export writes console telemetry to external sinks. It is
// write-only: nothing in the console reads state back from a sink.
package export

import "droneops-console/internal/telemetry"

// TelemetryWriter receives drift samples.
type TelemetryWriter interface {
	Write(row telemetry.TelemetryRow) error
}

// batchWriter is implemented by writers that can take several rows at once.
type batchWriter interface {
	WriteBatch(rows []telemetry.TelemetryRow) error
}

// TimelineWriter receives timeline entries and phase transitions.
type TimelineWriter interface {
	WriteTimeline(row telemetry.TimelineRow) error
}

type batchTimelineWriter interface {
	WriteTimelines(rows []telemetry.TimelineRow) error
}

// AssignmentWriter receives drone dispatch and release events.
type AssignmentWriter interface {
	WriteAssignment(row telemetry.AssignmentRow) error
}

// WriteRows sends rows to w, batching when w supports it.
func WriteRows(w TelemetryWriter, rows []telemetry.TelemetryRow) error {
	if len(rows) == 0 {
		return nil
	}
	if bw, ok := w.(batchWriter); ok {
		return bw.WriteBatch(rows)
	}
	for _, r := range rows {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteTimelineRows sends rows to w, batching when w supports it.
func WriteTimelineRows(w TimelineWriter, rows []telemetry.TimelineRow) error {
	if len(rows) == 0 {
		return nil
	}
	if bw, ok := w.(batchTimelineWriter); ok {
		return bw.WriteTimelines(rows)
	}
	for _, r := range rows {
		if err := w.WriteTimeline(r); err != nil {
			return err
		}
	}
	return nil
}
