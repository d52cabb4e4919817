package export

import (
	"errors"

	"droneops-console/internal/telemetry"
)

// MultiWriter fans rows out to several sinks. A failing sink does not stop
// the others; the errors are joined.
type MultiWriter struct {
	tele  []TelemetryWriter
	lines []TimelineWriter
	asgn  []AssignmentWriter
}

// NewMultiWriter builds a MultiWriter from sinks, routing each one by the
// interfaces it implements.
func NewMultiWriter(sinks ...any) *MultiWriter {
	mw := &MultiWriter{}
	for _, s := range sinks {
		if w, ok := s.(TelemetryWriter); ok {
			mw.tele = append(mw.tele, w)
		}
		if w, ok := s.(TimelineWriter); ok {
			mw.lines = append(mw.lines, w)
		}
		if w, ok := s.(AssignmentWriter); ok {
			mw.asgn = append(mw.asgn, w)
		}
	}
	return mw
}

// Write sends a telemetry row to all telemetry sinks.
func (mw *MultiWriter) Write(row telemetry.TelemetryRow) error {
	return mw.WriteBatch([]telemetry.TelemetryRow{row})
}

// WriteBatch sends rows to all telemetry sinks, batching where supported.
func (mw *MultiWriter) WriteBatch(rows []telemetry.TelemetryRow) error {
	var errs []error
	for _, w := range mw.tele {
		errs = append(errs, WriteRows(w, rows))
	}
	return errors.Join(errs...)
}

// WriteTimeline sends a timeline row to all timeline sinks.
func (mw *MultiWriter) WriteTimeline(row telemetry.TimelineRow) error {
	return mw.WriteTimelines([]telemetry.TimelineRow{row})
}

// WriteTimelines sends rows to all timeline sinks, batching where supported.
func (mw *MultiWriter) WriteTimelines(rows []telemetry.TimelineRow) error {
	var errs []error
	for _, w := range mw.lines {
		errs = append(errs, WriteTimelineRows(w, rows))
	}
	return errors.Join(errs...)
}

// WriteAssignment sends an assignment row to all assignment sinks.
func (mw *MultiWriter) WriteAssignment(row telemetry.AssignmentRow) error {
	var errs []error
	for _, w := range mw.asgn {
		errs = append(errs, w.WriteAssignment(row))
	}
	return errors.Join(errs...)
}

// Empty reports whether no sink was registered.
func (mw *MultiWriter) Empty() bool {
	return len(mw.tele) == 0 && len(mw.lines) == 0 && len(mw.asgn) == 0
}
