package export

import (
	"encoding/json"
	"io"
	"os"
	"sync"

	"droneops-console/internal/telemetry"
)

// JSONWriter prints every row as one JSON line.
type JSONWriter struct {
	mu  sync.Mutex
	out io.Writer
}

// NewJSONWriter creates a JSONWriter on out, or os.Stdout when out is nil.
func NewJSONWriter(out io.Writer) *JSONWriter {
	if out == nil {
		out = os.Stdout
	}
	return &JSONWriter{out: out}
}

func (w *JSONWriter) encode(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return json.NewEncoder(w.out).Encode(v)
}

// Write outputs a telemetry row.
func (w *JSONWriter) Write(row telemetry.TelemetryRow) error { return w.encode(row) }

// WriteBatch outputs several telemetry rows.
func (w *JSONWriter) WriteBatch(rows []telemetry.TelemetryRow) error {
	for _, r := range rows {
		if err := w.encode(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteTimeline outputs a timeline row.
func (w *JSONWriter) WriteTimeline(row telemetry.TimelineRow) error { return w.encode(row) }

// WriteAssignment outputs an assignment row.
func (w *JSONWriter) WriteAssignment(row telemetry.AssignmentRow) error { return w.encode(row) }
