package export

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"droneops-console/internal/telemetry"
)

// FileWriter writes telemetry, timeline and assignment rows to JSONL files.
type FileWriter struct {
	mu      sync.Mutex
	files   []*os.File
	teleEnc *json.Encoder
	lineEnc *json.Encoder
	asgnEnc *json.Encoder
}

// NewFileWriter creates a FileWriter. timelinePath and assignmentPath may
// be empty to skip those logs.
func NewFileWriter(telemetryPath, timelinePath, assignmentPath string) (*FileWriter, error) {
	fw := &FileWriter{}
	open := func(path string) (*json.Encoder, error) {
		if path == "" {
			return nil, nil
		}
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", path, err)
		}
		fw.files = append(fw.files, f)
		return json.NewEncoder(f), nil
	}
	var err error
	if fw.teleEnc, err = open(telemetryPath); err == nil {
		if fw.lineEnc, err = open(timelinePath); err == nil {
			fw.asgnEnc, err = open(assignmentPath)
		}
	}
	if err != nil {
		fw.Close()
		return nil, err
	}
	if fw.teleEnc == nil {
		return nil, fmt.Errorf("telemetry path is required")
	}
	return fw, nil
}

// Write logs a single telemetry row.
func (f *FileWriter) Write(row telemetry.TelemetryRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.teleEnc.Encode(row)
}

// WriteBatch logs multiple telemetry rows.
func (f *FileWriter) WriteBatch(rows []telemetry.TelemetryRow) error {
	for _, r := range rows {
		if err := f.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteTimeline logs a timeline row, if enabled.
func (f *FileWriter) WriteTimeline(row telemetry.TimelineRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lineEnc == nil {
		return nil
	}
	return f.lineEnc.Encode(row)
}

// WriteAssignment logs an assignment row, if enabled.
func (f *FileWriter) WriteAssignment(row telemetry.AssignmentRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.asgnEnc == nil {
		return nil
	}
	return f.asgnEnc.Encode(row)
}

// Close closes the underlying files.
func (f *FileWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var err error
	for _, file := range f.files {
		if e := file.Close(); e != nil && err == nil {
			err = e
		}
	}
	f.files = nil
	return err
}
