// Package trace implements the Trace Logger: a per-request structured record
// of every pipeline phase (inputs, outputs, timings, status) kept in both
// human-readable and machine-readable form, grounded on common/logger's
// request-scoped LogFields pattern and generalized to a full phase timeline.
package trace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Status is a phase entry's terminal state.
type Status string

const (
	StatusSuccess Status = "success"
	StatusSkipped Status = "skipped"
	StatusWarn    Status = "warn"
	StatusFailed  Status = "failed"
)

// Entry is one phase's trace record.
type Entry struct {
	Phase         string    `json:"phase"`
	StartedAt     time.Time `json:"started_at"`
	DurationMS    int64     `json:"duration_ms"`
	Status        Status    `json:"status"`
	InputSummary  string    `json:"input_summary,omitempty"`
	OutputSummary string    `json:"output_summary,omitempty"`
	Logs          []string  `json:"logs,omitempty"`
	ErrorKind     string    `json:"error_kind,omitempty"`
	ErrorMessage  string    `json:"error_message,omitempty"`
}

// Record is the full per-request trace: a unique request id, its phase
// timeline, and an aggregate outcome.
type Record struct {
	RequestID     string    `json:"request_id"`
	StartedAt     time.Time `json:"started_at"`
	TotalDuration int64     `json:"total_duration_ms"`
	Status        Status    `json:"status"`
	Entries       []Entry   `json:"entries"`
	ErrorKind     string    `json:"error_kind,omitempty"`
	ErrorMessage  string    `json:"error_message,omitempty"`
}

// Tracer accumulates Entries for a single request and persists them as both
// a human log (one line per event) and a machine JSON record, matching
// SPEC_FULL.md §6's `{log_dir}/{request_id}.log` / `{request_id}_trace.json`
// persisted-state layout.
type Tracer struct {
	mu        sync.Mutex
	requestID string
	logDir    string
	startedAt time.Time
	entries   []Entry
	logFile   *os.File
}

// New opens a Tracer for requestID, creating logDir if needed and truncating
// any previous log file for the same id (request ids are not expected to
// repeat, but this keeps re-runs in tests deterministic).
func New(logDir, requestID string) (*Tracer, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("trace: create log dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(logDir, requestID+".log"), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("trace: open log file: %w", err)
	}
	return &Tracer{
		requestID: requestID,
		logDir:    logDir,
		startedAt: time.Now(),
		logFile:   f,
	}, nil
}

// Phase starts timing a phase and returns a finisher to call with the
// outcome. Usage:
//
//	done := t.Phase("extract")
//	... do work ...
//	done(trace.StatusSuccess, "7 adapters ran", "42 nodes, 18 edges", nil)
func (t *Tracer) Phase(name string) func(status Status, inputSummary, outputSummary string, err error) {
	start := time.Now()
	return func(status Status, inputSummary, outputSummary string, err error) {
		e := Entry{
			Phase:         name,
			StartedAt:     start,
			DurationMS:    time.Since(start).Milliseconds(),
			Status:        status,
			InputSummary:  inputSummary,
			OutputSummary: outputSummary,
		}
		if err != nil {
			e.ErrorMessage = err.Error()
			if k, ok := err.(interface{ ErrKind() string }); ok {
				e.ErrorKind = k.ErrKind()
			}
		}
		t.record(e)
	}
}

// Log appends a free-form line to the current request's human log without
// closing out a phase (e.g. per-extractor-adapter progress notes).
func (t *Tracer) Log(phase, line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writeLine(time.Now(), "info", phase, line)
}

func (t *Tracer) record(e Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, e)
	level := "info"
	switch e.Status {
	case StatusWarn:
		level = "warn"
	case StatusFailed:
		level = "error"
	}
	msg := fmt.Sprintf("%s (%dms) out=%s", e.Status, e.DurationMS, e.OutputSummary)
	if e.ErrorMessage != "" {
		msg += " err=" + e.ErrorMessage
	}
	t.writeLine(e.StartedAt, level, e.Phase, msg)
}

func (t *Tracer) writeLine(ts time.Time, level, phase, msg string) {
	if t.logFile == nil {
		return
	}
	fmt.Fprintf(t.logFile, "%s [%s] phase=%s %s\n", ts.Format(time.RFC3339Nano), level, phase, msg)
}

// Finish computes the aggregate status, writes the machine trace JSON file,
// and closes the human log. The returned Record is also what callers embed
// in the GET /trace/{request_id} response.
func (t *Tracer) Finish(overallErr error) (Record, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec := Record{
		RequestID:     t.requestID,
		StartedAt:     t.startedAt,
		TotalDuration: time.Since(t.startedAt).Milliseconds(),
		Status:        aggregateStatus(t.entries),
		Entries:       t.entries,
	}
	if overallErr != nil {
		rec.Status = StatusFailed
		rec.ErrorMessage = overallErr.Error()
		if k, ok := overallErr.(interface{ ErrKind() string }); ok {
			rec.ErrorKind = k.ErrKind()
		}
	}

	if t.logFile != nil {
		_ = t.logFile.Close()
		t.logFile = nil
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return rec, fmt.Errorf("trace: marshal record: %w", err)
	}
	path := filepath.Join(t.logDir, t.requestID+"_trace.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return rec, fmt.Errorf("trace: write record: %w", err)
	}
	return rec, nil
}

func aggregateStatus(entries []Entry) Status {
	status := StatusSuccess
	for _, e := range entries {
		switch e.Status {
		case StatusFailed:
			return StatusFailed
		case StatusWarn:
			status = StatusWarn
		}
	}
	return status
}

// Load reads back a previously persisted Record for GET /trace/{request_id}.
func Load(logDir, requestID string) (Record, error) {
	data, err := os.ReadFile(filepath.Join(logDir, requestID+"_trace.json"))
	if err != nil {
		return Record{}, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("trace: unmarshal record: %w", err)
	}
	return rec, nil
}
