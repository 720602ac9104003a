package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/diagramforge/core/internal/trace"
)

// TraceStore is the durable machine-record store for per-request trace
// data, giving GET /trace/{request_id} a backing store that survives past
// the local {log_dir}/{request_id}_trace.json file (still written by
// internal/trace.Tracer.Finish as the human-debuggable copy). Grounded on
// a typed accessor wrapping hand-written
// queries, mapping pgx.ErrNoRows to storage.ErrNotFound.
type TraceStore struct {
	db *DB
}

func NewTraceStore(db *DB) *TraceStore {
	return &TraceStore{db: db}
}

// EnsureSchema creates the trace_records table if absent, mirroring
// internal/primitive/postgres.go's "ensure on boot" pattern for auxiliary
// tables that have no dedicated migration tool in this exercise.
func (s *TraceStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS trace_records (
			request_id TEXT PRIMARY KEY,
			started_at TIMESTAMPTZ NOT NULL,
			total_duration_ms BIGINT NOT NULL,
			status TEXT NOT NULL,
			error_kind TEXT,
			error_message TEXT,
			entries_json JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`)
	if err != nil {
		return fmt.Errorf("storage: ensure trace_records schema: %w", err)
	}
	return nil
}

// Save upserts rec, keyed by RequestID; a request that gets re-traced
// (e.g. an async refinement job reopening the same id) overwrites the
// prior record rather than accumulating duplicates.
func (s *TraceStore) Save(ctx context.Context, rec trace.Record) error {
	entriesJSON, err := json.Marshal(rec.Entries)
	if err != nil {
		return fmt.Errorf("storage: marshal trace entries: %w", err)
	}

	_, err = s.db.pool.Exec(ctx, `
		INSERT INTO trace_records
			(request_id, started_at, total_duration_ms, status, error_kind, error_message, entries_json)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (request_id) DO UPDATE SET
			total_duration_ms = EXCLUDED.total_duration_ms,
			status = EXCLUDED.status,
			error_kind = EXCLUDED.error_kind,
			error_message = EXCLUDED.error_message,
			entries_json = EXCLUDED.entries_json
	`, rec.RequestID, rec.StartedAt, rec.TotalDuration, string(rec.Status),
		nullable(rec.ErrorKind), nullable(rec.ErrorMessage), entriesJSON)
	if err != nil {
		return fmt.Errorf("storage: save trace record: %w", err)
	}
	return nil
}

// Get returns the trace.Record for requestID, or ErrNotFound if none was
// ever saved (e.g. the request never persisted to Postgres because only
// file-based tracing is configured).
func (s *TraceStore) Get(ctx context.Context, requestID string) (trace.Record, error) {
	row := s.db.pool.QueryRow(ctx, `
		SELECT request_id, started_at, total_duration_ms, status, error_kind, error_message, entries_json
		FROM trace_records WHERE request_id = $1
	`, requestID)

	var (
		rec                 trace.Record
		status              string
		errorKind, errorMsg *string
		entriesJSON         []byte
	)
	if err := row.Scan(&rec.RequestID, &rec.StartedAt, &rec.TotalDuration, &status, &errorKind, &errorMsg, &entriesJSON); err != nil {
		if err == pgx.ErrNoRows {
			return trace.Record{}, ErrNotFound
		}
		return trace.Record{}, fmt.Errorf("storage: get trace record: %w", err)
	}

	rec.Status = trace.Status(status)
	if errorKind != nil {
		rec.ErrorKind = *errorKind
	}
	if errorMsg != nil {
		rec.ErrorMessage = *errorMsg
	}
	if err := json.Unmarshal(entriesJSON, &rec.Entries); err != nil {
		return trace.Record{}, fmt.Errorf("storage: unmarshal trace entries: %w", err)
	}
	return rec, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
