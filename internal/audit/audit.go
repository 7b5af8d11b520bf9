// Package audit records extraction submissions in PostgreSQL. The log is an
// operational record of what was submitted and how the call ended; it never
// stores form field definitions or staged file contents.
//
// The service is optional. A nil *Service (no database configured) is valid
// and every method on it is a no-op, so callers never branch on whether
// auditing is enabled.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/formforge/formforge/internal/logging"
)

// Submission outcomes.
const (
	OutcomeSuccess          = "success"
	OutcomeValidationFailed = "validation_failed"
	OutcomeSizeBlocked      = "size_blocked"
	OutcomeTransportError   = "transport_error"
	OutcomeAppError         = "app_error"
	OutcomeRejected         = "rejected"
)

// Entry describes one submission attempt.
type Entry struct {
	SessionID    string
	TraceID      string
	Model        string
	Locale       string
	FieldCount   int
	FileCount    int
	TotalBytes   int64
	Outcome      string
	ErrorMessage string
	Duration     time.Duration
}

// Record is a stored audit row.
type Record struct {
	ID           int64     `json:"id"`
	SessionID    string    `json:"sessionId"`
	TraceID      string    `json:"traceId,omitempty"`
	Model        string    `json:"model"`
	Locale       string    `json:"locale"`
	FieldCount   int       `json:"fieldCount"`
	FileCount    int       `json:"fileCount"`
	TotalBytes   int64     `json:"totalBytes"`
	Outcome      string    `json:"outcome"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
	DurationMs   int64     `json:"durationMs"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Service writes and reads submission audit rows.
type Service struct {
	pool *pgxpool.Pool
}

// New creates an audit service over the given pool. A nil pool returns a nil
// service, which disables auditing.
func New(pool *pgxpool.Pool) *Service {
	if pool == nil {
		return nil
	}
	return &Service{pool: pool}
}

// EnsureSchema creates the audit table if it does not exist.
func (s *Service) EnsureSchema(ctx context.Context) error {
	if s == nil {
		return nil
	}

	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS submission_audit (
			id BIGSERIAL PRIMARY KEY,
			session_id TEXT NOT NULL,
			trace_id TEXT NOT NULL DEFAULT '',
			model TEXT NOT NULL,
			locale TEXT NOT NULL,
			field_count INT NOT NULL,
			file_count INT NOT NULL,
			total_bytes BIGINT NOT NULL,
			outcome TEXT NOT NULL,
			error_message TEXT NOT NULL DEFAULT '',
			duration_ms BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("creating submission_audit table: %w", err)
	}
	return nil
}

// Log stores one submission attempt. Failures are logged and swallowed so a
// broken audit database never blocks a submission.
func (s *Service) Log(ctx context.Context, e Entry) {
	if s == nil {
		return
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO submission_audit
			(session_id, trace_id, model, locale, field_count, file_count,
			 total_bytes, outcome, error_message, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.SessionID, e.TraceID, e.Model, e.Locale, e.FieldCount, e.FileCount,
		e.TotalBytes, e.Outcome, e.ErrorMessage, e.Duration.Milliseconds())
	if err != nil {
		logging.FromContext(ctx).Warn("audit log insert failed",
			"error", err,
			"session_id", e.SessionID,
			"outcome", e.Outcome)
	}
}

// Recent returns the most recent audit rows, newest first.
func (s *Service) Recent(ctx context.Context, limit int) ([]Record, error) {
	if s == nil {
		return nil, nil
	}
	if limit < 1 || limit > 500 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, session_id, trace_id, model, locale, field_count,
		       file_count, total_bytes, outcome, error_message, duration_ms,
		       created_at
		FROM submission_audit
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying submission_audit: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var durationMs int64
		if err := rows.Scan(&r.ID, &r.SessionID, &r.TraceID, &r.Model,
			&r.Locale, &r.FieldCount, &r.FileCount, &r.TotalBytes,
			&r.Outcome, &r.ErrorMessage, &durationMs, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning audit row: %w", err)
		}
		r.DurationMs = durationMs
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit rows: %w", err)
	}

	return records, nil
}

// Enabled reports whether auditing is active.
func (s *Service) Enabled() bool {
	return s != nil
}
