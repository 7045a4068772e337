package audit

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresLog stores the trail in the call_audit table:
//
//	CREATE TABLE call_audit (
//	    id          UUID PRIMARY KEY,
//	    call_id     UUID NOT NULL,
//	    kind        TEXT NOT NULL,
//	    status      TEXT NOT NULL,
//	    caller_type TEXT NOT NULL,
//	    receiver_id TEXT NOT NULL,
//	    recorded_at TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX idx_call_audit_call ON call_audit (call_id, recorded_at);
type PostgresLog struct {
	db *sql.DB
}

func NewPostgresLog(db *sql.DB) *PostgresLog {
	return &PostgresLog{db: db}
}

func (l *PostgresLog) Append(ctx context.Context, e Entry) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO call_audit (id, call_id, kind, status, caller_type, receiver_id, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.CallID, e.Kind, e.Status, e.CallerType, e.ReceiverID, e.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func (l *PostgresLog) ByCall(ctx context.Context, callID string) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, call_id, kind, status, caller_type, receiver_id, recorded_at
		FROM call_audit
		WHERE call_id = $1
		ORDER BY recorded_at`,
		callID,
	)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.CallID, &e.Kind, &e.Status, &e.CallerType, &e.ReceiverID, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
