package calls

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Store persists call records. Every status transition is an atomic
// conditional update ("set the new status iff the current status is the
// expected one"); the bool result reports whether the row transitioned.
// A false result with a nil error means the call either does not exist or
// was not in the expected status; callers disambiguate with Get.
type Store interface {
	Create(ctx context.Context, c Call) error
	Get(ctx context.Context, id string) (Call, error)

	MarkAnswered(ctx context.Context, id string, at time.Time) (Call, bool, error)
	MarkRejected(ctx context.Context, id string, at time.Time) (Call, bool, error)
	MarkMissed(ctx context.Context, id string, at time.Time) (Call, bool, error)
	MarkEnded(ctx context.Context, id string, at time.Time) (Call, bool, error)

	// ActiveFor returns the most recent call where the user is caller or
	// receiver and the status is RINGING or ANSWERED.
	ActiveFor(ctx context.Context, userID string) (Call, bool, error)

	// ListFor returns the user's call history, newest first.
	ListFor(ctx context.Context, userID string, limit int) ([]Call, error)

	// ListBetween returns calls started inside [from, to), for reporting.
	ListBetween(ctx context.Context, from, to time.Time) ([]Call, error)
}

// PostgresStore implements Store on Postgres via database/sql (pgx driver).
//
// NOTE: assumes the following table exists:
//
//	CREATE TABLE calls (
//	  id                TEXT PRIMARY KEY,
//	  caller_id         TEXT NOT NULL DEFAULT '',
//	  caller_visitor_id TEXT NOT NULL DEFAULT '',
//	  caller_name       TEXT NOT NULL,
//	  caller_type       TEXT NOT NULL,
//	  receiver_id       TEXT NOT NULL,
//	  type              TEXT NOT NULL,
//	  status            TEXT NOT NULL,
//	  started_at        TIMESTAMPTZ NOT NULL,
//	  answered_at       TIMESTAMPTZ,
//	  ended_at          TIMESTAMPTZ,
//	  duration          INT
//	);
//	CREATE INDEX calls_receiver_started ON calls (receiver_id, started_at DESC);
//	CREATE INDEX calls_caller_started   ON calls (caller_id, started_at DESC);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const callColumns = `id, caller_id, caller_visitor_id, caller_name, caller_type, receiver_id, type, status, started_at, answered_at, ended_at, duration`

func (s *PostgresStore) Create(ctx context.Context, c Call) error {
	const q = `
INSERT INTO calls (
  id, caller_id, caller_visitor_id, caller_name, caller_type, receiver_id, type, status, started_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9
)
`
	_, err := s.db.ExecContext(ctx, q,
		c.ID,
		c.CallerID,
		c.CallerVisitorID,
		c.CallerName,
		c.CallerType,
		c.ReceiverID,
		c.Type,
		c.Status,
		c.StartedAt,
	)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Call, error) {
	const q = `
SELECT ` + callColumns + `
FROM calls
WHERE id = $1
`
	c, err := scanCall(s.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Call{}, ErrNotFound
		}
		return Call{}, err
	}
	return c, nil
}

func (s *PostgresStore) MarkAnswered(ctx context.Context, id string, at time.Time) (Call, bool, error) {
	const q = `
UPDATE calls
SET status = $3, answered_at = $2
WHERE id = $1 AND status = $4
RETURNING ` + callColumns
	return s.conditional(ctx, q, id, at, StatusAnswered, StatusRinging)
}

func (s *PostgresStore) MarkRejected(ctx context.Context, id string, at time.Time) (Call, bool, error) {
	const q = `
UPDATE calls
SET status = $3, ended_at = $2
WHERE id = $1 AND status = $4
RETURNING ` + callColumns
	return s.conditional(ctx, q, id, at, StatusRejected, StatusRinging)
}

func (s *PostgresStore) MarkMissed(ctx context.Context, id string, at time.Time) (Call, bool, error) {
	const q = `
UPDATE calls
SET status = $3, ended_at = $2
WHERE id = $1 AND status = $4
RETURNING ` + callColumns
	return s.conditional(ctx, q, id, at, StatusMissed, StatusRinging)
}

func (s *PostgresStore) MarkEnded(ctx context.Context, id string, at time.Time) (Call, bool, error) {
	// answered_at is guaranteed set for ANSWERED rows, so the duration
	// expression never sees NULL.
	const q = `
UPDATE calls
SET status = $3,
    ended_at = $2,
    duration = FLOOR(EXTRACT(EPOCH FROM ($2::timestamptz - answered_at)))::int
WHERE id = $1 AND status = $4
RETURNING ` + callColumns
	return s.conditional(ctx, q, id, at, StatusEnded, StatusAnswered)
}

func (s *PostgresStore) conditional(ctx context.Context, q, id string, at time.Time, to, from CallStatus) (Call, bool, error) {
	c, err := scanCall(s.db.QueryRowContext(ctx, q, id, at, to, from))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Call{}, false, nil
		}
		return Call{}, false, err
	}
	return c, true, nil
}

func (s *PostgresStore) ActiveFor(ctx context.Context, userID string) (Call, bool, error) {
	const q = `
SELECT ` + callColumns + `
FROM calls
WHERE (caller_id = $1 OR receiver_id = $1)
  AND status IN ($2, $3)
ORDER BY started_at DESC
LIMIT 1
`
	c, err := scanCall(s.db.QueryRowContext(ctx, q, userID, StatusRinging, StatusAnswered))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Call{}, false, nil
		}
		return Call{}, false, err
	}
	return c, true, nil
}

func (s *PostgresStore) ListFor(ctx context.Context, userID string, limit int) ([]Call, error) {
	const q = `
SELECT ` + callColumns + `
FROM calls
WHERE caller_id = $1 OR receiver_id = $1
ORDER BY started_at DESC
LIMIT $2
`
	rows, err := s.db.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCalls(rows)
}

func (s *PostgresStore) ListBetween(ctx context.Context, from, to time.Time) ([]Call, error) {
	const q = `
SELECT ` + callColumns + `
FROM calls
WHERE started_at >= $1 AND started_at < $2
ORDER BY started_at
`
	rows, err := s.db.QueryContext(ctx, q, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCalls(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCall(r rowScanner) (Call, error) {
	var (
		c        Call
		answered sql.NullTime
		ended    sql.NullTime
		duration sql.NullInt64
	)
	if err := r.Scan(
		&c.ID,
		&c.CallerID,
		&c.CallerVisitorID,
		&c.CallerName,
		&c.CallerType,
		&c.ReceiverID,
		&c.Type,
		&c.Status,
		&c.StartedAt,
		&answered,
		&ended,
		&duration,
	); err != nil {
		return Call{}, err
	}
	if answered.Valid {
		t := answered.Time
		c.AnsweredAt = &t
	}
	if ended.Valid {
		t := ended.Time
		c.EndedAt = &t
	}
	if duration.Valid {
		d := int(duration.Int64)
		c.DurationSeconds = &d
	}
	return c, nil
}

func collectCalls(rows *sql.Rows) ([]Call, error) {
	var out []Call
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
