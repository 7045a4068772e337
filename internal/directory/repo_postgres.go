package directory

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PostgresDirectory resolves units from the units and unit_residents tables:
//
//	CREATE TABLE units (
//	    key   TEXT PRIMARY KEY,
//	    label TEXT NOT NULL
//	);
//	CREATE TABLE unit_residents (
//	    unit_key TEXT NOT NULL REFERENCES units (key),
//	    user_id  TEXT NOT NULL,
//	    name     TEXT NOT NULL,
//	    active   BOOLEAN NOT NULL DEFAULT TRUE,
//	    position INT NOT NULL DEFAULT 0,
//	    PRIMARY KEY (unit_key, user_id)
//	);
type PostgresDirectory struct {
	db       *sql.DB
	presence Presence
}

func NewPostgresDirectory(db *sql.DB, presence Presence) *PostgresDirectory {
	return &PostgresDirectory{db: db, presence: presence}
}

// ResolveReceiver picks the receiving resident for a unit: the first active
// resident with a live connection, falling back to the first active resident
// in panel order.
func (d *PostgresDirectory) ResolveReceiver(ctx context.Context, unitKey string) (string, error) {
	unitKey = strings.TrimSpace(unitKey)

	var exists bool
	if err := d.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM units WHERE key = $1)`, unitKey,
	).Scan(&exists); err != nil {
		return "", fmt.Errorf("look up unit: %w", err)
	}
	if !exists {
		return "", ErrUnitNotFound
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT user_id
		FROM unit_residents
		WHERE unit_key = $1 AND active
		ORDER BY position, user_id`,
		unitKey,
	)
	if err != nil {
		return "", fmt.Errorf("query unit residents: %w", err)
	}
	defer rows.Close()

	first := ""
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return "", fmt.Errorf("scan unit resident: %w", err)
		}
		if first == "" {
			first = userID
		}
		if d.presence != nil && d.presence.Online(userID) {
			return userID, nil
		}
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	if first == "" {
		return "", ErrNoResidents
	}
	return first, nil
}
