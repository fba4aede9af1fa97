package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SchemaVersion is stamped into user_version by ReplaceAll.
const SchemaVersion = 1

var (
	ErrNewerSchema = errors.New("snapshot written by a newer version")
	ErrCorrupt     = errors.New("snapshot failed integrity check")
)

// Snapshots are handed between machines, so they are written without a WAL
// sidecar.
var snapshotPragmas = []string{
	"PRAGMA journal_mode=DELETE",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA temp_store=MEMORY",
}

func applySnapshotPragmas(ctx context.Context, conn *sql.Conn) error {
	for _, stmt := range snapshotPragmas {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s: %w", stmt, err)
		}
	}
	return nil
}

// Version reads the schema version a snapshot was written with. Files that
// were never written by ReplaceAll report 0.
func (s *Store) Version(ctx context.Context) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("store is not open")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	var v int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, err
	}
	return v, nil
}

// Verify checks that the file is intact and readable by this version before
// anything is loaded from it.
func (s *Store) Verify(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store is not open")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	v, err := s.Version(ctx)
	if err != nil {
		return err
	}
	if v > SchemaVersion {
		return fmt.Errorf("%w (schema %d, supported %d)", ErrNewerSchema, v, SchemaVersion)
	}

	rows, err := s.db.QueryContext(ctx, "PRAGMA quick_check")
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var msg string
		if err := rows.Scan(&msg); err != nil {
			return err
		}
		if msg != "ok" {
			return fmt.Errorf("%w: %s", ErrCorrupt, msg)
		}
	}
	return rows.Err()
}

func setVersion(ctx context.Context, conn *sql.Conn) error {
	// PRAGMA arguments cannot be bound.
	_, err := conn.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion))
	return err
}
