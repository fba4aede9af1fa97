package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"warpdir/internal/model"
)

//go:embed schema.sql
var schemaSQL string

// Store holds a snapshot of entries in a single SQLite file.
type Store struct {
	db *sql.DB
}

func Open(dbPath string) (*Store, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("dbPath is required")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ReplaceAll swaps the stored snapshot for entries in one transaction and
// stamps it with SchemaVersion.
func (s *Store) ReplaceAll(ctx context.Context, entries []model.Entry) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store is not open")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := applySnapshotPragmas(ctx, conn); err != nil {
		return err
	}
	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return err
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		_, _ = conn.ExecContext(ctx, "ROLLBACK")
	}()

	if _, err := conn.ExecContext(ctx, `DELETE FROM entries`); err != nil {
		return err
	}

	stmt, err := conn.PrepareContext(ctx,
		`INSERT INTO entries (path, rank, last_accessed, visit_count)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
		   rank=excluded.rank,
		   last_accessed=excluded.last_accessed,
		   visit_count=excluded.visit_count`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range entries {
		if strings.TrimSpace(e.Path) == "" {
			return fmt.Errorf("entry path is required")
		}
		visits := max(e.VisitCount, 1)
		if _, err := stmt.ExecContext(ctx, e.Path, model.ClampRank(e.Rank), e.LastAccessed, visits); err != nil {
			return fmt.Errorf("insert %s: %w", e.Path, err)
		}
	}

	if _, err := conn.ExecContext(ctx,
		`INSERT INTO meta(key, value) VALUES ('exported_at', ?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value`,
		strconv.FormatInt(time.Now().Unix(), 10),
	); err != nil {
		return err
	}
	if err := setVersion(ctx, conn); err != nil {
		return err
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return err
	}
	committed = true
	return nil
}

// LoadAll returns the snapshot ordered by rank, then last access, descending.
func (s *Store) LoadAll(ctx context.Context) ([]model.Entry, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store is not open")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT path, rank, last_accessed, visit_count
		 FROM entries
		 ORDER BY rank DESC, last_accessed DESC, path ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Entry
	for rows.Next() {
		var e model.Entry
		if err := rows.Scan(&e.Path, &e.Rank, &e.LastAccessed, &e.VisitCount); err != nil {
			return nil, err
		}
		e.Rank = model.ClampRank(e.Rank)
		e.VisitCount = max(e.VisitCount, 1)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) Count(ctx context.Context) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("store is not open")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM entries`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// ExportedAt reports when ReplaceAll last committed; zero if never.
func (s *Store) ExportedAt(ctx context.Context) (time.Time, error) {
	if s == nil || s.db == nil {
		return time.Time{}, fmt.Errorf("store is not open")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'exported_at'`).Scan(&v)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	sec, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid exported_at %q", v)
	}
	return time.Unix(sec, 0), nil
}

func (s *Store) init() error {
	if _, err := s.db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return err
	}

	return execStatements(s.db, schemaSQL)
}

func execStatements(db *sql.DB, sqlText string) error {
	if db == nil {
		return fmt.Errorf("db is nil")
	}
	sqlText = strings.ReplaceAll(sqlText, "\r\n", "\n")

	var cleaned strings.Builder
	for _, line := range strings.Split(sqlText, "\n") {
		trim := strings.TrimSpace(line)
		if trim == "" {
			continue
		}
		if strings.HasPrefix(trim, "--") {
			continue
		}
		cleaned.WriteString(line)
		cleaned.WriteString("\n")
	}

	parts := strings.Split(cleaned.String(), ";")
	for _, raw := range parts {
		stmt := strings.TrimSpace(raw)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt, err)
		}
	}
	return nil
}
