// Package library keeps a SQLite index of the figure files created on this
// host so they can be found again by name or number.
package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ardnew/softportal/pkg"
)

// Entry is one created figure file.
type Entry struct {
	Path      string
	Family    string
	Name      string
	Number    int
	UID       string // hex
	CreatedAt time.Time
}

// Library is an open figure index.
type Library struct {
	db *sql.DB
}

// Open opens or creates the index at path.
func Open(path string) (*Library, error) {
	if path == "" {
		return nil, fmt.Errorf("library: empty db path: %w", pkg.ErrInvalidParameter)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	pkg.LogDebug(pkg.ComponentLibrary, "library opened", "path", path)
	return &Library{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS figures (
			path TEXT PRIMARY KEY,
			family TEXT NOT NULL,
			name TEXT NOT NULL,
			number INTEGER NOT NULL,
			uid TEXT NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_figures_number ON figures(family, number);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the index.
func (l *Library) Close() error {
	return l.db.Close()
}

// Record adds e, replacing any earlier entry for the same path.
func (l *Library) Record(ctx context.Context, e Entry) error {
	if e.Path == "" {
		return fmt.Errorf("library: empty figure path: %w", pkg.ErrInvalidParameter)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO figures(path, family, name, number, uid, created_at)
		 VALUES(?, ?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
			family=excluded.family,
			name=excluded.name,
			number=excluded.number,
			uid=excluded.uid,
			created_at=excluded.created_at`,
		e.Path, e.Family, e.Name, e.Number, e.UID, e.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("library: record %s: %w", e.Path, err)
	}
	pkg.LogInfo(pkg.ComponentLibrary, "figure recorded", "path", e.Path, "name", e.Name)
	return nil
}

// List returns every entry, oldest first.
func (l *Library) List(ctx context.Context) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT path, family, name, number, uid, created_at FROM figures ORDER BY created_at, path`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// FindByPath returns the entry recorded for path. A missing entry reports
// [pkg.ErrFigureNotFound].
func (l *Library) FindByPath(ctx context.Context, path string) (Entry, error) {
	row := l.db.QueryRowContext(ctx,
		`SELECT path, family, name, number, uid, created_at FROM figures WHERE path = ?`, path)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("library: %s: %w", path, pkg.ErrFigureNotFound)
	}
	return e, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (Entry, error) {
	var e Entry
	var created string
	if err := s.Scan(&e.Path, &e.Family, &e.Name, &e.Number, &e.UID, &created); err != nil {
		return Entry{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return Entry{}, fmt.Errorf("library: %s: created_at %q: %w", e.Path, created, err)
	}
	e.CreatedAt = t
	return e, nil
}
