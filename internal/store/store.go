// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists flattened citations and the resolver errors that
// accompanied them in a SQLite database.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/citeflow/internal/citation"
	"github.com/pdiddy/citeflow/internal/resolve"
)

// ErrNotFound is returned when no citation has the requested ID.
var ErrNotFound = errors.New("citation not found")

// Record is one stored citation.
type Record struct {
	ID       string
	DOI      string
	Title    string
	Year     string
	Citation citation.Citation
	Errors   []resolve.ResolverError
	Created  time.Time
	Updated  time.Time
}

// Summary is the listing form of a Record.
type Summary struct {
	ID      string
	DOI     string
	Title   string
	Year    string
	Updated time.Time
}

// Store manages the citation SQLite database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the database at path, creating its directory and
// schema if needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS citations (
			id TEXT PRIMARY KEY,
			doi TEXT,
			title TEXT,
			year TEXT,
			body TEXT NOT NULL,
			created TEXT NOT NULL,
			updated TEXT NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_citations_doi ON citations(doi) WHERE doi <> ''`,
		`CREATE TABLE IF NOT EXISTS resolver_errors (
			citation_id TEXT NOT NULL REFERENCES citations(id) ON DELETE CASCADE,
			plugin TEXT NOT NULL,
			whence TEXT,
			category TEXT NOT NULL,
			message TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_resolver_errors_citation ON resolver_errors(citation_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Put stores a flattened citation with its resolver errors. A citation
// whose DOI is already stored replaces the earlier record and keeps its
// ID; otherwise a new ID is assigned. The stored record is returned.
func (s *Store) Put(ctx context.Context, c citation.Citation, errs []resolve.ResolverError) (*Record, error) {
	body, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encoding citation: %w", err)
	}

	rec := &Record{
		DOI:      fieldString(c, "identifiers/doi"),
		Title:    fieldString(c, "title"),
		Year:     fieldString(c, "year"),
		Citation: c,
		Errors:   errs,
		Updated:  s.now().UTC().Truncate(time.Second),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var created string
	if rec.DOI != "" {
		err := tx.QueryRowContext(ctx,
			`SELECT id, created FROM citations WHERE doi = ?`, rec.DOI,
		).Scan(&rec.ID, &created)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("looking up DOI: %w", err)
		}
	}

	updated := rec.Updated.Format(time.RFC3339)
	if rec.ID == "" {
		rec.ID = uuid.NewString()
		rec.Created = rec.Updated
		_, err = tx.ExecContext(ctx,
			`INSERT INTO citations (id, doi, title, year, body, created, updated) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			rec.ID, rec.DOI, rec.Title, rec.Year, string(body), updated, updated)
	} else {
		rec.Created, _ = time.Parse(time.RFC3339, created)
		_, err = tx.ExecContext(ctx,
			`UPDATE citations SET title = ?, year = ?, body = ?, updated = ? WHERE id = ?`,
			rec.Title, rec.Year, string(body), updated, rec.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("writing citation: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM resolver_errors WHERE citation_id = ?`, rec.ID); err != nil {
		return nil, fmt.Errorf("clearing resolver errors: %w", err)
	}
	for _, e := range errs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO resolver_errors (citation_id, plugin, whence, category, message) VALUES (?, ?, ?, ?, ?)`,
			rec.ID, e.Plugin, e.Whence, string(e.Category), e.Message,
		); err != nil {
			return nil, fmt.Errorf("writing resolver error: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing citation: %w", err)
	}
	return rec, nil
}

// Get returns the citation stored under id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	var (
		rec              Record
		body             string
		created, updated string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, doi, title, year, body, created, updated FROM citations WHERE id = ?`, id,
	).Scan(&rec.ID, &rec.DOI, &rec.Title, &rec.Year, &body, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading citation %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(body), &rec.Citation); err != nil {
		return nil, fmt.Errorf("decoding citation %s: %w", id, err)
	}
	rec.Created, _ = time.Parse(time.RFC3339, created)
	rec.Updated, _ = time.Parse(time.RFC3339, updated)

	rows, err := s.db.QueryContext(ctx,
		`SELECT plugin, whence, category, message FROM resolver_errors WHERE citation_id = ? ORDER BY rowid`, id)
	if err != nil {
		return nil, fmt.Errorf("reading resolver errors: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var e resolve.ResolverError
		var category string
		if err := rows.Scan(&e.Plugin, &e.Whence, &category, &e.Message); err != nil {
			return nil, fmt.Errorf("scanning resolver error: %w", err)
		}
		e.Category = resolve.Category(category)
		rec.Errors = append(rec.Errors, e)
	}
	return &rec, rows.Err()
}

// ListOptions filters List.
type ListOptions struct {
	// Query matches titles containing it, ignoring case.
	Query string
	// Limit caps the number of results (default 50).
	Limit int
}

// List returns stored citations, most recently updated first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Summary, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, doi, title, year, updated FROM citations`
	var args []any
	if q := strings.TrimSpace(opts.Query); q != "" {
		query += ` WHERE title LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(q)+"%")
	}
	query += ` ORDER BY updated DESC, id LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing citations: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		var updated string
		if err := rows.Scan(&sum.ID, &sum.DOI, &sum.Title, &sum.Year, &updated); err != nil {
			return nil, fmt.Errorf("scanning citation: %w", err)
		}
		sum.Updated, _ = time.Parse(time.RFC3339, updated)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Delete removes the citation stored under id.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM citations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting citation %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return nil
}

func fieldString(c citation.Citation, keyspec string) string {
	v, ok := citation.Lookup(c, keyspec)
	if !ok {
		return ""
	}
	if s, ok := v.Str(); ok {
		return s
	}
	return fmt.Sprint(v)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
