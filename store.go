package spacetravelling

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested page snapshot does not exist.
var ErrNotFound = sql.ErrNoRows

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store wraps a SQLite database holding page snapshots and build runs, so a
// restarted server can serve the last generated pages immediately.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and runs schema migrations.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL lets the scheduler write snapshots while handlers read them; the
	// busy timeout makes writers wait instead of failing with SQLITE_BUSY.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
		PRAGMA cache_size=-8000;
		PRAGMA mmap_size=268435456;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS pages (
    page_key TEXT PRIMARY KEY,
    kind TEXT NOT NULL,
    body BLOB NOT NULL,
    content_type TEXT NOT NULL,
    generated_at TEXT NOT NULL,
    not_found INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS builds (
    id TEXT PRIMARY KEY,
    build_trigger TEXT NOT NULL,
    started_at TEXT NOT NULL,
    finished_at TEXT NOT NULL,
    pages INTEGER NOT NULL,
    err TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS builds_started_at ON builds (started_at);
`)
	return err
}

// SavePage upserts a page snapshot.
func (s *Store) SavePage(ctx context.Context, p Page) error {
	notFound := 0
	if p.NotFound {
		notFound = 1
	}
	body := p.Body
	if body == nil {
		body = []byte{}
	}
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO pages (page_key, kind, body, content_type, generated_at, not_found) VALUES (?, ?, ?, ?, ?, ?)`,
		p.Key, p.Kind, body, p.ContentType, p.GeneratedAt.UTC().Format(timeLayout), notFound)
	return err
}

// GetPage returns the snapshot stored under key, or ErrNotFound.
func (s *Store) GetPage(ctx context.Context, key string) (Page, error) {
	row := s.db.QueryRowContext(ctx, `SELECT page_key, kind, body, content_type, generated_at, not_found FROM pages WHERE page_key = ?`, key)
	return scanPage(row)
}

// ListPages returns every snapshot ordered by key.
func (s *Store) ListPages(ctx context.Context) ([]Page, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT page_key, kind, body, content_type, generated_at, not_found FROM pages ORDER BY page_key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pages []Page
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// DeletePage removes the snapshot stored under key.
func (s *Store) DeletePage(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM pages WHERE page_key = ?`, key)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPage(row rowScanner) (Page, error) {
	var p Page
	var generatedAt string
	var notFound int
	if err := row.Scan(&p.Key, &p.Kind, &p.Body, &p.ContentType, &generatedAt, &notFound); err != nil {
		return Page{}, err
	}
	t, err := time.Parse(timeLayout, generatedAt)
	if err != nil {
		return Page{}, err
	}
	p.GeneratedAt = t
	p.NotFound = notFound == 1
	return p, nil
}

// RecordBuild stores a finished build run, assigning an ID when empty.
func (s *Store) RecordBuild(ctx context.Context, b BuildRun) (BuildRun, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO builds (id, build_trigger, started_at, finished_at, pages, err) VALUES (?, ?, ?, ?, ?, ?)`,
		b.ID, b.Trigger, b.StartedAt.UTC().Format(timeLayout), b.FinishedAt.UTC().Format(timeLayout), b.Pages, b.Err)
	if err != nil {
		return BuildRun{}, err
	}
	return b, nil
}

// ListBuilds returns the most recent build runs, newest first.
func (s *Store) ListBuilds(ctx context.Context, limit int) ([]BuildRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, build_trigger, started_at, finished_at, pages, err FROM builds ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var builds []BuildRun
	for rows.Next() {
		var b BuildRun
		var started, finished string
		if err := rows.Scan(&b.ID, &b.Trigger, &started, &finished, &b.Pages, &b.Err); err != nil {
			return nil, err
		}
		if b.StartedAt, err = time.Parse(timeLayout, started); err != nil {
			return nil, err
		}
		if b.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
			return nil, err
		}
		builds = append(builds, b)
	}
	return builds, rows.Err()
}

// IsNotFound reports whether err means the row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
