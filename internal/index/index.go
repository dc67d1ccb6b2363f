// Package index keeps a sqlite table of outline elements across a workspace
// so requests can be searched without reparsing every file.
package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/unkn0wn-root/httpoutline/internal/errdef"
	"github.com/unkn0wn-root/httpoutline/internal/outline"
)

const (
	driverName   = "sqlite"
	DefaultLimit = 50
)

const schema = `
CREATE TABLE IF NOT EXISTS files (
	path TEXT PRIMARY KEY,
	fingerprint TEXT NOT NULL,
	indexed_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS elements (
	path TEXT NOT NULL,
	kind TEXT NOT NULL,
	name TEXT NOT NULL,
	label TEXT NOT NULL,
	method TEXT,
	url TEXT,
	start_line INTEGER NOT NULL,
	end_line INTEGER NOT NULL,
	FOREIGN KEY(path) REFERENCES files(path) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS elements_path ON elements(path);
`

type Store struct {
	db  *sql.DB
	now func() time.Time
}

type File struct {
	Path        string
	Fingerprint string
	IndexedAt   time.Time
}

// Hit is one matching outline element.
type Hit struct {
	Path      string `json:"path"      yaml:"path"`
	Kind      string `json:"kind"      yaml:"kind"`
	Name      string `json:"name"      yaml:"name"`
	Label     string `json:"label"     yaml:"label"`
	Method    string `json:"method,omitempty" yaml:"method,omitempty"`
	URL       string `json:"url,omitempty"    yaml:"url,omitempty"`
	StartLine int    `json:"startLine" yaml:"start_line"`
	EndLine   int    `json:"endLine"   yaml:"end_line"`
}

// Open creates or opens the database at path. ":memory:" is accepted.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errdef.Wrap(errdef.CodeFilesystem, err, "create index dir")
		}
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeIndex, err, "open index %s", path)
	}
	// A single connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, errdef.Wrap(errdef.CodeIndex, err, "enable foreign keys")
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errdef.Wrap(errdef.CodeIndex, err, "init index schema")
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Put replaces everything stored for path with the nodes of o.
func (s *Store) Put(ctx context.Context, path, fingerprint string, o *outline.Outline) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errdef.Wrap(errdef.CodeIndex, err, "begin index update")
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, tx.Rollback())
		}
	}()

	_, err = tx.ExecContext(ctx, `
	INSERT INTO files (path, fingerprint, indexed_at) VALUES (?, ?, ?)
	ON CONFLICT(path) DO UPDATE SET
		fingerprint=excluded.fingerprint,
		indexed_at=excluded.indexed_at
	`, path, fingerprint, s.now().Unix())
	if err != nil {
		return errdef.Wrap(errdef.CodeIndex, err, "store file %s", path)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM elements WHERE path = ?`, path); err != nil {
		return errdef.Wrap(errdef.CodeIndex, err, "clear elements of %s", path)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO elements (path, kind, name, label, method, url, start_line, end_line)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return errdef.Wrap(errdef.CodeIndex, err, "prepare element insert")
	}
	defer stmt.Close()

	for _, n := range o.Nodes() {
		_, err = stmt.ExecContext(ctx,
			path,
			n.Kind.String(),
			n.Name,
			n.Label,
			n.Method,
			n.URL,
			n.Range.Start.Line,
			n.Range.End.Line,
		)
		if err != nil {
			return errdef.Wrap(errdef.CodeIndex, err, "store element %s of %s", n.ID, path)
		}
	}

	if err = tx.Commit(); err != nil {
		return errdef.Wrap(errdef.CodeIndex, err, "commit index update")
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, path string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM files WHERE path = ?`, path); err != nil {
		return errdef.Wrap(errdef.CodeIndex, err, "remove %s", path)
	}
	return nil
}

// Fingerprint returns the stored fingerprint of path, or "" when the file
// has not been indexed.
func (s *Store) Fingerprint(ctx context.Context, path string) (string, error) {
	var fp string
	err := s.db.QueryRowContext(ctx, `SELECT fingerprint FROM files WHERE path = ?`, path).Scan(&fp)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", errdef.Wrap(errdef.CodeIndex, err, "read fingerprint of %s", path)
	}
	return fp, nil
}

func (s *Store) Files(ctx context.Context) ([]File, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path, fingerprint, indexed_at FROM files ORDER BY path`)
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeIndex, err, "list indexed files")
	}
	defer rows.Close()

	var out []File
	for rows.Next() {
		var (
			f  File
			ts int64
		)
		if err := rows.Scan(&f.Path, &f.Fingerprint, &ts); err != nil {
			return nil, errdef.Wrap(errdef.CodeIndex, err, "scan indexed file")
		}
		f.IndexedAt = time.Unix(ts, 0)
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, errdef.Wrap(errdef.CodeIndex, err, "list indexed files")
	}
	return out, nil
}

// Search matches query case-insensitively against label, name, url and
// method. Results are ordered by path then line.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errdef.New(errdef.CodeIndex, "empty search query")
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"

	rows, err := s.db.QueryContext(ctx, `
	SELECT path, kind, name, label, COALESCE(method, ''), COALESCE(url, ''), start_line, end_line
	FROM elements
	WHERE lower(label) LIKE ? ESCAPE '\'
	   OR lower(name) LIKE ? ESCAPE '\'
	   OR lower(COALESCE(url, '')) LIKE ? ESCAPE '\'
	   OR lower(COALESCE(method, '')) LIKE ? ESCAPE '\'
	ORDER BY path, start_line
	LIMIT ?
	`, pattern, pattern, pattern, pattern, limit)
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeIndex, err, "search %q", query)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		if err := rows.Scan(&h.Path, &h.Kind, &h.Name, &h.Label, &h.Method, &h.URL, &h.StartLine, &h.EndLine); err != nil {
			return nil, errdef.Wrap(errdef.CodeIndex, err, "scan search hit")
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	return hits, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
