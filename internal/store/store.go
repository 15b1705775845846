// Package store persists parameter presets and render history in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/gogpu/stereo"
)

// ErrNotFound is returned when a preset does not exist.
var ErrNotFound = errors.New("store: not found")

// Store wraps SQLite-backed persistence for presets and render runs.
type Store struct {
	DB *sql.DB
}

// Preset is a named parameter set.
type Preset struct {
	ID      string
	Name    string
	Params  stereo.Params
	Created time.Time
	Updated time.Time
}

// Run is one row of render history.
type Run struct {
	ID      string
	Time    time.Time
	Command string
	Left    string
	Right   string
	Output  string
	Width   int
	Height  int
	Bytes   int64
	Elapsed time.Duration
	Error   string
}

// New opens (or creates) the database at path and ensures schema.
func New(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	s := &Store{DB: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.DB.Close()
}

func (s *Store) ensureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS presets (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL UNIQUE,
            params_json TEXT NOT NULL,
            created_at INTEGER NOT NULL,
            updated_at INTEGER NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS render_runs (
            id TEXT PRIMARY KEY,
            run_at INTEGER NOT NULL,
            command TEXT NOT NULL,
            left_path TEXT,
            right_path TEXT,
            output_path TEXT,
            width INTEGER,
            height INTEGER,
            bytes INTEGER,
            elapsed_ns INTEGER,
            error_message TEXT
        );`,
		`CREATE INDEX IF NOT EXISTS idx_render_runs_run_at ON render_runs(run_at);`,
	}
	for _, q := range stmts {
		if _, err := s.DB.Exec(q); err != nil {
			return fmt.Errorf("store: schema: %w", err)
		}
	}
	return nil
}

// SavePreset creates or replaces the preset called name.
func (s *Store) SavePreset(ctx context.Context, name string, p stereo.Params) error {
	if name == "" {
		return errors.New("store: empty preset name")
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("store: encode preset %q: %w", name, err)
	}
	now := time.Now().UnixNano()
	_, err = s.DB.ExecContext(ctx,
		`INSERT INTO presets (id, name, params_json, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(name) DO UPDATE SET params_json = excluded.params_json, updated_at = excluded.updated_at`,
		uuid.NewString(), name, string(data), now, now)
	if err != nil {
		return fmt.Errorf("store: save preset %q: %w", name, err)
	}
	return nil
}

// Preset loads the preset called name.
func (s *Store) Preset(ctx context.Context, name string) (*Preset, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT id, name, params_json, created_at, updated_at FROM presets WHERE name = ?`, name)
	p, err := scanPreset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: preset %q", ErrNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Presets lists all presets ordered by name.
func (s *Store) Presets(ctx context.Context) ([]*Preset, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, name, params_json, created_at, updated_at FROM presets ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Preset
	for rows.Next() {
		p, err := scanPreset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeletePreset removes the preset called name.
func (s *Store) DeletePreset(ctx context.Context, name string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM presets WHERE name = ?`, name)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: preset %q", ErrNotFound, name)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPreset(sc scanner) (*Preset, error) {
	var (
		p                Preset
		data             string
		created, updated int64
	)
	if err := sc.Scan(&p.ID, &p.Name, &data, &created, &updated); err != nil {
		return nil, err
	}
	p.Params = stereo.DefaultParams()
	if err := json.Unmarshal([]byte(data), &p.Params); err != nil {
		return nil, fmt.Errorf("store: decode preset %q: %w", p.Name, err)
	}
	p.Created = time.Unix(0, created)
	p.Updated = time.Unix(0, updated)
	return &p, nil
}

// RecordRun appends a render to the history. A zero ID or Time is filled in.
func (s *Store) RecordRun(ctx context.Context, r Run) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Time.IsZero() {
		r.Time = time.Now()
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO render_runs (id, run_at, command, left_path, right_path, output_path, width, height, bytes, elapsed_ns, error_message)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Time.UnixNano(), r.Command, r.Left, r.Right, r.Output,
		r.Width, r.Height, r.Bytes, int64(r.Elapsed), r.Error)
	if err != nil {
		return fmt.Errorf("store: record run %s: %w", r.ID, err)
	}
	return nil
}

// Runs returns the most recent runs, newest first. limit <= 0 returns all.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, run_at, command, left_path, right_path, output_path, width, height, bytes, elapsed_ns, error_message
         FROM render_runs ORDER BY run_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r           Run
			at, elapsed int64
		)
		if err := rows.Scan(&r.ID, &at, &r.Command, &r.Left, &r.Right, &r.Output,
			&r.Width, &r.Height, &r.Bytes, &elapsed, &r.Error); err != nil {
			return nil, err
		}
		r.Time = time.Unix(0, at)
		r.Elapsed = time.Duration(elapsed)
		out = append(out, r)
	}
	return out, rows.Err()
}
