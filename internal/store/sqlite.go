package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/taxon-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	dataset     TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	counts      TEXT NOT NULL DEFAULT '{}',
	started_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	finished_at DATETIME
);

CREATE TABLE IF NOT EXISTS handoffs (
	id              TEXT PRIMARY KEY,
	taxon_id        INTEGER NOT NULL,
	scientific_name TEXT NOT NULL,
	common_name     TEXT NOT NULL,
	edit_url        TEXT NOT NULL,
	note            TEXT NOT NULL DEFAULT '',
	auto_submit     INTEGER NOT NULL DEFAULT 0,
	status          TEXT NOT NULL DEFAULT 'pending',
	created_at      DATETIME NOT NULL DEFAULT (datetime('now')),
	submitted_at    DATETIME,
	UNIQUE (taxon_id, common_name)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_dataset ON runs(dataset);
CREATE INDEX IF NOT EXISTS idx_handoffs_status ON handoffs(status);
`

const handoffColumns = `id, taxon_id, scientific_name, common_name, edit_url, note, auto_submit, status, created_at, submitted_at`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, dataset string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, dataset, status, counts, started_at) VALUES (?, ?, ?, ?, ?)`,
		id, dataset, string(model.RunStatusRunning), "{}", now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Dataset:   dataset,
		Status:    model.RunStatusRunning,
		StartedAt: now,
	}, nil
}

func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, status model.RunStatus, counts model.RunCounts) error {
	countsJSON, err := json.Marshal(counts)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal counts")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, counts = ?, finished_at = ? WHERE id = ?`,
		string(status), string(countsJSON), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, dataset, status, counts, started_at, finished_at FROM runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, dataset, status, counts, started_at, finished_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Dataset != "" {
		query += ` AND dataset = ?`
		args = append(args, filter.Dataset)
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limitOrDefault(filter.Limit))

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) SaveHandoff(ctx context.Context, h *model.Handoff) (bool, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO handoffs (id, taxon_id, scientific_name, common_name, edit_url, note, auto_submit, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (taxon_id, common_name) DO NOTHING`,
		id, h.TaxonID, h.ScientificName, h.CommonName, h.EditURL, h.Note, h.AutoSubmit, string(model.HandoffPending), now,
	)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: insert handoff %d", h.TaxonID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 1 {
		h.ID = id
		h.Status = model.HandoffPending
		h.CreatedAt = now
		h.SubmittedAt = nil
		return true, nil
	}

	existing, err := scanHandoff(s.db.QueryRowContext(ctx,
		`SELECT `+handoffColumns+` FROM handoffs WHERE taxon_id = ? AND common_name = ?`,
		h.TaxonID, h.CommonName,
	))
	if err != nil {
		return false, err
	}
	*h = *existing
	return false, nil
}

func (s *SQLiteStore) GetHandoff(ctx context.Context, id string) (*model.Handoff, error) {
	return scanHandoff(s.db.QueryRowContext(ctx,
		`SELECT `+handoffColumns+` FROM handoffs WHERE id = ?`, id,
	))
}

func (s *SQLiteStore) ListHandoffs(ctx context.Context, filter HandoffFilter) ([]model.Handoff, error) {
	query := `SELECT ` + handoffColumns + ` FROM handoffs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at ASC LIMIT ?`
	args = append(args, limitOrDefault(filter.Limit))

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list handoffs")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Handoff
	for rows.Next() {
		h, err := scanHandoff(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *h)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list handoffs iterate")
}

func (s *SQLiteStore) MarkHandoffSubmitted(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE handoffs SET status = ?, submitted_at = COALESCE(submitted_at, ?) WHERE id = ?`,
		string(model.HandoffSubmitted), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: mark handoff submitted %s", id)
	}
	return checkRowsAffected(res, "handoff", id)
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var countsJSON string
	var finished sql.NullTime

	err := row.Scan(&r.ID, &r.Dataset, &r.Status, &countsJSON, &r.StartedAt, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrap(ErrNotFound, "run")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	if err := json.Unmarshal([]byte(countsJSON), &r.Counts); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal counts")
	}
	if finished.Valid {
		t := finished.Time
		r.FinishedAt = &t
	}
	return &r, nil
}

func scanHandoff(row scannable) (*model.Handoff, error) {
	var h model.Handoff
	var submitted sql.NullTime

	err := row.Scan(&h.ID, &h.TaxonID, &h.ScientificName, &h.CommonName, &h.EditURL,
		&h.Note, &h.AutoSubmit, &h.Status, &h.CreatedAt, &submitted)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrap(ErrNotFound, "handoff")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan handoff")
	}
	if submitted.Valid {
		t := submitted.Time
		h.SubmittedAt = &t
	}
	return &h, nil
}
