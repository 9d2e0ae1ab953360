package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/taxon-cli/internal/db"
	"github.com/sells-group/taxon-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

var handoffInsert = db.InsertConfig{
	Table: "handoffs",
	Columns: []string{
		"id", "taxon_id", "scientific_name", "common_name", "edit_url",
		"note", "auto_submit", "status", "created_at",
	},
	ConflictKeys: []string{"taxon_id", "common_name"},
}

// preparedStatements lists queries to prepare on each new connection.
var preparedStatements = map[string]string{
	"insert_run":  `INSERT INTO runs (id, dataset, status, counts, started_at) VALUES ($1, $2, $3, $4, $5)`,
	"finish_run":  `UPDATE runs SET status = $1, counts = $2, finished_at = $3 WHERE id = $4`,
	"get_run":     `SELECT id, dataset, status, counts, started_at, finished_at FROM runs WHERE id = $1`,
	"get_handoff": `SELECT ` + handoffColumns + ` FROM handoffs WHERE id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	dataset     TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	counts      JSONB NOT NULL DEFAULT '{}'::jsonb,
	started_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS handoffs (
	id              TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	taxon_id        BIGINT NOT NULL,
	scientific_name TEXT NOT NULL,
	common_name     TEXT NOT NULL,
	edit_url        TEXT NOT NULL,
	note            TEXT NOT NULL DEFAULT '',
	auto_submit     BOOLEAN NOT NULL DEFAULT false,
	status          TEXT NOT NULL DEFAULT 'pending',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	submitted_at    TIMESTAMPTZ,
	UNIQUE (taxon_id, common_name)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_dataset ON runs(dataset);
CREATE INDEX IF NOT EXISTS idx_handoffs_status ON handoffs(status);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, dataset string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, dataset, status, counts, started_at) VALUES ($1, $2, $3, $4, $5)`,
		id, dataset, string(model.RunStatusRunning), []byte("{}"), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		Dataset:   dataset,
		Status:    model.RunStatusRunning,
		StartedAt: now,
	}, nil
}

func (s *PostgresStore) FinishRun(ctx context.Context, runID string, status model.RunStatus, counts model.RunCounts) error {
	countsJSON, err := json.Marshal(counts)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal counts")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, counts = $2, finished_at = $3 WHERE id = $4`,
		string(status), countsJSON, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	r, err := scanPgRun(s.pool.QueryRow(ctx,
		`SELECT id, dataset, status, counts, started_at, finished_at FROM runs WHERE id = $1`,
		runID,
	))
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, dataset, status, counts, started_at, finished_at FROM runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.Dataset != "" {
		query += fmt.Sprintf(` AND dataset = $%d`, argIdx)
		args = append(args, filter.Dataset)
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY started_at DESC LIMIT $%d`, argIdx)
	args = append(args, limitOrDefault(filter.Limit))
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanPgRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: list runs")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) SaveHandoff(ctx context.Context, h *model.Handoff) (bool, error) {
	sql, err := db.InsertIgnoreSQL(handoffInsert)
	if err != nil {
		return false, err
	}

	id := uuid.New().String()
	now := time.Now().UTC()
	tag, err := s.pool.Exec(ctx, sql,
		id, h.TaxonID, h.ScientificName, h.CommonName, h.EditURL,
		h.Note, h.AutoSubmit, string(model.HandoffPending), now,
	)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: insert handoff %d", h.TaxonID)
	}
	if tag.RowsAffected() == 1 {
		h.ID = id
		h.Status = model.HandoffPending
		h.CreatedAt = now
		h.SubmittedAt = nil
		return true, nil
	}

	existing, err := scanPgHandoff(s.pool.QueryRow(ctx,
		`SELECT `+handoffColumns+` FROM handoffs WHERE taxon_id = $1 AND common_name = $2`,
		h.TaxonID, h.CommonName,
	))
	if err != nil {
		return false, eris.Wrapf(err, "postgres: load existing handoff %d", h.TaxonID)
	}
	*h = *existing
	return false, nil
}

func (s *PostgresStore) GetHandoff(ctx context.Context, id string) (*model.Handoff, error) {
	h, err := scanPgHandoff(s.pool.QueryRow(ctx,
		`SELECT `+handoffColumns+` FROM handoffs WHERE id = $1`, id,
	))
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get handoff %s", id)
	}
	return h, nil
}

func (s *PostgresStore) ListHandoffs(ctx context.Context, filter HandoffFilter) ([]model.Handoff, error) {
	query := `SELECT ` + handoffColumns + ` FROM handoffs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY created_at ASC LIMIT $%d`, argIdx)
	args = append(args, limitOrDefault(filter.Limit))
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list handoffs")
	}
	defer rows.Close()

	var out []model.Handoff
	for rows.Next() {
		h, err := scanPgHandoff(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: list handoffs")
		}
		out = append(out, *h)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list handoffs iterate")
}

func (s *PostgresStore) MarkHandoffSubmitted(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE handoffs SET status = $1, submitted_at = COALESCE(submitted_at, $2) WHERE id = $3`,
		string(model.HandoffSubmitted), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: mark handoff submitted %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "handoff %s", id)
	}
	return nil
}

func scanPgRun(row pgx.Row) (*model.Run, error) {
	var r model.Run
	var status string
	var countsJSON []byte

	err := row.Scan(&r.ID, &r.Dataset, &status, &countsJSON, &r.StartedAt, &r.FinishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrap(ErrNotFound, "run")
	}
	if err != nil {
		return nil, eris.Wrap(err, "scan run")
	}
	r.Status = model.RunStatus(status)
	if len(countsJSON) > 0 {
		if err := json.Unmarshal(countsJSON, &r.Counts); err != nil {
			return nil, eris.Wrap(err, "unmarshal counts")
		}
	}
	return &r, nil
}

func scanPgHandoff(row pgx.Row) (*model.Handoff, error) {
	var h model.Handoff
	var status string

	err := row.Scan(&h.ID, &h.TaxonID, &h.ScientificName, &h.CommonName, &h.EditURL,
		&h.Note, &h.AutoSubmit, &status, &h.CreatedAt, &h.SubmittedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrap(ErrNotFound, "handoff")
	}
	if err != nil {
		return nil, eris.Wrap(err, "scan handoff")
	}
	h.Status = model.HandoffStatus(status)
	return &h, nil
}
