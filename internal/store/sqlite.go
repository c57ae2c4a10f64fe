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

	"github.com/rjrizani/zyte-api-training/internal/model"
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
	id           TEXT PRIMARY KEY,
	recipe       TEXT NOT NULL,
	start_url    TEXT NOT NULL,
	params       TEXT NOT NULL DEFAULT '{}',
	status       TEXT NOT NULL DEFAULT 'running',
	reason       TEXT NOT NULL DEFAULT '',
	steps        INTEGER NOT NULL DEFAULT 0,
	attempts     INTEGER NOT NULL DEFAULT 0,
	record_count INTEGER NOT NULL DEFAULT 0,
	skipped      INTEGER NOT NULL DEFAULT 0,
	last_failure TEXT NOT NULL DEFAULT '',
	records      TEXT,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	finished_at  DATETIME
);

CREATE INDEX IF NOT EXISTS idx_runs_recipe ON runs(recipe);
CREATE INDEX IF NOT EXISTS idx_runs_reason ON runs(reason);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, in NewRun) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	paramsJSON, err := marshalParams(in.Params)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, recipe, start_url, params, status, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, in.Recipe, in.StartURL, string(paramsJSON), string(model.RunStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Recipe:    in.Recipe,
		StartURL:  in.StartURL,
		Params:    in.Params,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
	}, nil
}

func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, out model.RunOutcome) error {
	var records any
	if len(out.Records) > 0 {
		records = string(out.Records)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, reason = ?, steps = ?, attempts = ?, record_count = ?, skipped = ?,
		 last_failure = ?, records = ?, finished_at = ? WHERE id = ?`,
		string(model.RunStatusCompleted), out.Reason, out.Steps, out.Attempts, out.RecordCount, out.Skipped,
		out.LastFailure, records, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %s", runID)
	}
	return checkRowsAffected(res, runID)
}

const sqliteRunColumns = `id, recipe, start_url, params, status, reason, steps, attempts, record_count, skipped, last_failure, created_at, finished_at`

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteRunColumns+`, records FROM runs WHERE id = ?`,
		runID,
	)

	var records sql.NullString
	r, err := scanRun(row, &records)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}
	if records.Valid {
		r.Records = json.RawMessage(records.String)
	}
	return r, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT ` + sqliteRunColumns + ` FROM runs WHERE 1=1`
	var args []any

	if filter.Recipe != "" {
		query += ` AND recipe = ?`
		args = append(args, filter.Recipe)
	}
	if filter.Reason != "" {
		query += ` AND reason = ?`
		args = append(args, filter.Reason)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, listLimit(filter.Limit))

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
			return nil, eris.Wrap(err, "sqlite: list runs")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

// helpers

func checkRowsAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "run %s", id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

// scanRun reads sqliteRunColumns followed by any extra destinations.
func scanRun(row scannable, extra ...any) (*model.Run, error) {
	var r model.Run
	var paramsJSON, status string
	var finished sql.NullTime

	dest := []any{
		&r.ID, &r.Recipe, &r.StartURL, &paramsJSON, &status, &r.Reason,
		&r.Steps, &r.Attempts, &r.RecordCount, &r.Skipped, &r.LastFailure,
		&r.CreatedAt, &finished,
	}
	err := row.Scan(append(dest, extra...)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "scan run")
	}

	r.Status = model.RunStatus(status)
	if finished.Valid {
		t := finished.Time
		r.FinishedAt = &t
	}
	if err := unmarshalParams([]byte(paramsJSON), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func marshalParams(params map[string]string) ([]byte, error) {
	if params == nil {
		params = map[string]string{}
	}
	b, err := json.Marshal(params)
	return b, eris.Wrap(err, "marshal params")
}

func unmarshalParams(data []byte, r *model.Run) error {
	if len(data) == 0 {
		return nil
	}
	var params map[string]string
	if err := json.Unmarshal(data, &params); err != nil {
		return eris.Wrap(err, "unmarshal params")
	}
	if len(params) > 0 {
		r.Params = params
	}
	return nil
}
