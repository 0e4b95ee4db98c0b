package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/variance-cli/internal/model"
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
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	source      TEXT NOT NULL,
	row_count   INTEGER NOT NULL,
	summary     TEXT NOT NULL,
	explanation TEXT,
	forecast    TEXT,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_runs_source ON runs(source);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run *model.Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	summaryJSON, explanationJSON, forecastJSON, err := marshalRunPayload(run)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, source, row_count, summary, explanation, forecast, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Source, run.RowCount, summaryJSON, explanationJSON, forecastJSON, run.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert run")
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source, row_count, summary, explanation, forecast, created_at FROM runs WHERE id = ?`,
		id,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, source, row_count, summary, explanation, forecast, created_at FROM runs WHERE 1=1`
	var args []any

	if filter.Source != "" {
		query += ` AND source = ?`
		args = append(args, filter.Source)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

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

// helpers

// marshalRunPayload serializes the JSON columns shared by both drivers.
func marshalRunPayload(run *model.Run) (summary string, explanation, forecast *string, err error) {
	b, err := json.Marshal(run.Summary)
	if err != nil {
		return "", nil, nil, eris.Wrap(err, "store: marshal summary")
	}
	summary = string(b)

	if run.Explanation != nil {
		b, err := json.Marshal(run.Explanation)
		if err != nil {
			return "", nil, nil, eris.Wrap(err, "store: marshal explanation")
		}
		s := string(b)
		explanation = &s
	}
	if run.Forecast != nil {
		b, err := json.Marshal(run.Forecast)
		if err != nil {
			return "", nil, nil, eris.Wrap(err, "store: marshal forecast")
		}
		s := string(b)
		forecast = &s
	}
	return summary, explanation, forecast, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var summaryJSON string
	var explanationJSON, forecastJSON sql.NullString

	err := row.Scan(&r.ID, &r.Source, &r.RowCount, &summaryJSON, &explanationJSON, &forecastJSON, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: scan run")
	}

	if err := unmarshalRunPayload(&r, summaryJSON, explanationJSON, forecastJSON); err != nil {
		return nil, err
	}
	return &r, nil
}

func unmarshalRunPayload(r *model.Run, summaryJSON string, explanationJSON, forecastJSON sql.NullString) error {
	if err := json.Unmarshal([]byte(summaryJSON), &r.Summary); err != nil {
		return eris.Wrap(err, "store: unmarshal summary")
	}
	if explanationJSON.Valid {
		if err := json.Unmarshal([]byte(explanationJSON.String), &r.Explanation); err != nil {
			return eris.Wrap(err, "store: unmarshal explanation")
		}
	}
	if forecastJSON.Valid {
		if err := json.Unmarshal([]byte(forecastJSON.String), &r.Forecast); err != nil {
			return eris.Wrap(err, "store: unmarshal forecast")
		}
	}
	return nil
}
