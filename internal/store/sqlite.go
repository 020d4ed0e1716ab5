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

	"github.com/sells-group/dqi-engine/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
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
	return &SQLiteStore{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS properties (
	id         TEXT PRIMARY KEY,
	payload    TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS analyses (
	id            TEXT PRIMARY KEY,
	property_id   TEXT NOT NULL,
	overall_score INTEGER NOT NULL,
	rating        TEXT NOT NULL,
	payload       TEXT NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_analyses_property ON analyses(property_id, created_at);
CREATE INDEX IF NOT EXISTS idx_analyses_rating ON analyses(rating);
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

const sqliteUpsertProperty = `INSERT INTO properties (id, payload, created_at, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`

func (s *SQLiteStore) PutProperty(ctx context.Context, id string, raw model.RawProperty) (*PropertyRecord, error) {
	payload, err := json.Marshal(raw)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal property")
	}
	now := s.now()
	if _, err := s.db.ExecContext(ctx, sqliteUpsertProperty, id, string(payload), now, now); err != nil {
		return nil, eris.Wrapf(err, "sqlite: upsert property %s", id)
	}
	return s.GetProperty(ctx, id)
}

func (s *SQLiteStore) PutProperties(ctx context.Context, recs []PropertyRecord) (int64, error) {
	if len(recs) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, sqliteUpsertProperty)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare property upsert")
	}
	defer stmt.Close() //nolint:errcheck

	now := s.now()
	for _, r := range recs {
		payload, err := json.Marshal(r.Raw)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: marshal property %s", r.ID)
		}
		if _, err := stmt.ExecContext(ctx, r.ID, string(payload), now, now); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert property %s", r.ID)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit properties")
	}
	return int64(len(recs)), nil
}

func (s *SQLiteStore) GetProperty(ctx context.Context, id string) (*PropertyRecord, error) {
	var rec PropertyRecord
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, payload, created_at, updated_at FROM properties WHERE id = ?`, id,
	).Scan(&rec.ID, &payload, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("property", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get property %s", id)
	}
	if err := json.Unmarshal([]byte(payload), &rec.Raw); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal property")
	}
	return &rec, nil
}

func (s *SQLiteStore) SaveAnalysis(ctx context.Context, a *model.DQIAnalysis) (*model.DQIAnalysis, error) {
	saved, err := s.SaveAnalyses(ctx, []*model.DQIAnalysis{a})
	if err != nil {
		return nil, err
	}
	return saved[0], nil
}

func (s *SQLiteStore) SaveAnalyses(ctx context.Context, as []*model.DQIAnalysis) ([]*model.DQIAnalysis, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	now := s.now()
	saved := make([]*model.DQIAnalysis, 0, len(as))
	for _, a := range as {
		stored, payload, err := prepareAnalysis(a)
		if err != nil {
			return nil, err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO analyses (id, property_id, overall_score, rating, payload, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			stored.ID, stored.PropertyID, stored.OverallScore, string(stored.Rating), string(payload), now,
		)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: insert analysis for %s", stored.PropertyID)
		}
		saved = append(saved, stored)
	}
	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit analyses")
	}
	return saved, nil
}

func (s *SQLiteStore) GetAnalysis(ctx context.Context, id string) (*model.DQIAnalysis, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM analyses WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("analysis", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get analysis %s", id)
	}
	return decodeAnalysis([]byte(payload))
}

func (s *SQLiteStore) ListAnalyses(ctx context.Context, filter AnalysisFilter) ([]model.DQIAnalysis, error) {
	query := `SELECT payload FROM analyses WHERE 1=1`
	var args []any
	if filter.PropertyID != "" {
		query += ` AND property_id = ?`
		args = append(args, filter.PropertyID)
	}
	if filter.Rating != "" {
		query += ` AND rating = ?`
		args = append(args, string(filter.Rating))
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`
	args = append(args, listLimit(filter), filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list analyses")
	}
	defer rows.Close() //nolint:errcheck

	out := []model.DQIAnalysis{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan analysis")
		}
		a, err := decodeAnalysis([]byte(payload))
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate analyses")
}

// helpers

// prepareAnalysis copies a under a fresh ID and encodes it.
func prepareAnalysis(a *model.DQIAnalysis) (*model.DQIAnalysis, []byte, error) {
	if a == nil {
		return nil, nil, eris.New("store: nil analysis")
	}
	stored := *a
	stored.ID = uuid.New().String()
	payload, err := json.Marshal(&stored)
	if err != nil {
		return nil, nil, eris.Wrap(err, "store: marshal analysis")
	}
	return &stored, payload, nil
}

func decodeAnalysis(payload []byte) (*model.DQIAnalysis, error) {
	var a model.DQIAnalysis
	if err := json.Unmarshal(payload, &a); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal analysis")
	}
	return &a, nil
}
