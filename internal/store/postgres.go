package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/dqi-engine/internal/db"
	"github.com/sells-group/dqi-engine/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
	now     func() time.Time
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements are prepared on each new connection.
var preparedStatements = map[string]string{
	"upsert_property": pgUpsertProperty,
	"get_property":    `SELECT id, payload, created_at, updated_at FROM properties WHERE id = $1`,
	"insert_analysis": pgInsertAnalysis,
	"get_analysis":    `SELECT payload FROM analyses WHERE id = $1`,
}

const (
	pgUpsertProperty = `INSERT INTO properties (id, payload, created_at, updated_at) VALUES ($1, $2, $3, $3)
ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at
RETURNING created_at, updated_at`
	pgInsertAnalysis = `INSERT INTO analyses (id, property_id, overall_score, rating, payload, created_at) VALUES ($1, $2, $3, $4, $5, $6)`
)

// analysisColumns is the COPY column order for SaveAnalyses.
var analysisColumns = []string{"id", "property_id", "overall_score", "rating", "payload", "created_at"}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
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
	return newPostgresStore(pool), nil
}

func newPostgresStore(pool db.Pool) *PostgresStore {
	return &PostgresStore{
		pool:    pool,
		closeFn: pool.Close,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS properties (
	id         TEXT PRIMARY KEY,
	payload    JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS analyses (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	property_id   TEXT NOT NULL,
	overall_score INTEGER NOT NULL CHECK (overall_score BETWEEN 0 AND 100),
	rating        TEXT NOT NULL,
	payload       JSONB NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_analyses_property ON analyses(property_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_analyses_rating ON analyses(rating);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
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

func (s *PostgresStore) PutProperty(ctx context.Context, id string, raw model.RawProperty) (*PropertyRecord, error) {
	payload, err := json.Marshal(raw)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal property")
	}

	rec := &PropertyRecord{ID: id, Raw: raw}
	err = s.pool.QueryRow(ctx, pgUpsertProperty, id, payload, s.now()).Scan(&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: upsert property %s", id)
	}
	return rec, nil
}

func (s *PostgresStore) PutProperties(ctx context.Context, recs []PropertyRecord) (int64, error) {
	now := s.now()
	rows := make([][]any, 0, len(recs))
	for _, r := range recs {
		payload, err := json.Marshal(r.Raw)
		if err != nil {
			return 0, eris.Wrapf(err, "postgres: marshal property %s", r.ID)
		}
		rows = append(rows, []any{r.ID, payload, now, now})
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "properties",
		Columns:      []string{"id", "payload", "created_at", "updated_at"},
		ConflictKeys: []string{"id"},
		UpdateCols:   []string{"payload", "updated_at"},
	}, rows)
	return n, eris.Wrap(err, "postgres: put properties")
}

func (s *PostgresStore) GetProperty(ctx context.Context, id string) (*PropertyRecord, error) {
	var rec PropertyRecord
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, payload, created_at, updated_at FROM properties WHERE id = $1`, id,
	).Scan(&rec.ID, &payload, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound("property", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get property %s", id)
	}
	if err := json.Unmarshal(payload, &rec.Raw); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal property")
	}
	return &rec, nil
}

func (s *PostgresStore) SaveAnalysis(ctx context.Context, a *model.DQIAnalysis) (*model.DQIAnalysis, error) {
	stored, payload, err := prepareAnalysis(a)
	if err != nil {
		return nil, err
	}
	_, err = s.pool.Exec(ctx, pgInsertAnalysis,
		stored.ID, stored.PropertyID, stored.OverallScore, string(stored.Rating), payload, s.now(),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert analysis for %s", stored.PropertyID)
	}
	return stored, nil
}

// SaveAnalyses writes analyses with a single COPY.
func (s *PostgresStore) SaveAnalyses(ctx context.Context, as []*model.DQIAnalysis) ([]*model.DQIAnalysis, error) {
	now := s.now()
	saved := make([]*model.DQIAnalysis, 0, len(as))
	rows := make([][]any, 0, len(as))
	for _, a := range as {
		stored, payload, err := prepareAnalysis(a)
		if err != nil {
			return nil, err
		}
		saved = append(saved, stored)
		rows = append(rows, []any{stored.ID, stored.PropertyID, stored.OverallScore, string(stored.Rating), payload, now})
	}

	if _, err := db.AppendRows(ctx, s.pool, "analyses", analysisColumns, rows); err != nil {
		return nil, eris.Wrap(err, "postgres: save analyses")
	}
	return saved, nil
}

func (s *PostgresStore) GetAnalysis(ctx context.Context, id string) (*model.DQIAnalysis, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, `SELECT payload FROM analyses WHERE id = $1`, id).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound("analysis", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get analysis %s", id)
	}
	return decodeAnalysis(payload)
}

func (s *PostgresStore) ListAnalyses(ctx context.Context, filter AnalysisFilter) ([]model.DQIAnalysis, error) {
	query := `SELECT payload FROM analyses WHERE true`
	var args []any
	argN := 1

	if filter.PropertyID != "" {
		query += fmt.Sprintf(` AND property_id = $%d`, argN)
		args = append(args, filter.PropertyID)
		argN++
	}
	if filter.Rating != "" {
		query += fmt.Sprintf(` AND rating = $%d`, argN)
		args = append(args, string(filter.Rating))
		argN++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, argN, argN+1)
	args = append(args, listLimit(filter), filter.Offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list analyses")
	}
	defer rows.Close()

	out := []model.DQIAnalysis{}
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "postgres: scan analysis")
		}
		a, err := decodeAnalysis(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate analyses")
}
