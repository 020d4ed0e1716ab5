package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dqi-engine/internal/model"
)

var fixedNow = time.Date(2026, 6, 1, 9, 30, 0, 0, time.UTC)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := newPostgresStore(mock)
	s.now = func() time.Time { return fixedNow }
	return s, mock
}

func TestPostgresStore_PutProperty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`(?s)INSERT INTO properties .* ON CONFLICT \(id\) DO UPDATE .* RETURNING created_at, updated_at`).
		WithArgs("la-1", pgxmock.AnyArg(), fixedNow).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(fixedNow.Add(-time.Hour), fixedNow))

	rec, err := s.PutProperty(context.Background(), "la-1", model.RawProperty{"price": 1.0})
	require.NoError(t, err)
	assert.Equal(t, fixedNow.Add(-time.Hour), rec.CreatedAt)
	assert.Equal(t, fixedNow, rec.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetProperty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, payload, created_at, updated_at FROM properties WHERE id = \$1`).
		WithArgs("la-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "payload", "created_at", "updated_at"}).
			AddRow("la-1", []byte(`{"type":"Office"}`), fixedNow, fixedNow))

	rec, err := s.GetProperty(context.Background(), "la-1")
	require.NoError(t, err)
	assert.Equal(t, "Office", rec.Raw["type"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetProperty_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, payload, created_at, updated_at FROM properties`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetProperty(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_PutProperties_BulkUpsert(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_stage_properties"}, []string{"id", "payload", "created_at", "updated_at"}).
		WillReturnResult(2)
	mock.ExpectExec(`ON CONFLICT \("id"\) DO UPDATE SET "payload" = EXCLUDED."payload", "updated_at" = EXCLUDED."updated_at"`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	n, err := s.PutProperties(context.Background(), []PropertyRecord{
		{ID: "a", Raw: model.RawProperty{"price": 1.0}},
		{ID: "b", Raw: model.RawProperty{"price": 2.0}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveAnalysis(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO analyses \(id, property_id, overall_score, rating, payload, created_at\)`).
		WithArgs(pgxmock.AnyArg(), "la-1", 74, "Fair", pgxmock.AnyArg(), fixedNow).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	saved, err := s.SaveAnalysis(context.Background(), sampleAnalysis("la-1", 74, model.RatingFair))
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveAnalyses_Copy(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectCopyFrom(pgx.Identifier{"analyses"}, analysisColumns).WillReturnResult(2)

	saved, err := s.SaveAnalyses(context.Background(), []*model.DQIAnalysis{
		sampleAnalysis("la-1", 74, model.RatingFair),
		sampleAnalysis("la-2", 59, model.RatingPoor),
	})
	require.NoError(t, err)
	require.Len(t, saved, 2)
	assert.Equal(t, "la-2", saved[1].PropertyID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveAnalyses_CopyError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectCopyFrom(pgx.Identifier{"analyses"}, analysisColumns).WillReturnError(fmt.Errorf("connection reset"))

	_, err := s.SaveAnalyses(context.Background(), []*model.DQIAnalysis{sampleAnalysis("la-1", 74, model.RatingFair)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: save analyses")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetAnalysis(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	payload, err := json.Marshal(sampleAnalysis("la-1", 74, model.RatingFair))
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT payload FROM analyses WHERE id = \$1`).
		WithArgs("a-1").
		WillReturnRows(pgxmock.NewRows([]string{"payload"}).AddRow(payload))

	a, err := s.GetAnalysis(context.Background(), "a-1")
	require.NoError(t, err)
	assert.Equal(t, 74, a.OverallScore)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetAnalysis_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT payload FROM analyses`).
		WithArgs("nope").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetAnalysis(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListAnalyses(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	p1, _ := json.Marshal(sampleAnalysis("la-1", 74, model.RatingFair))
	p2, _ := json.Marshal(sampleAnalysis("la-1", 59, model.RatingPoor))

	mock.ExpectQuery(`SELECT payload FROM analyses WHERE true AND property_id = \$1 ORDER BY created_at DESC LIMIT \$2 OFFSET \$3`).
		WithArgs("la-1", DefaultListLimit, 0).
		WillReturnRows(pgxmock.NewRows([]string{"payload"}).AddRow(p1).AddRow(p2))

	list, err := s.ListAnalyses(context.Background(), AnalysisFilter{PropertyID: "la-1"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, model.RatingPoor, list[1].Rating)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListAnalyses_RatingFilter(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`WHERE true AND rating = \$1 ORDER BY created_at DESC LIMIT \$2 OFFSET \$3`).
		WithArgs("Good", 10, 20).
		WillReturnRows(pgxmock.NewRows([]string{"payload"}))

	list, err := s.ListAnalyses(context.Background(), AnalysisFilter{Rating: model.RatingGood, Limit: 10, Offset: 20})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_MigrateAndPing(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS properties`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`SELECT 1`).WillReturnResult(pgxmock.NewResult("SELECT", 1))

	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, s.Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
