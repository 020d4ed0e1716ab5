package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendRows_Empty(t *testing.T) {
	n, err := AppendRows(context.TODO(), nil, "analyses", []string{"id", "payload"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestAppendRows_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"analyses"}, []string{"id", "score"}).WillReturnResult(3)

	rows := [][]any{{"a", 74}, {"b", 59}, {"c", 82}}
	n, err := AppendRows(context.Background(), mock, "analyses", []string{"id", "score"}, rows)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendRows_ShortCopy(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"analyses"}, []string{"id"}).WillReturnResult(1)

	n, err := AppendRows(context.Background(), mock, "analyses", []string{"id"}, [][]any{{"a"}, {"b"}})
	require.Error(t, err)
	assert.Equal(t, int64(1), n)
	assert.Contains(t, err.Error(), "copied 1 of 2 rows")
}

func TestAppendRows_RowWidth(t *testing.T) {
	_, err := AppendRows(context.Background(), nil, "analyses", []string{"id", "score"}, [][]any{{"a", 74}, {"b"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 1 has 1 values, want 2")

	_, err = AppendRows(context.Background(), nil, "analyses", nil, [][]any{{"a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")
}

func TestAppendRows_SchemaQualified(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"dqi", "analyses"}, []string{"id"}).WillReturnError(fmt.Errorf("permission denied"))

	_, err = AppendRows(context.Background(), mock, "dqi.analyses", []string{"id"}, [][]any{{"a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db: append dqi.analyses")
	assert.NoError(t, mock.ExpectationsWereMet())
}
