package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// AppendRows COPYs rows into an append-only table such as analyses. Every row
// must match columns in width; key collisions surface as the COPY error.
func AppendRows(ctx context.Context, pool Pool, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if err := checkRows(columns, rows); err != nil {
		return 0, eris.Wrapf(err, "db: append %s", table)
	}

	n, err := pool.CopyFrom(ctx, identifier(table), columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, eris.Wrapf(err, "db: append %s", table)
	}
	if n != int64(len(rows)) {
		return n, eris.Errorf("db: append %s: copied %d of %d rows", table, n, len(rows))
	}
	return n, nil
}

// checkRows rejects an empty column list and rows of the wrong width before
// anything reaches the server.
func checkRows(columns []string, rows [][]any) error {
	if len(columns) == 0 {
		return eris.New("no columns specified")
	}
	for i, r := range rows {
		if len(r) != len(columns) {
			return eris.Errorf("row %d has %d values, want %d", i, len(r), len(columns))
		}
	}
	return nil
}
