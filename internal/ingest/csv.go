package ingest

import (
	"context"
	"encoding/csv"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/dqi-engine/internal/model"
)

// CSVOptions configures the CSV reader.
type CSVOptions struct {
	Delimiter  rune // default ','
	Comment    rune // 0 disables comments
	LazyQuotes bool
}

// StreamCSV emits one payload per data row of a headed CSV, keyed by the
// header cells. Blank rows are skipped. Both channels close when the input
// is exhausted, ctx is done, or a row fails to parse.
func StreamCSV(ctx context.Context, r io.Reader, opts CSVOptions) (<-chan model.RawProperty, <-chan error) {
	out := make(chan model.RawProperty, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		reader := csv.NewReader(r)
		if opts.Delimiter != 0 {
			reader.Comma = opts.Delimiter
		}
		reader.Comment = opts.Comment
		reader.LazyQuotes = opts.LazyQuotes
		reader.FieldsPerRecord = -1
		reader.ReuseRecord = true

		var cols columns
		for {
			if err := ctx.Err(); err != nil {
				errCh <- eris.Wrap(err, "csv: context cancelled")
				return
			}

			row, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "csv: read row")
				return
			}

			if cols == nil {
				cols = newColumns(row)
				continue
			}
			raw := cols.record(row)
			if raw == nil {
				continue
			}

			select {
			case out <- raw:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}
		}
	}()

	return out, errCh
}

// ReadCSVProperties collects every payload from a headed CSV.
func ReadCSVProperties(ctx context.Context, r io.Reader, opts CSVOptions) ([]model.RawProperty, error) {
	return collect(StreamCSV(ctx, r, opts))
}

// collect drains a payload stream. The error channel is read only after the
// payload channel closes.
func collect(out <-chan model.RawProperty, errCh <-chan error) ([]model.RawProperty, error) {
	props := []model.RawProperty{}
	for raw := range out {
		props = append(props, raw)
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	return props, nil
}
