package report

import (
	"encoding/csv"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/dqi-engine/internal/engine"
)

// WriteCSV writes one row per batch result under a header row.
func WriteCSV(w io.Writer, results []engine.BatchResult) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(Columns()); err != nil {
		return eris.Wrap(err, "report: write CSV header")
	}
	for _, r := range results {
		if err := cw.Write(buildRow(r)); err != nil {
			return eris.Wrap(err, "report: write CSV row")
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "report: flush CSV")
}
