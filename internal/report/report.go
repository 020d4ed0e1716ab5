// Package report renders batch scoring results as CSV, JSON, XLSX or a text table.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/dqi-engine/internal/engine"
	"github.com/sells-group/dqi-engine/internal/pillar"
)

// Format selects a report encoding.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
	FormatXLSX  Format = "xlsx"
	FormatTable Format = "table"
)

// ParseFormat validates a --format flag value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON, FormatXLSX, FormatTable:
		return f, nil
	default:
		return "", eris.Errorf("report: unsupported format %q", s)
	}
}

// pillarColumns are the per-pillar score columns, in aggregation order.
var pillarColumns = []string{
	pillar.NameLeverage,
	pillar.NameCashFlow,
	pillar.NameLeaseRisk,
	pillar.NameSponsor,
	pillar.NameMarket,
	pillar.NameStructure,
	pillar.NameDataConfidence,
}

// Columns returns the ordered header of the tabular formats.
func Columns() []string {
	cols := []string{
		"Row",
		"Property ID",
		"Property Name",
		"Overall Score",
		"Rating",
		"Band",
		"Confidence",
		"Peer Rank",
		"Benchmark Delta",
	}
	cols = append(cols, pillarColumns...)
	return append(cols,
		"Hard Fails",
		"Warnings",
		"Narrative Source",
		"Error",
	)
}

// buildRow flattens one batch result. Failed results keep their row number,
// property id and error; every score cell is left blank.
func buildRow(r engine.BatchResult) []string {
	row := make([]string, 0, len(Columns()))
	row = append(row, strconv.Itoa(r.Index+1), r.PropertyID)

	a := r.Analysis
	if r.Err != nil || a == nil {
		row = append(row, make([]string, len(Columns())-3)...)
		msg := "no analysis"
		if r.Err != nil {
			msg = r.Err.Error()
		}
		return append(row, msg)
	}

	row = append(row,
		a.PropertyName,
		strconv.Itoa(a.OverallScore),
		string(a.Rating),
		a.Band,
		string(a.Governance.ConfidenceLevel),
		a.Governance.PeerRank,
		fmt.Sprintf("%+d", a.Governance.BenchmarkDelta),
	)
	for _, name := range pillarColumns {
		if m, ok := a.Metric(name); ok {
			row = append(row, strconv.Itoa(m.Score))
		} else {
			row = append(row, "")
		}
	}
	return append(row,
		strings.Join(a.Safeguards.HardFails, "; "),
		strings.Join(a.Safeguards.Warnings, "; "),
		string(a.NarrativeSource),
		"",
	)
}

// Write renders results in format. The summary is included by the JSON and
// table formats and by the second XLSX sheet.
func Write(w io.Writer, format Format, results []engine.BatchResult, summary engine.BatchSummary) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, results)
	case FormatJSON:
		return WriteJSON(w, results, summary)
	case FormatXLSX:
		return WriteXLSX(w, results, summary)
	case FormatTable:
		return WriteTable(w, results, summary)
	default:
		return eris.Errorf("report: unsupported format %q", format)
	}
}
