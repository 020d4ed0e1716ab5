package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/dqi-engine/internal/engine"
)

// WriteTable prints a fixed-width table followed by the batch summary.
func WriteTable(w io.Writer, results []engine.BatchResult, summary engine.BatchSummary) error {
	header := fmt.Sprintf("%-5s %-20s %-36s %5s %-13s %-6s %s\n",
		"Row", "Property", "Name", "Score", "Rating", "Conf", "Notes")
	if _, err := fmt.Fprint(w, header); err != nil {
		return eris.Wrap(err, "report: write table header")
	}
	if _, err := fmt.Fprintln(w, strings.Repeat("-", 110)); err != nil {
		return eris.Wrap(err, "report: write table separator")
	}

	for _, r := range results {
		var line string
		if r.Err != nil || r.Analysis == nil {
			line = fmt.Sprintf("%-5d %-20s %-36s %5s %-13s %-6s %s\n",
				r.Index+1, truncate(r.PropertyID, 20), "", "-", "ERROR", "", errText(r))
		} else {
			a := r.Analysis
			notes := ""
			if a.HardFailed() {
				notes = "hard fail: " + strings.Join(a.Safeguards.HardFails, "; ")
			}
			line = fmt.Sprintf("%-5d %-20s %-36s %5d %-13s %-6s %s\n",
				r.Index+1, truncate(r.PropertyID, 20), truncate(a.PropertyName, 36),
				a.OverallScore, a.Rating, a.Governance.ConfidenceLevel, notes)
		}
		if _, err := fmt.Fprint(w, line); err != nil {
			return eris.Wrap(err, "report: write table row")
		}
	}

	_, err := fmt.Fprintf(w, "\n--- Summary ---\nTotal: %d  Scored: %d  Failed: %d  Hard failed: %d  Average: %.1f\n",
		summary.Total, summary.Scored, summary.Failed, summary.HardFailed, summary.AverageScore)
	return eris.Wrap(err, "report: write table summary")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func errText(r engine.BatchResult) string {
	if r.Err == nil {
		return "no analysis"
	}
	return r.Err.Error()
}
