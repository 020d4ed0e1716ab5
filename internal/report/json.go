package report

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/dqi-engine/internal/engine"
	"github.com/sells-group/dqi-engine/internal/model"
)

// jsonResult is one entry of the JSON report.
type jsonResult struct {
	Row        int                `json:"row"`
	PropertyID string             `json:"propertyId,omitempty"`
	Analysis   *model.DQIAnalysis `json:"analysis,omitempty"`
	Error      string             `json:"error,omitempty"`
}

type jsonReport struct {
	Summary engine.BatchSummary `json:"summary"`
	Results []jsonResult        `json:"results"`
}

// WriteJSON writes the summary and every full analysis as one indented document.
func WriteJSON(w io.Writer, results []engine.BatchResult, summary engine.BatchSummary) error {
	doc := jsonReport{Summary: summary, Results: make([]jsonResult, 0, len(results))}
	for _, r := range results {
		jr := jsonResult{Row: r.Index + 1, PropertyID: r.PropertyID}
		if r.Err != nil {
			jr.Error = r.Err.Error()
		} else {
			jr.Analysis = r.Analysis
		}
		doc.Results = append(doc.Results, jr)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(doc), "report: encode JSON")
}
