package engine

import (
	"context"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/dqi-engine/internal/model"
)

// DefaultBatchConcurrency bounds ComputeBatch when no limit is given.
const DefaultBatchConcurrency = 8

// BatchResult is the outcome for one input of a batch, in input order.
type BatchResult struct {
	Index      int
	PropertyID string
	Analysis   *model.DQIAnalysis
	Err        error
}

// BatchSummary counts the outcomes of a batch.
type BatchSummary struct {
	Total        int                  `json:"total"`
	Scored       int                  `json:"scored"`
	Failed       int                  `json:"failed"`
	HardFailed   int                  `json:"hardFailed"`
	ByRating     map[model.Rating]int `json:"byRating"`
	AverageScore float64              `json:"averageScore"`
}

// ComputeBatch scores raws with at most concurrency analyses in flight.
// A failed input never stops the batch; its error is kept on its result.
func (e *Engine) ComputeBatch(ctx context.Context, raws []model.RawProperty, concurrency int) []BatchResult {
	if concurrency <= 0 {
		concurrency = DefaultBatchConcurrency
	}
	results := make([]BatchResult, len(raws))

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, raw := range raws {
		in := model.Normalize(raw)
		results[i] = BatchResult{Index: i, PropertyID: in.PropertyID}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = eris.Wrap(err, "engine: batch cancelled")
				return nil
			}
			results[i].Analysis, results[i].Err = e.ComputeDealQualityIndex(ctx, in.PropertyID, in)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Summarize tallies results.
func Summarize(results []BatchResult) BatchSummary {
	s := BatchSummary{Total: len(results), ByRating: make(map[model.Rating]int)}
	total := 0
	for _, r := range results {
		if r.Err != nil || r.Analysis == nil {
			s.Failed++
			continue
		}
		s.Scored++
		s.ByRating[r.Analysis.Rating]++
		total += r.Analysis.OverallScore
		if r.Analysis.HardFailed() {
			s.HardFailed++
		}
	}
	if s.Scored > 0 {
		s.AverageScore = float64(total) / float64(s.Scored)
	}
	return s
}
