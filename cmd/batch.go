package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/dqi-engine/internal/engine"
	"github.com/sells-group/dqi-engine/internal/ingest"
	"github.com/sells-group/dqi-engine/internal/model"
	"github.com/sells-group/dqi-engine/internal/report"
	"github.com/sells-group/dqi-engine/internal/store"
)

var (
	batchFormat      string
	batchInputFormat string
	batchOutput      string
	batchConcurrency int
	batchPersist     bool
)

var batchCmd = &cobra.Command{
	Use:   "batch <file|url>",
	Short: "Score every property in a CSV, JSON, JSON-lines or XLSX file",
	Long: `Score every property in a CSV, JSON, JSON-lines or XLSX export.
The input may be a local path or an ftp://, http:// or https:// URL.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		format, err := report.ParseFormat(batchFormat)
		if err != nil {
			return err
		}

		env, err := initEnv(ctx, "batch", batchPersist)
		if err != nil {
			return err
		}
		defer env.Close()

		raws, err := readBatchInput(ctx, args[0], ingest.Format(batchInputFormat))
		if err != nil {
			return err
		}

		concurrency := batchConcurrency
		if concurrency <= 0 {
			concurrency = cfg.Batch.MaxConcurrent
		}

		var w io.Writer = cmd.OutOrStdout()
		if batchOutput != "" {
			f, err := os.Create(batchOutput)
			if err != nil {
				return eris.Wrapf(err, "batch: create output file %s", batchOutput)
			}
			defer f.Close() //nolint:errcheck
			w = f
		}

		_, err = runBatch(ctx, env, raws, concurrency, format, w)
		return err
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchFormat, "format", "csv", "report format: csv, json, xlsx or table")
	batchCmd.Flags().StringVar(&batchInputFormat, "input-format", "", "input format: csv, json or xlsx (default from extension)")
	batchCmd.Flags().StringVarP(&batchOutput, "output", "o", "", "write the report to this file instead of stdout")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "max analyses in flight (default from config)")
	batchCmd.Flags().BoolVar(&batchPersist, "persist", false, "save properties and analyses to the store")
	rootCmd.AddCommand(batchCmd)
}

// readBatchInput reads a local file, or downloads a remote export into a
// temp directory first.
func readBatchInput(ctx context.Context, src string, format ingest.Format) ([]model.RawProperty, error) {
	if !ingest.IsRemote(src) {
		return ingest.ReadFile(ctx, src, format)
	}
	dir, err := os.MkdirTemp("", "dqi-batch-*")
	if err != nil {
		return nil, eris.Wrap(err, "batch: create temp dir")
	}
	defer os.RemoveAll(dir) //nolint:errcheck

	local, err := ingest.FetchToDir(ctx, src, dir)
	if err != nil {
		return nil, err
	}
	return ingest.ReadFile(ctx, local, format)
}

// runBatch scores raws, optionally persists them, publishes each analysis and
// writes the report. Per-row failures are reported, not returned.
func runBatch(ctx context.Context, env *dqiEnv, raws []model.RawProperty, concurrency int, format report.Format, w io.Writer) (engine.BatchSummary, error) {
	start := time.Now()
	results := env.Engine.ComputeBatch(ctx, raws, concurrency)

	if env.Store != nil {
		if err := persistBatch(ctx, env.Store, raws, results); err != nil {
			return engine.BatchSummary{}, err
		}
	}

	for _, r := range results {
		if r.Analysis == nil {
			continue
		}
		if err := env.Publisher.PublishAnalysis(ctx, r.Analysis); err != nil {
			zap.L().Warn("batch: publish analysis", zap.String("property_id", r.PropertyID), zap.Error(err))
		}
	}

	summary := engine.Summarize(results)
	zap.L().Info("batch complete",
		zap.Int("total", summary.Total),
		zap.Int("scored", summary.Scored),
		zap.Int("failed", summary.Failed),
		zap.Int("hard_failed", summary.HardFailed),
		zap.Float64("average_score", summary.AverageScore),
		zap.Duration("elapsed", time.Since(start)),
	)
	if u := env.Usage.Totals(); u.Calls > 0 {
		zap.L().Info("batch narrative usage",
			zap.Int("calls", u.Calls),
			zap.Int64("input_tokens", u.InputTokens),
			zap.Int64("output_tokens", u.OutputTokens),
			zap.Float64("estimated_cost_usd", u.CostUSD),
		)
	}

	if err := report.Write(w, format, results, summary); err != nil {
		return summary, err
	}
	return summary, nil
}

// persistBatch stores payloads that carry an id and every successful
// analysis. Stored copies replace the results' analyses so reports show IDs.
func persistBatch(ctx context.Context, st store.Store, raws []model.RawProperty, results []engine.BatchResult) error {
	var recs []store.PropertyRecord
	var analyses []*model.DQIAnalysis
	var idx []int
	seen := make(map[string]int)
	for i, r := range results {
		if r.PropertyID != "" {
			// Last payload wins for repeated ids.
			if j, ok := seen[r.PropertyID]; ok {
				recs[j].Raw = raws[i]
			} else {
				seen[r.PropertyID] = len(recs)
				recs = append(recs, store.PropertyRecord{ID: r.PropertyID, Raw: raws[i]})
			}
		}
		if r.Analysis != nil {
			analyses = append(analyses, r.Analysis)
			idx = append(idx, i)
		}
	}

	if _, err := st.PutProperties(ctx, recs); err != nil {
		return eris.Wrap(err, "batch: save properties")
	}
	saved, err := st.SaveAnalyses(ctx, analyses)
	if err != nil {
		return eris.Wrap(err, "batch: save analyses")
	}
	for j, a := range saved {
		results[idx[j]].Analysis = a
	}
	return nil
}
