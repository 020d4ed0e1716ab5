package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/dqi-engine/internal/model"
)

var (
	analyzeID      string
	analyzePersist bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file.json|-]",
	Short: "Score one property and print the analysis as JSON",
	Long: "Scores a property payload read from a JSON file or stdin. With --id the stored " +
		"payload of that property is scored instead.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if analyzeID == "" && len(args) == 0 {
			return eris.New("analyze: a payload file, '-' or --id is required")
		}

		env, err := initEnv(ctx, "analyze", analyzeID != "" || analyzePersist)
		if err != nil {
			return err
		}
		defer env.Close()

		var raw model.RawProperty
		if analyzeID != "" {
			rec, err := env.Store.GetProperty(ctx, analyzeID)
			if err != nil {
				return eris.Wrapf(err, "analyze: load property %s", analyzeID)
			}
			raw = rec.Raw
			if _, ok := raw["propertyId"]; !ok {
				raw["propertyId"] = analyzeID
			}
		} else {
			raw, err = readPayload(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
		}

		return runAnalyze(ctx, env, raw, analyzePersist, cmd.OutOrStdout())
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeID, "id", "", "score the stored property with this id")
	analyzeCmd.Flags().BoolVar(&analyzePersist, "persist", false, "save the analysis to the store")
	rootCmd.AddCommand(analyzeCmd)
}

// readPayload reads a JSON property payload from path, or from stdin when path is "-".
func readPayload(path string, stdin io.Reader) (model.RawProperty, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "analyze: read payload %s", path)
	}
	return model.ParseRawProperty(data)
}

func runAnalyze(ctx context.Context, env *dqiEnv, raw model.RawProperty, persist bool, w io.Writer) error {
	a, err := env.Engine.ComputeFromRaw(ctx, raw)
	if err != nil {
		return eris.Wrap(err, "analyze")
	}

	if persist && env.Store != nil {
		if a, err = env.Store.SaveAnalysis(ctx, a); err != nil {
			return eris.Wrap(err, "analyze: save analysis")
		}
	}

	if err := env.Publisher.PublishAnalysis(ctx, a); err != nil {
		zap.L().Warn("analyze: publish analysis", zap.Error(err))
	}

	return writeIndented(w, a)
}
