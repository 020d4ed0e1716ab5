package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/dqi-engine/internal/store"
)

var propertyCmd = &cobra.Command{
	Use:   "property",
	Short: "Manage stored property payloads",
}

var propertyPutCmd = &cobra.Command{
	Use:   "put <id> <file.json|->",
	Short: "Store or replace a property payload",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openPropertyStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		raw, err := readPayload(args[1], cmd.InOrStdin())
		if err != nil {
			return err
		}
		rec, err := st.PutProperty(cmd.Context(), args[0], raw)
		if err != nil {
			return eris.Wrapf(err, "property put %s", args[0])
		}
		return writeIndented(cmd.OutOrStdout(), rec)
	},
}

var propertyGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Print a stored property payload",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openPropertyStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		rec, err := st.GetProperty(cmd.Context(), args[0])
		if err != nil {
			return eris.Wrapf(err, "property get %s", args[0])
		}
		return writeIndented(cmd.OutOrStdout(), rec)
	},
}

func init() {
	propertyCmd.AddCommand(propertyPutCmd, propertyGetCmd)
	rootCmd.AddCommand(propertyCmd)
}

func openPropertyStore(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate("store"); err != nil {
		return nil, err
	}
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

func writeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "encode output")
}
