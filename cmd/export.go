package main

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/bluereef-labs/mpagent/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export <document-id> <output-file>",
	Short: "Export a stored analysis result",
	Long:  "Writes the analysis result for a document as JSON or XLSX, chosen by the output file extension.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		result, err := st.GetResult(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "export")
		}

		out := args[1]
		switch {
		case strings.HasSuffix(out, ".xlsx"):
			return export.WriteXLSX(result, out)
		case strings.HasSuffix(out, ".json"):
			return export.WriteJSON(result, out)
		default:
			return eris.Errorf("unsupported output format: %s (want .json or .xlsx)", out)
		}
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
}
