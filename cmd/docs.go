package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/bluereef-labs/mpagent/internal/model"
	"github.com/bluereef-labs/mpagent/internal/store"
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Inspect analyzed documents",
	Long:  "Commands for listing documents and viewing their stored analysis results.",
}

// -- docs list --

var docsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		docs, err := st.ListDocuments(ctx, store.DocumentFilter{
			Status: model.DocumentStatus(status),
			Limit:  limit,
		})
		if err != nil {
			return eris.Wrap(err, "docs list")
		}

		if len(docs) == 0 {
			fmt.Fprintln(os.Stderr, "No documents found.")
			return nil
		}

		formatDocsList(os.Stdout, docs)
		return nil
	},
}

// -- docs show --

var docsShowCmd = &cobra.Command{
	Use:   "show <document-id>",
	Short: "Show the stored analysis result for a document",
	Args:  cobra.ExactArgs(1),
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
			return eris.Wrap(err, "docs show")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	docsListCmd.Flags().String("status", "", "filter by document status (uploaded, extracting, complete, partial, failed, ...)")
	docsListCmd.Flags().Int("limit", 50, "max number of documents to display")

	docsCmd.AddCommand(docsListCmd)
	docsCmd.AddCommand(docsShowCmd)
	rootCmd.AddCommand(docsCmd)
}

// formatDocsList writes a tabular list of documents to w.
func formatDocsList(out io.Writer, docs []model.Document) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tFILENAME\tSTATUS\tPAGES\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t--------\t------\t-----\t-------")

	for _, d := range docs {
		name := d.Filename
		if len(name) > 40 {
			name = name[:37] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			truncateID(d.ID),
			name,
			d.Status,
			len(d.Pages),
			d.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
