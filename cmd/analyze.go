package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/bluereef-labs/mpagent/internal/export"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <plan.pdf>",
	Short: "Run the full analysis pipeline over one management plan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		pdfPath := args[0]
		result, err := env.Runner.Analyze(ctx, pdfPath, filepath.Base(pdfPath))
		if err != nil {
			return eris.Wrap(err, "analyze")
		}

		if out, _ := cmd.Flags().GetString("out"); out != "" {
			if err := export.WriteJSON(result, out); err != nil {
				return err
			}
			return nil
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	analyzeCmd.Flags().String("out", "", "write the result JSON to a file instead of stdout")
	rootCmd.AddCommand(analyzeCmd)
}
