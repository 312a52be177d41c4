package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/doctopus/leavewatch/internal/utils"
	"github.com/doctopus/leavewatch/pkg/tracking"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export replaced doctors as CSV",
	Long:  "Writes every tracked replacement as CSV, to stdout or to the file given with --output.",
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if output == "" {
			return exportCSV(cmd.Context(), store, os.Stdout)
		}

		f, err := os.Create(output)
		if err != nil {
			return err
		}
		if err := exportCSV(cmd.Context(), store, f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		utils.Log.Infof("Replacements exported to %s", output)
		return nil
	},
}

func exportCSV(ctx context.Context, store tracking.Store, w io.Writer) error {
	t, err := store.Load(ctx)
	if err != nil {
		return err
	}
	if err := tracking.WriteCSV(w, t); err != nil {
		return fmt.Errorf("could not write CSV: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringP("output", "o", "", "Output file (default is stdout, suggested name "+tracking.ExportFilename+")")
}
