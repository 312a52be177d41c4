package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/doctopus/leavewatch/internal/utils"
	"github.com/doctopus/leavewatch/pkg/tracking"
	"github.com/spf13/cobra"
)

// dbCmd represents the db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the tracking store",
}

var importCmd = &cobra.Command{
	Use:   "import <tracking_data.json>",
	Short: "Import a JSON tracking file into the configured store",
	Long: `Reads a tracking file in the JSON format ({"<rpps>_<week>": {...}}) and
copies its records into the configured store. Existing records are kept unless
--replace is given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		replace, _ := cmd.Flags().GetBool("replace")

		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		imported, err := tracking.ImportJSON(data)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}

		return withStore(cmd.Context(), func(ctx context.Context, store tracking.Store) error {
			if err := importInto(ctx, store, imported, replace); err != nil {
				return err
			}
			_, path := storeLocation()
			utils.Log.Infof("Imported %d records into %s", len(imported), path)
			return nil
		})
	},
}

func importInto(ctx context.Context, store tracking.Store, imported tracking.Tracking, replace bool) error {
	if replace {
		return store.Save(ctx, imported)
	}
	for _, r := range imported.Sorted() {
		if err := store.Put(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Open sqlite3 on the tracking store",
	Long:  "Runs sqlite3 on the sqlite tracking store, showing the tracking_records schema before the prompt.",
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, dbPath := storeLocation()
		if strings.ToLower(backend) != tracking.BackendSQLite {
			return fmt.Errorf("db shell needs --store-backend sqlite, got %q", backend)
		}
		if _, err := os.Stat(dbPath); err != nil {
			return fmt.Errorf("tracking store: %w", err)
		}
		bin, err := exec.LookPath("sqlite3")
		if err != nil {
			return fmt.Errorf("db shell runs sqlite3, which is not installed: %w", err)
		}

		utils.Log.Debugf("Opening %s with %s", dbPath, bin)
		c := exec.CommandContext(cmd.Context(), bin, shellArgs(dbPath)...)
		c.Stdin, c.Stdout, c.Stderr = os.Stdin, os.Stdout, os.Stderr
		return c.Run()
	},
}

// shellArgs prints the tracking schema in box mode, then stays interactive.
func shellArgs(dbPath string) []string {
	return []string{
		"-cmd", ".schema tracking_records",
		"-cmd", ".mode box",
		dbPath,
	}
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(importCmd)
	dbCmd.AddCommand(shellCmd)
	importCmd.Flags().Bool("replace", false, "Replace the whole store instead of merging")
}
