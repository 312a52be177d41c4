package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/doctopus/leavewatch/internal/utils"
	"github.com/doctopus/leavewatch/pkg/report"
	"github.com/doctopus/leavewatch/pkg/roster"
	"github.com/doctopus/leavewatch/pkg/tracking"
	"github.com/spf13/cobra"
)

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Mark doctors as replaced from the command line",
}

var markCmd = &cobra.Command{
	Use:   "mark <rpps> <week>",
	Short: "Mark a doctor on leave as replaced",
	Long:  "Marks a doctor as replaced for a week. The pair must be present in a fresh fetch of the report.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := fetchReport(cmd.Context())
		if err != nil {
			return err
		}
		staff, ok := ds.Find(args[0], args[1])
		if !ok {
			return fmt.Errorf("%s for week %s: %w", args[0], args[1], roster.ErrUnknownStaff)
		}
		return withStore(cmd.Context(), func(ctx context.Context, store tracking.Store) error {
			if _, err := roster.Toggle(ctx, store, staff, true, time.Now()); err != nil {
				return err
			}
			utils.Log.Infof("%s (%s) marked as replaced", staff.Name, staff.Week)
			return nil
		})
	},
}

var unmarkCmd = &cobra.Command{
	Use:   "unmark <rpps> <week>",
	Short: "Remove a replacement",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context, store tracking.Store) error {
			staff := report.StaffRecord{ID: args[0], Week: args[1]}
			if _, err := roster.Toggle(ctx, store, staff, false, time.Now()); err != nil {
				return err
			}
			utils.Log.Infof("%s (%s) is no longer marked as replaced", staff.ID, staff.Week)
			return nil
		})
	},
}

var noteCmd = &cobra.Command{
	Use:   "note <rpps> <week> <replaced by...>",
	Short: "Record who replaces a doctor",
	Long:  "Stores who covers an already replaced doctor. An empty name clears it.",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := tracking.Key{ID: args[0], Week: args[1]}
		by := strings.Join(args[2:], " ")
		return withStore(cmd.Context(), func(ctx context.Context, store tracking.Store) error {
			if _, err := roster.SetReplacementBy(ctx, store, key, by); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			utils.Log.Infof("Replacement of %s updated", key)
			return nil
		})
	},
}

func withStore(ctx context.Context, fn func(context.Context, tracking.Store) error) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(ctx, store)
}

func init() {
	rootCmd.AddCommand(trackCmd)
	trackCmd.AddCommand(markCmd)
	trackCmd.AddCommand(unmarkCmd)
	trackCmd.AddCommand(noteCmd)
}
