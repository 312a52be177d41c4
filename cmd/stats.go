package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/doctopus/leavewatch/pkg/dashboard"
	"github.com/spf13/cobra"
)

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Prints the replacement dashboard for the current report.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := fetchReport(cmd.Context())
		if err != nil {
			return err
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		t, err := store.Load(cmd.Context())
		if err != nil {
			return err
		}

		printSummary(os.Stdout, dashboard.Summarize(ds, t))
		return nil
	},
}

func printSummary(out io.Writer, s dashboard.Summary) {
	fmt.Fprintf(out, "Doctors on leave:  %d\n", s.TotalStaff)
	fmt.Fprintf(out, "Replaced:          %d\n", s.TotalTracked)
	fmt.Fprintf(out, "Replacement rate:  %.1f%%\n\n", s.ReplacementRate)

	if len(s.Weeks) == 0 {
		fmt.Fprintln(out, "No weeks in the report.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "WEEK\tON LEAVE\tREPLACED\t")
	for _, wk := range s.Weeks {
		fmt.Fprintf(w, "%s\t%d\t%d\t\n", wk.Week, wk.Total, wk.Tracked)
	}
	for _, wk := range s.OrphanWeeks {
		fmt.Fprintf(w, "%s (not in report)\t-\t%d\t\n", wk.Week, wk.Tracked)
	}
	fmt.Fprintln(w, " \t \t \t")
	fmt.Fprintf(w, "TOTAL\t%d\t%d\t\n", s.TotalStaff, s.TotalTracked)
	w.Flush()
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
