package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/doctopus/leavewatch/pkg/report"
	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch the leave report once and print it",
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := fetchReport(cmd.Context())
		if err != nil {
			return err
		}
		if ds.Len() == 0 {
			fmt.Println("The report is empty.")
			return nil
		}
		printDataset(os.Stdout, ds)
		return nil
	},
}

func printDataset(out io.Writer, ds *report.Dataset) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "RPPS\tNAME\tWEEK\tCONTRACT\tCSM\tPLANNED\tCONTRACTUAL\t")
	for _, r := range ds.Records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n", r.ID, r.Name, r.Week, r.ContractType, r.CSM,
			strconv.FormatFloat(r.PlannedHours, 'f', -1, 64), strconv.FormatFloat(r.ContractualHours, 'f', -1, 64))
	}
	w.Flush()
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}
