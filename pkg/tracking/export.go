package tracking

import (
	"encoding/csv"
	"io"
)

// ExportFilename is the suggested download name for WriteCSV output.
const ExportFilename = "staff_replacements.csv"

// ExportHeader is the header row of the replacements export.
var ExportHeader = []string{"RPPS", "Name", "Replacement Date", "Contract Type", "CSM", "Week"}

// WriteCSV flattens t into one row per record, ordered by identifier then week.
func WriteCSV(w io.Writer, t Tracking) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return err
	}
	for _, r := range t.Sorted() {
		if err := cw.Write([]string{r.ID, r.Name, r.Date, r.ContractType, r.CSM, r.Week}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
