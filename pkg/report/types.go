package report

import (
	"fmt"
	"strings"
	"time"
)

// Column names of the leave report, as exported by Metabase.
const (
	ColumnID               = "numero_rpps"
	ColumnName             = "medecin"
	ColumnWeek             = "week"
	ColumnContractType     = "type_contract"
	ColumnCSM              = "csm"
	ColumnPlannedHours     = "planified_hours"
	ColumnContractualHours = "contractual_hours"
)

// RequiredColumns lists the header names every report must carry.
var RequiredColumns = []string{
	ColumnID,
	ColumnName,
	ColumnWeek,
	ColumnContractType,
	ColumnCSM,
	ColumnPlannedHours,
	ColumnContractualHours,
}

// StaffRecord is one row of the leave report: a staff member on leave for a week.
type StaffRecord struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Week             string  `json:"week"`
	ContractType     string  `json:"contract_type"`
	CSM              string  `json:"csm"`
	PlannedHours     float64 `json:"planned_hours"`
	ContractualHours float64 `json:"contractual_hours"`
}

// Dataset is the result of one fetch. It is never mutated after parsing.
type Dataset struct {
	Source    string
	FetchedAt time.Time
	Records   []StaffRecord
}

// Len returns the number of rows, zero for a nil dataset.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// Find returns the row for the given identifier and week.
func (d *Dataset) Find(id, week string) (StaffRecord, bool) {
	if d == nil {
		return StaffRecord{}, false
	}
	for _, r := range d.Records {
		if r.ID == id && r.Week == week {
			return r, true
		}
	}
	return StaffRecord{}, false
}

// StatusError is returned when the report endpoint answers with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("report endpoint %s returned status %d", e.URL, e.StatusCode)
}

// MissingColumnsError is returned when the CSV header lacks required columns.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return "report is missing required columns: " + strings.Join(e.Columns, ", ")
}
