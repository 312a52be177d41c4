package report

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/doctopus/leavewatch/internal/utils"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Decode returns body as UTF-8 text. Bodies that are not valid UTF-8 are
// read as ISO-8859-1, which is what Metabase emits for some locales.
func Decode(body []byte) ([]byte, error) {
	body = bytes.TrimPrefix(body, utf8BOM)
	if utf8.Valid(body) {
		return body, nil
	}
	utils.Log.Debug("Report body is not valid UTF-8, falling back to latin-1")
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(body)
	if err != nil {
		return nil, fmt.Errorf("decoding latin-1 report: %w", err)
	}
	return decoded, nil
}

// Parse reads a leave report CSV. Extra columns are ignored.
func Parse(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	// Short rows read their missing trailing cells as empty.
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("report is empty")
		}
		return nil, fmt.Errorf("reading report header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(h)] = i
	}
	var missing []string
	for _, c := range RequiredColumns {
		if _, ok := index[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}

	ds := &Dataset{}
	line := 1
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("reading report line %d: %w", line, err)
		}
		if isBlank(row) {
			continue
		}

		cell := func(col string) string {
			i := index[col]
			if i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		ds.Records = append(ds.Records, StaffRecord{
			ID:               normalizeID(cell(ColumnID)),
			Name:             cell(ColumnName),
			Week:             cell(ColumnWeek),
			ContractType:     cell(ColumnContractType),
			CSM:              cell(ColumnCSM),
			PlannedHours:     parseHours(cell(ColumnPlannedHours), line, ColumnPlannedHours),
			ContractualHours: parseHours(cell(ColumnContractualHours), line, ColumnContractualHours),
		})
	}
	return ds, nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// normalizeID drops the ".0" suffix some exports put on integer columns.
func normalizeID(id string) string {
	return strings.TrimSuffix(id, ".0")
}

func parseHours(s string, line int, col string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		utils.Log.WithFields(logrus.Fields{
			"line":   line,
			"column": col,
			"value":  s,
		}).Warn("Unparsable hours value, reading it as 0")
		return 0
	}
	return v
}
