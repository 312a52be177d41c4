// Package dashboard derives the headline metrics and per-week charts from a
// fetched report and the tracking mapping.
package dashboard

import (
	"sort"
	"strconv"

	"github.com/doctopus/leavewatch/pkg/report"
	"github.com/doctopus/leavewatch/pkg/tracking"
)

// RecentLimit is how many replacements the "recent" panel lists.
const RecentLimit = 5

// WeekCount pairs the staff on leave in a week with how many were replaced.
type WeekCount struct {
	Week    string `json:"week"`
	Total   int    `json:"total"`
	Tracked int    `json:"tracked"`
}

// Summary is everything the dashboard section displays.
type Summary struct {
	TotalStaff      int         `json:"total_staff"`
	TotalTracked    int         `json:"total_tracked"`
	ReplacementRate float64     `json:"replacement_rate"`
	Weeks           []WeekCount `json:"weeks"`

	// OrphanWeeks are tracked weeks that no longer appear in the report.
	// They are kept out of Weeks so the chart only shows report weeks.
	OrphanWeeks []WeekCount       `json:"orphan_weeks"`
	Recent      []tracking.Record `json:"recent"`
}

// Summarize computes the dashboard for ds and t. A nil dataset counts as empty.
func Summarize(ds *report.Dataset, t tracking.Tracking) Summary {
	s := Summary{
		TotalStaff:   ds.Len(),
		TotalTracked: len(t),
		Weeks:        []WeekCount{},
		OrphanWeeks:  []WeekCount{},
	}
	s.ReplacementRate = Rate(s.TotalTracked, s.TotalStaff)

	totals := map[string]int{}
	if ds != nil {
		for _, r := range ds.Records {
			totals[r.Week]++
		}
	}
	tracked := map[string]int{}
	for k := range t {
		tracked[k.Week]++
	}

	for week, n := range totals {
		s.Weeks = append(s.Weeks, WeekCount{Week: week, Total: n, Tracked: tracked[week]})
	}
	for week, n := range tracked {
		if _, ok := totals[week]; !ok {
			s.OrphanWeeks = append(s.OrphanWeeks, WeekCount{Week: week, Tracked: n})
		}
	}
	sortWeeks(s.Weeks)
	sortWeeks(s.OrphanWeeks)

	s.Recent = Recent(t, RecentLimit)
	return s
}

// Rate is 100*tracked/total rounded to one decimal, or 0 when total is 0.
// Rounding works on the exact binary value and ties go to the even digit,
// so 1/16 gives 6.2 rather than 6.3.
func Rate(tracked, total int) float64 {
	if total == 0 {
		return 0
	}
	v := float64(tracked) / float64(total) * 100
	r, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 1, 64), 64)
	return r
}

// Recent returns up to limit records, newest Date first.
func Recent(t tracking.Tracking, limit int) []tracking.Record {
	out := t.Sorted()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date > out[j].Date
	})
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// MaxTotal is the largest per-week total, used to scale chart bars.
func (s Summary) MaxTotal() int {
	m := 0
	for _, w := range s.Weeks {
		if w.Total > m {
			m = w.Total
		}
	}
	return m
}

// MaxTracked is the largest per-week tracked count.
func (s Summary) MaxTracked() int {
	m := 0
	for _, w := range s.Weeks {
		if w.Tracked > m {
			m = w.Tracked
		}
	}
	return m
}

func sortWeeks(w []WeekCount) {
	sort.Slice(w, func(i, j int) bool { return w[i].Week < w[j].Week })
}
