package dashboard

import (
	"reflect"
	"testing"

	"github.com/doctopus/leavewatch/pkg/report"
	"github.com/doctopus/leavewatch/pkg/tracking"
)

func dataset(rows ...[2]string) *report.Dataset {
	ds := &report.Dataset{}
	for _, r := range rows {
		ds.Records = append(ds.Records, report.StaffRecord{ID: r[0], Week: r[1]})
	}
	return ds
}

func track(records ...tracking.Record) tracking.Tracking {
	t := tracking.Tracking{}
	for _, r := range records {
		t[r.Key()] = r
	}
	return t
}

func TestRate(t *testing.T) {
	tests := []struct {
		tracked, total int
		want           float64
	}{
		{0, 0, 0},
		{3, 0, 0},
		{0, 4, 0},
		{1, 3, 33.3},
		{2, 3, 66.7},
		{1, 8, 12.5},
		{1, 16, 6.2},
		{1, 80, 1.2},
		{3, 16, 18.8},
		{5, 5, 100},
	}
	for _, tt := range tests {
		if got := Rate(tt.tracked, tt.total); got != tt.want {
			t.Fatalf("Rate(%d, %d) = %v, want %v", tt.tracked, tt.total, got, tt.want)
		}
	}
}

func TestSummarize(t *testing.T) {
	ds := dataset(
		[2]string{"1", "2024-W02"},
		[2]string{"2", "2024-W01"},
		[2]string{"3", "2024-W02"},
	)
	tr := track(
		tracking.Record{ID: "1", Week: "2024-W02", Date: "2024-01-03"},
		tracking.Record{ID: "9", Week: "2023-W52", Date: "2023-12-27"},
	)

	got := Summarize(ds, tr)
	if got.TotalStaff != 3 || got.TotalTracked != 2 {
		t.Fatalf("unexpected totals: %+v", got)
	}
	if got.ReplacementRate != 66.7 {
		t.Fatalf("unexpected rate %v", got.ReplacementRate)
	}
	wantWeeks := []WeekCount{
		{Week: "2024-W01", Total: 1, Tracked: 0},
		{Week: "2024-W02", Total: 2, Tracked: 1},
	}
	if !reflect.DeepEqual(got.Weeks, wantWeeks) {
		t.Fatalf("unexpected weeks.\nwant: %#v\ngot:  %#v", wantWeeks, got.Weeks)
	}
	wantOrphans := []WeekCount{{Week: "2023-W52", Tracked: 1}}
	if !reflect.DeepEqual(got.OrphanWeeks, wantOrphans) {
		t.Fatalf("unexpected orphan weeks: %#v", got.OrphanWeeks)
	}
	if got.MaxTotal() != 2 || got.MaxTracked() != 1 {
		t.Fatalf("unexpected maxima %d/%d", got.MaxTotal(), got.MaxTracked())
	}
}

func TestSummarizeEmpty(t *testing.T) {
	got := Summarize(nil, tracking.Tracking{})
	if got.TotalStaff != 0 || got.ReplacementRate != 0 || len(got.Weeks) != 0 || len(got.Recent) != 0 {
		t.Fatalf("unexpected summary for empty input: %+v", got)
	}
}

func TestRecent(t *testing.T) {
	tr := track(
		tracking.Record{ID: "1", Week: "w", Date: "2024-01-01"},
		tracking.Record{ID: "2", Week: "w", Date: "2024-01-05"},
		tracking.Record{ID: "3", Week: "w", Date: "2024-01-03"},
		tracking.Record{ID: "4", Week: "w", Date: "2024-01-05"},
	)

	got := Recent(tr, 3)
	var ids []string
	for _, r := range got {
		ids = append(ids, r.ID)
	}
	want := []string{"2", "4", "3"}
	if !reflect.DeepEqual(ids, want) {
		t.Fatalf("unexpected order: want %v, got %v", want, ids)
	}
}
