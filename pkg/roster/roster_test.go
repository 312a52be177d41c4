package roster

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/doctopus/leavewatch/pkg/report"
	"github.com/doctopus/leavewatch/pkg/tracking"
)

var records = []report.StaffRecord{
	{ID: "1", Name: "Jean Dupont", Week: "2024-W01", CSM: "Nord"},
	{ID: "2", Name: "Marie DUPUIS", Week: "2024-W02", CSM: "Sud"},
	{ID: "3", Name: "Paul Martin", Week: "2024-W01", CSM: "Sud"},
	{ID: "1", Name: "Jean Dupont", Week: "2024-W02", CSM: "Nord"},
}

func ids(rs []report.StaffRecord) []string {
	out := []string{}
	for _, r := range rs {
		out = append(out, r.ID+"/"+r.Week)
	}
	return out
}

func TestApply(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"no filter", Filter{}, []string{"1/2024-W01", "2/2024-W02", "3/2024-W01", "1/2024-W02"}},
		{"case insensitive search", Filter{Search: "dup"}, []string{"1/2024-W01", "2/2024-W02", "1/2024-W02"}},
		{"org unit", Filter{OrgUnits: []string{"Sud"}}, []string{"2/2024-W02", "3/2024-W01"}},
		{"All disables org unit", Filter{OrgUnits: []string{"Sud", All}}, []string{"1/2024-W01", "2/2024-W02", "3/2024-W01", "1/2024-W02"}},
		{"week and search", Filter{Search: "jean", Weeks: []string{"2024-W02"}}, []string{"1/2024-W02"}},
		{"conjunction", Filter{OrgUnits: []string{"Nord"}, Weeks: []string{"2024-W01", "2024-W02"}}, []string{"1/2024-W01", "1/2024-W02"}},
		{"no match", Filter{Search: "zzz"}, []string{}},
	}
	for _, tt := range tests {
		got := ids(Apply(records, tt.filter))
		if !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("%s: want %v, got %v", tt.name, tt.want, got)
		}
	}
}

func TestApplyNoMatchYieldsNoRows(t *testing.T) {
	rows := Rows(Apply(records, Filter{Search: "nobody"}), tracking.Tracking{})
	if len(rows) != 0 {
		t.Fatalf("expected no rows, got %d", len(rows))
	}
}

func TestOptions(t *testing.T) {
	units, weeks := Options(records)
	if !reflect.DeepEqual(units, []string{"Nord", "Sud"}) {
		t.Fatalf("unexpected org units %v", units)
	}
	if !reflect.DeepEqual(weeks, []string{"2024-W01", "2024-W02"}) {
		t.Fatalf("unexpected weeks %v", weeks)
	}
}

func TestRows(t *testing.T) {
	tr := tracking.Tracking{
		{ID: "3", Week: "2024-W01"}: {ID: "3", Week: "2024-W01", ReplacementBy: "Dr Who"},
	}
	rows := Rows(records, tr)
	for _, r := range rows {
		want := r.Staff.ID == "3"
		if r.Tracked != want {
			t.Fatalf("row %s/%s tracked=%t, want %t", r.Staff.ID, r.Staff.Week, r.Tracked, want)
		}
		if want && r.Record.ReplacementBy != "Dr Who" {
			t.Fatalf("tracked row lost its record: %+v", r.Record)
		}
	}
}

func TestToggleAndReplacement(t *testing.T) {
	ctx := context.Background()
	store, err := tracking.OpenFile(filepath.Join(t.TempDir(), "tracking_data.json"))
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	now := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	s := records[0]
	key := tracking.Key{ID: s.ID, Week: s.Week}

	got, err := Toggle(ctx, store, s, true, now)
	if err != nil {
		t.Fatalf("Toggle on: %v", err)
	}
	if !got.Has(key) || got[key].Date != "2024-01-10" || got[key].Name != "Jean Dupont" {
		t.Fatalf("record not created: %+v", got)
	}

	// Checking an already tracked row keeps the original date.
	got, err = Toggle(ctx, store, s, true, now.AddDate(0, 0, 3))
	if err != nil {
		t.Fatalf("Toggle on again: %v", err)
	}
	if got[key].Date != "2024-01-10" {
		t.Fatalf("date overwritten: %s", got[key].Date)
	}

	got, err = SetReplacementBy(ctx, store, key, " Dr Remplaçant ")
	if err != nil {
		t.Fatalf("SetReplacementBy: %v", err)
	}
	if got[key].ReplacementBy != " Dr Remplaçant " {
		t.Fatalf("replacement not stored: %+v", got[key])
	}

	got, err = Toggle(ctx, store, s, false, now)
	if err != nil {
		t.Fatalf("Toggle off: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty store, got %+v", got)
	}

	_, err = SetReplacementBy(ctx, store, key, "x")
	if !errors.Is(err, tracking.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
