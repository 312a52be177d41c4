package roster

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/doctopus/leavewatch/pkg/report"
	"github.com/doctopus/leavewatch/pkg/tracking"
)

// All is the filter value that disables a dimension.
const All = "All"

// ErrUnknownStaff is returned when a toggle names a row absent from the report.
var ErrUnknownStaff = errors.New("staff member not found in the current report")

// Filter selects roster rows. Empty fields match everything.
type Filter struct {
	Search   string   `json:"search"`
	OrgUnits []string `json:"csm"`
	Weeks    []string `json:"week"`
}

// Row is a roster line: the report row and its tracking state.
type Row struct {
	Staff   report.StaffRecord `json:"staff"`
	Tracked bool               `json:"tracked"`
	Record  *tracking.Record   `json:"record,omitempty"`
}

// Key returns the tracking key of the row.
func (r Row) Key() tracking.Key {
	return tracking.Key{ID: r.Staff.ID, Week: r.Staff.Week}
}

// Apply keeps the records matching every active dimension of f, in order.
func Apply(records []report.StaffRecord, f Filter) []report.StaffRecord {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	units := toSet(f.OrgUnits)
	weeks := toSet(f.Weeks)

	out := []report.StaffRecord{}
	for _, r := range records {
		if search != "" && !strings.Contains(strings.ToLower(r.Name), search) {
			continue
		}
		if units != nil && !units[r.CSM] {
			continue
		}
		if weeks != nil && !weeks[r.Week] {
			continue
		}
		out = append(out, r)
	}
	return out
}

// toSet returns nil when the selection is empty or contains All.
func toSet(values []string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]bool, len(values))
	for _, v := range values {
		if v == All {
			return nil
		}
		set[v] = true
	}
	return set
}

// Options lists distinct org units and weeks in order of first appearance.
func Options(records []report.StaffRecord) (orgUnits, weeks []string) {
	seenUnits := map[string]bool{}
	seenWeeks := map[string]bool{}
	for _, r := range records {
		if !seenUnits[r.CSM] {
			seenUnits[r.CSM] = true
			orgUnits = append(orgUnits, r.CSM)
		}
		if !seenWeeks[r.Week] {
			seenWeeks[r.Week] = true
			weeks = append(weeks, r.Week)
		}
	}
	return orgUnits, weeks
}

// Rows binds each record to its tracking state.
func Rows(records []report.StaffRecord, t tracking.Tracking) []Row {
	out := make([]Row, 0, len(records))
	for _, s := range records {
		row := Row{Staff: s}
		if rec, ok := t[row.Key()]; ok {
			row.Tracked = true
			row.Record = &rec
		}
		out = append(out, row)
	}
	return out
}

// Toggle marks or unmarks s as replaced. The store is reloaded first so the
// decision is taken against the persisted state, then the updated state is
// returned.
func Toggle(ctx context.Context, store tracking.Store, s report.StaffRecord, checked bool, now time.Time) (tracking.Tracking, error) {
	current, err := store.Load(ctx)
	if err != nil {
		return nil, err
	}
	key := tracking.Key{ID: s.ID, Week: s.Week}

	switch {
	case checked && !current.Has(key):
		if err := store.Put(ctx, tracking.NewRecord(s, now)); err != nil {
			return nil, err
		}
	case !checked && current.Has(key):
		if err := store.Delete(ctx, key); err != nil {
			return nil, err
		}
	default:
		return current, nil
	}
	return store.Load(ctx)
}

// SetReplacementBy stores who covers an already tracked staff week.
func SetReplacementBy(ctx context.Context, store tracking.Store, key tracking.Key, replacementBy string) (tracking.Tracking, error) {
	current, err := store.Load(ctx)
	if err != nil {
		return nil, err
	}
	rec, ok := current[key]
	if !ok {
		return nil, tracking.ErrNotFound
	}
	if rec.ReplacementBy == replacementBy {
		return current, nil
	}
	rec.ReplacementBy = replacementBy
	if err := store.Put(ctx, rec); err != nil {
		return nil, err
	}
	return store.Load(ctx)
}
