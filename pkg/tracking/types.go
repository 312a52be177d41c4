package tracking

import (
	"errors"
	"sort"
	"time"

	"github.com/doctopus/leavewatch/pkg/report"
)

// DateLayout is the format of Record.Date.
const DateLayout = "2006-01-02"

// ErrNotFound is returned when a record does not exist in the store.
var ErrNotFound = errors.New("tracking record not found")

// ErrKeyCollision is returned by the JSON store when two different keys
// flatten to the same "<id>_<week>" string.
var ErrKeyCollision = errors.New("tracking keys collide in the JSON file")

// Record notes that a staff member's leave week has been covered.
type Record struct {
	// ID is the staff identifier. On disk it only lives in the map key.
	ID            string `json:"-"`
	Date          string `json:"date"`
	Name          string `json:"name"`
	ContractType  string `json:"contract_type"`
	CSM           string `json:"csm"`
	Week          string `json:"week"`
	ReplacementBy string `json:"replacement_by,omitempty"`
}

// Key returns the record's identity.
func (r Record) Key() Key {
	return Key{ID: r.ID, Week: r.Week}
}

// NewRecord snapshots a staff row at the moment it is marked replaced.
func NewRecord(s report.StaffRecord, now time.Time) Record {
	return Record{
		ID:           s.ID,
		Date:         now.Format(DateLayout),
		Name:         s.Name,
		ContractType: s.ContractType,
		CSM:          s.CSM,
		Week:         s.Week,
	}
}

// Tracking is the full set of replaced staff weeks.
type Tracking map[Key]Record

// Has reports whether the key is tracked.
func (t Tracking) Has(k Key) bool {
	_, ok := t[k]
	return ok
}

// Clone returns a shallow copy of t.
func (t Tracking) Clone() Tracking {
	out := make(Tracking, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Sorted returns the records ordered by identifier then week.
func (t Tracking) Sorted() []Record {
	out := make([]Record, 0, len(t))
	for _, r := range t {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key().Less(out[j].Key())
	})
	return out
}
