package tracking

import (
	"strings"
)

const keySeparator = "_"

// Key identifies a tracked staff week.
type Key struct {
	ID   string
	Week string
}

// String is the legacy "<id>_<week>" form used as the JSON object key.
func (k Key) String() string {
	return k.ID + keySeparator + k.Week
}

// Less orders keys by identifier then week.
func (k Key) Less(o Key) bool {
	if k.ID != o.ID {
		return k.ID < o.ID
	}
	return k.Week < o.Week
}

// parseKey recovers the identifier from a legacy key. The week stored in the
// record is authoritative, so identifiers and weeks may contain the separator.
func parseKey(raw, week string) Key {
	if week != "" {
		if id, ok := strings.CutSuffix(raw, keySeparator+week); ok {
			return Key{ID: id, Week: week}
		}
	}
	i := strings.LastIndex(raw, keySeparator)
	if i < 0 {
		return Key{ID: raw, Week: week}
	}
	if week == "" {
		week = raw[i+1:]
	}
	return Key{ID: raw[:i], Week: week}
}
