package tracking

import (
	"context"
	"fmt"
	"strings"
)

// Backend names accepted by Open.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Store persists the tracking mapping.
type Store interface {
	// Load returns every record. A store that has never been written is empty.
	Load(ctx context.Context) (Tracking, error)
	// Save replaces the whole mapping.
	Save(ctx context.Context, t Tracking) error
	// Put creates or replaces one record.
	Put(ctx context.Context, r Record) error
	// Delete removes one record. Deleting a missing key is not an error.
	Delete(ctx context.Context, k Key) error
	Close() error
}

// Open opens the store for backend at path.
func Open(backend, path string) (Store, error) {
	switch strings.ToLower(backend) {
	case "", BackendJSON:
		return OpenFile(path)
	case BackendSQLite:
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("unknown store backend %q (available: json, sqlite)", backend)
	}
}

// DefaultPath returns the conventional location of a backend's data file.
func DefaultPath(backend string) string {
	if strings.ToLower(backend) == BackendSQLite {
		return "data/tracking.sqlite"
	}
	return "data/tracking_data.json"
}
