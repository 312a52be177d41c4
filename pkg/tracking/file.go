package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/doctopus/leavewatch/internal/utils"
)

// FileStore keeps the mapping in a single JSON object of the form
// {"<id>_<week>": {date, name, contract_type, csm, week, replacement_by?}}.
// Every mutation rewrites the whole file.
type FileStore struct {
	path string
	lock *utils.FileLock
	mu   sync.Mutex
}

// OpenFile opens a JSON store, creating its directory if needed.
func OpenFile(path string) (*FileStore, error) {
	if path == "" {
		path = DefaultPath(BackendJSON)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}
	lock, err := utils.NewFileLock(path)
	if err != nil {
		return nil, err
	}
	return &FileStore{path: path, lock: lock}, nil
}

// Path returns the JSON file location.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Load(_ context.Context) (Tracking, error) {
	return s.read()
}

func (s *FileStore) Save(_ context.Context, t Tracking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.lock.Lock(); err != nil {
		return err
	}
	defer s.lock.Unlock()
	return s.write(t)
}

func (s *FileStore) Put(_ context.Context, r Record) error {
	return s.update(func(t Tracking) {
		t[r.Key()] = r
	})
}

func (s *FileStore) Delete(_ context.Context, k Key) error {
	return s.update(func(t Tracking) {
		delete(t, k)
	})
}

func (s *FileStore) Close() error {
	return nil
}

// update runs a read-modify-write cycle under both locks.
func (s *FileStore) update(fn func(Tracking)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.lock.Lock(); err != nil {
		return err
	}
	defer s.lock.Unlock()

	t, err := s.read()
	if err != nil {
		return err
	}
	fn(t)
	return s.write(t)
}

func (s *FileStore) read() (Tracking, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Tracking{}, nil
		}
		return nil, fmt.Errorf("reading tracking file: %w", err)
	}
	return decodeJSON(data)
}

// write replaces the file atomically: temp file in the same directory, then rename.
func (s *FileStore) write(t Tracking) error {
	data, err := encodeJSON(t)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp tracking file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp tracking file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp tracking file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp tracking file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replacing tracking file: %w", err)
	}

	utils.Log.WithField("records", len(t)).Debugf("Tracking file %s written", s.path)
	return nil
}

func decodeJSON(data []byte) (Tracking, error) {
	raw := map[string]Record{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding tracking file: %w", err)
	}
	t := make(Tracking, len(raw))
	for k, r := range raw {
		key := parseKey(k, r.Week)
		r.ID = key.ID
		r.Week = key.Week
		t[key] = r
	}
	return t, nil
}

func encodeJSON(t Tracking) ([]byte, error) {
	raw := make(map[string]Record, len(t))
	for k, r := range t {
		flat := k.String()
		if prev, ok := raw[flat]; ok {
			return nil, fmt.Errorf("%w: %s/%s and %s/%s both map to %q", ErrKeyCollision, prev.ID, prev.Week, k.ID, k.Week, flat)
		}
		r.ID, r.Week = k.ID, k.Week
		raw[flat] = r
	}
	// encoding/json sorts map keys, so the output is stable.
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encoding tracking file: %w", err)
	}
	return data, nil
}
