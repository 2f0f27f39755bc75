package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	schemaVersion = "1.0"
	lockTimeout   = 5 * time.Second

	// ProgressFileName is the name of the progress file inside a batch output directory.
	ProgressFileName = ".progress.json"
)

// ProgressStore records which videos of a batch run already have a
// transcript on disk, so an interrupted run can resume where it stopped.
// The backing JSON file is rewritten atomically after every change and is
// guarded by a FileLock for the lifetime of the store.
type ProgressStore struct {
	path string
	lock *FileLock
	data *progressData
	mu   sync.RWMutex
}

// progressData is the top-level JSON structure.
type progressData struct {
	Version   string               `json:"version"`
	RunID     string               `json:"run_id"`
	UpdatedAt time.Time            `json:"updated_at"`
	Completed map[string]time.Time `json:"completed"`
	Skipped   map[string]string    `json:"skipped,omitempty"`
}

// OpenProgress opens (or creates) the progress file at path and locks it.
// With restart set any previous progress is discarded first.
func OpenProgress(ctx context.Context, path string, restart bool) (*ProgressStore, error) {
	s := &ProgressStore{
		path: path,
		lock: NewFileLock(path),
	}

	if err := s.lock.Lock(ctx, lockTimeout); err != nil {
		return nil, err
	}

	if restart {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.lock.Unlock()
			return nil, &StorageError{Op: "remove", Entity: "progress", ID: path, Err: err}
		}
	}

	if err := s.load(); err != nil {
		s.lock.Unlock()
		return nil, err
	}

	return s, nil
}

// load reads the JSON file into memory. Starts empty if the file doesn't exist.
func (s *ProgressStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.data = newProgressData()
			return nil
		}
		return &StorageError{Op: "read", Entity: "progress", ID: s.path, Err: err}
	}

	s.data = &progressData{}
	if err := json.Unmarshal(data, s.data); err != nil {
		return &StorageError{Op: "read", Entity: "progress", ID: s.path, Err: ErrStorageCorrupt}
	}
	if s.data.Completed == nil {
		s.data.Completed = make(map[string]time.Time)
	}
	if s.data.Skipped == nil {
		s.data.Skipped = make(map[string]string)
	}
	return nil
}

// save persists the data to disk atomically.
func (s *ProgressStore) save() error {
	s.data.UpdatedAt = time.Now().UTC()
	return WriteFile(s.path, "progress", func(w io.Writer) error {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(s.data)
	})
}

// RunID identifies the run that created the progress file.
func (s *ProgressStore) RunID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.RunID
}

// IsDone reports whether videoID was completed by this or an earlier run.
func (s *ProgressStore) IsDone(videoID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data.Completed[videoID]
	return ok
}

// Completed returns the completed video IDs in sorted order.
func (s *ProgressStore) Completed() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.data.Completed))
	for id := range s.data.Completed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// MarkDone records videoID as completed and persists the change.
func (s *ProgressStore) MarkDone(videoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data.Completed[videoID] = time.Now().UTC()
	delete(s.data.Skipped, videoID)
	return s.save()
}

// MarkSkipped records why videoID produced no transcript. Skipped videos are
// retried by later runs.
func (s *ProgressStore) MarkSkipped(videoID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data.Skipped[videoID] = reason
	return s.save()
}

// Skipped returns a copy of the skipped video reasons.
func (s *ProgressStore) Skipped() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.data.Skipped))
	for id, reason := range s.data.Skipped {
		out[id] = reason
	}
	return out
}

// Close releases the file lock.
func (s *ProgressStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lock.Unlock()
}

func newProgressData() *progressData {
	return &progressData{
		Version:   schemaVersion,
		RunID:     uuid.NewString(),
		UpdatedAt: time.Now().UTC(),
		Completed: make(map[string]time.Time),
		Skipped:   make(map[string]string),
	}
}
