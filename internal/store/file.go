package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"kinderscout/internal/config"
	"kinderscout/internal/types"
)

const activitiesFile = "activities.json"

// FileStore keeps the catalogue in a single JSON file under the data
// directory. Suited for local runs and tests; writes go through a temp file
// so a crash cannot leave a half-written catalogue behind.
type FileStore struct {
	path   string
	logger *slog.Logger

	mu         sync.Mutex
	activities []types.Activity
}

// NewFileStore opens (or initializes) the JSON-file backend.
func NewFileStore(cfg *config.StoreConfig, logger *slog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, &types.StoreError{Backend: "file", Err: err}
	}

	s := &FileStore{
		path:   filepath.Join(cfg.DataDir, activitiesFile),
		logger: logger.With("component", "store", "backend", "file"),
	}

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, &types.StoreError{Backend: "file", Err: err}
	}
	if err := json.Unmarshal(data, &s.activities); err != nil {
		return nil, &types.StoreError{Backend: "file", Err: err}
	}
	return s, nil
}

func (s *FileStore) Load(ctx context.Context) ([]types.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]types.Activity, 0, len(s.activities))
	for _, a := range s.activities {
		if a.UserRemoved {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *FileStore) Get(ctx context.Context, rawURL string) (*types.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := NormalizeURL(rawURL)
	for i := range s.activities {
		if NormalizeURL(s.activities[i].URL) == key {
			a := s.activities[i]
			return &a, nil
		}
	}
	return nil, nil
}

func (s *FileStore) Upsert(ctx context.Context, activity types.Activity) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := NormalizeURL(activity.URL)
	updated := false
	for i := range s.activities {
		if NormalizeURL(s.activities[i].URL) == key {
			s.activities[i] = activity
			updated = true
			break
		}
	}
	if !updated {
		s.activities = append(s.activities, activity)
	}

	if err := s.persist(); err != nil {
		return updated, &types.StoreError{Backend: "file", Err: err}
	}
	s.logger.Debug("activity saved", "url", activity.URL, "updated", updated)
	return updated, nil
}

func (s *FileStore) persist() error {
	data, err := json.MarshalIndent(s.activities, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *FileStore) Close(ctx context.Context) error {
	return nil
}
