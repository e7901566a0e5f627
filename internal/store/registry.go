package store

import (
	"encoding/json"
	"os"
	"path/filepath"

	"kinderscout/internal/types"
)

const registryFile = "all-urls.json"

// Registry is the candidate URL list shared by search ingestion and the
// liveness checker. It lives next to the activity catalogue in the data
// directory.
type Registry struct {
	path string
}

// NewRegistry opens the URL registry under the given data directory.
func NewRegistry(dataDir string) (*Registry, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, &types.StoreError{Backend: "registry", Err: err}
	}
	return &Registry{path: filepath.Join(dataDir, registryFile)}, nil
}

// Load reads all registry entries. A missing file is an empty registry.
func (r *Registry) Load() ([]types.URLEntry, error) {
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, &types.StoreError{Backend: "registry", Err: err}
	}
	var entries []types.URLEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, &types.StoreError{Backend: "registry", Err: err}
	}
	return entries, nil
}

// Save writes the registry atomically.
func (r *Registry) Save(entries []types.URLEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return &types.StoreError{Backend: "registry", Err: err}
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return &types.StoreError{Backend: "registry", Err: err}
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return &types.StoreError{Backend: "registry", Err: err}
	}
	return nil
}
