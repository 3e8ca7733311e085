package store

import (
	"context"
	"encoding/json"
	"os"

	"github.com/killrazor/kevwatch/logger"
	"github.com/killrazor/kevwatch/throttle"
)

// FileStore keeps the throttle state in a local JSON file. It backs
// local runs and tests; CI runs use the S3 store.
type FileStore struct {
	path   string
	logger logger.Logger
}

var _ Store = &FileStore{}

func NewFileStore(path string, log logger.Logger) *FileStore {
	return &FileStore{
		path:   path,
		logger: log,
	}
}

func (f *FileStore) Load(_ context.Context) (*throttle.State, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var state throttle.State
	if err := json.Unmarshal(data, &state); err != nil {
		// Corrupt state is never fatal; start over from defaults.
		f.logger.Warnf("store: discarding corrupt throttle state at %s: %v", f.path, err)
		return nil, nil
	}
	return &state, nil
}

func (f *FileStore) Save(_ context.Context, state *throttle.State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, data, 0o644)
}
