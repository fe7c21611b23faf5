package dedup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	apperrors "sjsage522/listingscout/pkg/errors"
)

const fileProvider = "state-file"

// legacy last_run values carry no zone
var lastRunLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

type fileState struct {
	Seen     map[string]time.Time `json:"seen,omitempty"`
	KnownIDs []string             `json:"known_ids,omitempty"`
	LastRun  string               `json:"last_run,omitempty"`
}

// FileBackend keeps the state in a JSON file replaced by rename.
type FileBackend struct {
	path string
	// beforeRename runs after the temporary file is synced; an error aborts the commit
	beforeRename func(tmp string) error
}

// NewFileBackend creates a backend writing to path
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// Path returns the state file location
func (f *FileBackend) Path() string {
	return f.path
}

// Load reads the state file. The older {"known_ids": [...]} layout is accepted.
func (f *FileBackend) Load(ctx context.Context) (State, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return NewState(), nil
	}
	if err != nil {
		return State{}, apperrors.NewPersistence(fileProvider, "failed to read "+f.path, err)
	}

	var raw fileState
	if err := json.Unmarshal(data, &raw); err != nil {
		return State{}, apperrors.NewPersistence(fileProvider, "corrupt state file "+f.path, err)
	}

	state := NewState()
	if raw.LastRun != "" {
		state.LastRun, err = parseLastRun(raw.LastRun)
		if err != nil {
			return State{}, apperrors.NewPersistence(fileProvider, "corrupt last_run in "+f.path, err)
		}
	}
	for id, at := range raw.Seen {
		state.Seen[id] = at
	}
	for _, id := range raw.KnownIDs {
		if _, ok := state.Seen[id]; !ok {
			state.Seen[id] = state.LastRun
		}
	}
	return state, nil
}

// Commit writes the state to a temporary file in the same directory, syncs
// it and renames it over the previous file.
func (f *FileBackend) Commit(ctx context.Context, state State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperrors.NewPersistence(fileProvider, "failed to create "+dir, err)
	}

	raw := fileState{Seen: state.Seen}
	if raw.Seen == nil {
		raw.Seen = map[string]time.Time{}
	}
	if !state.LastRun.IsZero() {
		raw.LastRun = state.LastRun.UTC().Format(time.RFC3339Nano)
	}
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return apperrors.NewPersistence(fileProvider, "failed to encode state", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return apperrors.NewPersistence(fileProvider, "failed to create temp file", err)
	}
	tmpName := tmp.Name()
	renamed := false
	defer func() {
		if !renamed {
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return apperrors.NewPersistence(fileProvider, "failed to write temp file", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return apperrors.NewPersistence(fileProvider, "failed to sync temp file", err)
	}
	if err := tmp.Close(); err != nil {
		return apperrors.NewPersistence(fileProvider, "failed to close temp file", err)
	}

	if f.beforeRename != nil {
		if err := f.beforeRename(tmpName); err != nil {
			return apperrors.NewPersistence(fileProvider, "commit interrupted", err)
		}
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return apperrors.NewPersistence(fileProvider, fmt.Sprintf("failed to replace %s", f.path), err)
	}
	renamed = true
	syncDir(dir)
	return nil
}

// syncDir flushes the rename; not every platform supports it
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	d.Sync()
	d.Close()
}

func parseLastRun(value string) (time.Time, error) {
	var lastErr error
	for _, layout := range lastRunLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
