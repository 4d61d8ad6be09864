package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// FSStore implements the Store interface using filesystem-based
// persistence. Run data lives under <baseDir>/runs/<runID>/: the state
// file, retained per-round candidate streams, and the statistics ledger.
//
// Thread-safety: state writes use atomic file operations (temp file +
// rename) and need no locks.
type FSStore struct {
	baseDir string
}

// NewFSStore creates a new filesystem-based store.
// The baseDir will be created if it doesn't exist.
func NewFSStore(baseDir string) (*FSStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &FSStore{baseDir: baseDir}, nil
}

// BaseDir returns the store's root directory.
func (fs *FSStore) BaseDir() string {
	return fs.baseDir
}

// RunDir returns the directory holding everything for a given run.
func (fs *FSStore) RunDir(runID string) string {
	return filepath.Join(fs.baseDir, "runs", runID)
}

// RoundFile returns the path a round's candidate stream is retained at.
func (fs *FSStore) RoundFile(runID string, round int) string {
	return filepath.Join(fs.RunDir(runID), fmt.Sprintf("round-%04d.nbest", round))
}

// LedgerDir returns the directory the run's statistics ledger lives in.
func (fs *FSStore) LedgerDir(runID string) string {
	return filepath.Join(fs.RunDir(runID), "stats")
}

func (fs *FSStore) statePath(runID string) string {
	return filepath.Join(fs.RunDir(runID), "state.json")
}

// SaveState atomically saves the run state for the given run.
// Uses temp file + rename to ensure atomicity.
func (fs *FSStore) SaveState(runID string, state *RunState) error {
	if runID == "" {
		return fmt.Errorf("runID cannot be empty")
	}
	if state == nil {
		return fmt.Errorf("state cannot be nil")
	}

	if err := os.MkdirAll(fs.RunDir(runID), 0755); err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize run state: %w", err)
	}

	tempPath := fs.statePath(runID) + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp state file: %w", err)
	}

	finalPath := fs.statePath(runID)
	if err := os.Rename(tempPath, finalPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename state file: %w", err)
	}

	slog.Debug("run state saved", "runID", runID, "round", state.Round, "path", finalPath)
	return nil
}

// LoadState retrieves the state for the given run.
func (fs *FSStore) LoadState(runID string) (*RunState, error) {
	if runID == "" {
		return nil, fmt.Errorf("runID cannot be empty")
	}

	path := fs.statePath(runID)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, &NotFoundError{RunID: runID}
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat state file: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var state RunState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to deserialize run state: %w", err)
	}

	slog.Debug("run state loaded", "runID", runID, "round", state.Round)
	return &state, nil
}

// ListStates returns metadata for all saved runs.
func (fs *FSStore) ListStates() ([]StateInfo, error) {
	runsDir := filepath.Join(fs.baseDir, "runs")

	if _, err := os.Stat(runsDir); os.IsNotExist(err) {
		return []StateInfo{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat runs directory: %w", err)
	}

	entries, err := os.ReadDir(runsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read runs directory: %w", err)
	}

	var infos []StateInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		runID := entry.Name()
		if _, err := os.Stat(fs.statePath(runID)); os.IsNotExist(err) {
			continue
		}

		state, err := fs.LoadState(runID)
		if err != nil {
			slog.Warn("failed to load run state for listing", "runID", runID, "error", err)
			continue
		}
		infos = append(infos, state.ToInfo())
	}

	slog.Debug("listed run states", "count", len(infos))
	return infos, nil
}

// DeleteState removes the run's state, retained round files, and ledger.
func (fs *FSStore) DeleteState(runID string) error {
	if runID == "" {
		return fmt.Errorf("runID cannot be empty")
	}

	runDir := fs.RunDir(runID)
	if _, err := os.Stat(runDir); os.IsNotExist(err) {
		return &NotFoundError{RunID: runID}
	} else if err != nil {
		return fmt.Errorf("failed to stat run directory: %w", err)
	}

	if err := os.RemoveAll(runDir); err != nil {
		return fmt.Errorf("failed to remove run directory: %w", err)
	}

	slog.Debug("run state deleted", "runID", runID, "path", runDir)
	return nil
}
