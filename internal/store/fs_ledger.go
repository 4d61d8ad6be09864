package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FSLedger is a filesystem-backed statistics ledger: one JSON file per
// sentence mapping candidate text to its statistics vector. Entries are
// held in memory and flushed with Sync; loads are lazy per sentence.
// Safe for concurrent use.
type FSLedger struct {
	dir string

	mu     sync.Mutex
	loaded []bool
	dirty  []bool
	stats  []map[string][]int
}

// NewFSLedger opens (or creates) a ledger directory for the given number
// of sentences.
func NewFSLedger(dir string, numSentences int) (*FSLedger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}
	return &FSLedger{
		dir:    dir,
		loaded: make([]bool, numSentences),
		dirty:  make([]bool, numSentences),
		stats:  make([]map[string][]int, numSentences),
	}, nil
}

func (l *FSLedger) sentencePath(i int) string {
	return filepath.Join(l.dir, fmt.Sprintf("sent-%05d.json", i))
}

// load reads one sentence's entries from disk. Caller holds the lock.
func (l *FSLedger) load(i int) error {
	if l.loaded[i] {
		return nil
	}
	l.stats[i] = map[string][]int{}
	l.loaded[i] = true

	data, err := os.ReadFile(l.sentencePath(i))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read ledger file: %w", err)
	}
	if err := json.Unmarshal(data, &l.stats[i]); err != nil {
		return fmt.Errorf("failed to deserialize ledger file %s: %w", l.sentencePath(i), err)
	}
	return nil
}

// Put records statistics for a candidate. The entry is held in memory
// until the next Sync.
func (l *FSLedger) Put(sentence int, text string, stats []int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.load(sentence); err != nil {
		return err
	}
	l.stats[sentence][text] = stats
	l.dirty[sentence] = true
	return nil
}

// Get returns the stored statistics for a candidate, if present.
func (l *FSLedger) Get(sentence int, text string) ([]int, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.load(sentence); err != nil {
		return nil, false, err
	}
	stats, ok := l.stats[sentence][text]
	return stats, ok, nil
}

// Sync flushes every dirty sentence file atomically (temp file + rename).
func (l *FSLedger) Sync() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.stats {
		if !l.dirty[i] {
			continue
		}

		data, err := json.Marshal(l.stats[i])
		if err != nil {
			return fmt.Errorf("failed to serialize ledger for sentence %d: %w", i, err)
		}

		path := l.sentencePath(i)
		tempPath := path + ".tmp"
		if err := os.WriteFile(tempPath, data, 0644); err != nil {
			return fmt.Errorf("failed to write temp ledger file: %w", err)
		}
		if err := os.Rename(tempPath, path); err != nil {
			os.Remove(tempPath)
			return fmt.Errorf("failed to rename ledger file: %w", err)
		}
		l.dirty[i] = false
	}
	return nil
}
