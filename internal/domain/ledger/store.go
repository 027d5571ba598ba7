package ledger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Store errors.
var (
	// ErrCorrupt means the persisted ledger is unreadable or structurally
	// invalid. It is fatal: the store never repairs or truncates on its own.
	ErrCorrupt = errors.New("ledger is corrupt")
	// ErrSaveFailed wraps persistence failures.
	ErrSaveFailed = errors.New("failed to save ledger")
)

// documentDTO is the on-disk YAML shape.
type documentDTO struct {
	Version int     `yaml:"version"`
	Entries []Entry `yaml:"entries"`
}

// Store persists the ledger as a versioned YAML document. Writes go through
// a temp file followed by a rename, so a crash mid-write leaves the previous
// document intact and a half-written entry is never observable.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore creates a Store at the given path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the ledger from disk. A missing file yields an empty ledger;
// anything unreadable yields ErrCorrupt.
func (s *Store) Load() (*Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store) loadLocked() (*Ledger, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return NewLedger(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	var doc documentDTO
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if doc.Version > FormatVersion {
		return nil, fmt.Errorf("%w: version %d is newer than supported version %d",
			ErrCorrupt, doc.Version, FormatVersion)
	}

	ledger := NewLedger()
	for _, entry := range doc.Entries {
		if entry.Key == "" || entry.Hash == "" {
			return nil, fmt.Errorf("%w: entry with empty key or hash", ErrCorrupt)
		}
		ledger.Set(entry)
	}
	return ledger, nil
}

// Record upserts one entry and persists the whole document atomically.
func (s *Store) Record(entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ledger, err := s.loadLocked()
	if err != nil {
		return err
	}
	if entry.AppliedAt.IsZero() {
		entry.AppliedAt = time.Now().UTC()
	}
	ledger.Set(entry)
	return s.saveLocked(ledger)
}

// Save persists the full ledger atomically.
func (s *Store) Save(ledger *Ledger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(ledger)
}

func (s *Store) saveLocked(ledger *Ledger) error {
	doc := documentDTO{
		Version: FormatVersion,
		Entries: ledger.Entries(),
	}

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: failed to create directory: %w", ErrSaveFailed, err)
	}

	// Write-new-then-swap keeps the previous document intact on crash.
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	return nil
}
