package ledger

import (
	"sort"
)

// FormatVersion is the ledger document version this binary writes. Older
// versions load as-is; newer versions are refused as corruption rather than
// guessed at.
const FormatVersion = 1

// Ledger is the in-memory view of the persisted entry map.
type Ledger struct {
	version int
	entries map[string]Entry
}

// NewLedger creates an empty Ledger at the current format version.
func NewLedger() *Ledger {
	return &Ledger{
		version: FormatVersion,
		entries: make(map[string]Entry),
	}
}

// Version returns the ledger format version.
func (l *Ledger) Version() int {
	return l.version
}

// Len returns the number of entries.
func (l *Ledger) Len() int {
	return len(l.entries)
}

// Get returns the entry for an identity key.
func (l *Ledger) Get(key string) (Entry, bool) {
	entry, ok := l.entries[key]
	return entry, ok
}

// Set upserts an entry, keyed by its identity key.
func (l *Ledger) Set(entry Entry) {
	l.entries[entry.Key] = entry
}

// Entries returns all entries sorted by identity key.
func (l *Ledger) Entries() []Entry {
	keys := make([]string, 0, len(l.entries))
	for key := range l.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make([]Entry, 0, len(keys))
	for _, key := range keys {
		out = append(out, l.entries[key])
	}
	return out
}
