// Package journal is the ledger of saved trade plans: a bounded, newest
// first list mirrored into a keyed-record store.
package journal

import (
	"errors"
	"fmt"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/tradelens/plan"
)

const (
	// JournalKey holds the JSON array of entries.
	JournalKey = "tradelens_journal"
	// AuthKey holds the session flag; only the literal "true" counts.
	AuthKey = "tradelens_auth"

	MaxEntries = 100
)

var (
	ErrNotFound        = errors.New("journal entry not found")
	ErrVersionConflict = errors.New("journal was modified since it was read")
	ErrInvalidStatus   = errors.New("invalid status")
)

// Ledger owns the in-memory list and its persisted copy. Every mutation
// persists first and only then replaces the in-memory list, so a failed
// write leaves the ledger unchanged.
type Ledger struct {
	mu      sync.Mutex
	kv      KV
	entries []plan.JournalEntry
	version uint64
}

func NewLedger(kv KV) *Ledger {
	return &Ledger{kv: kv, entries: []plan.JournalEntry{}}
}

// Load reads the persisted list. A missing, unreadable or malformed record
// yields an empty ledger; the problem is logged, never returned.
func (l *Ledger) Load() []plan.JournalEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.commit(l.read())
	return clone(l.entries)
}

func (l *Ledger) read() []plan.JournalEntry {
	b, err := l.kv.Get(JournalKey)
	if errors.Is(err, ErrKeyNotFound) {
		log.Debug().Str("key", JournalKey).Msg("no saved journal, starting empty")
		return []plan.JournalEntry{}
	}
	if err != nil {
		log.Warn().Err(err).Str("key", JournalKey).Msg("journal unreadable, starting empty")
		return []plan.JournalEntry{}
	}

	var entries []plan.JournalEntry
	if err := json.Unmarshal(b, &entries); err != nil {
		log.Warn().Err(err).Str("key", JournalKey).Msg("journal is not a JSON array, starting empty")
		return []plan.JournalEntry{}
	}
	kept := make([]plan.JournalEntry, 0, len(entries))
	for i, e := range entries {
		if e.ID == "" || !e.Status.Valid() {
			log.Warn().Int("row", i).Str("id", e.ID).Str("status", string(e.Status)).
				Msg("dropping malformed journal row")
			continue
		}
		kept = append(kept, e)
	}
	log.Debug().Int("entries", len(kept)).Msg("journal loaded")
	return kept
}

// Append records p as a PENDING entry at the front, dropping the oldest
// entries beyond MaxEntries, and returns the new list.
func (l *Ledger) Append(p plan.TradePlan) ([]plan.JournalEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.index(p.ID); ok {
		log.Warn().Str("id", p.ID).Msg("journal already holds an entry with this id")
	}

	keep := len(l.entries)
	if keep > MaxEntries-1 {
		keep = MaxEntries - 1
	}
	next := make([]plan.JournalEntry, 0, keep+1)
	next = append(next, plan.NewEntry(p))
	next = append(next, l.entries[:keep]...)

	if err := l.persist(next); err != nil {
		return nil, err
	}
	l.commit(next)
	return clone(next), nil
}

// ReplaceAll overwrites the list verbatim. version must be the one returned
// by the Snapshot the caller edited; otherwise ErrVersionConflict.
func (l *Ledger) ReplaceAll(version uint64, entries []plan.JournalEntry) ([]plan.JournalEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if version != l.version {
		return nil, fmt.Errorf("%w: have %d, got %d", ErrVersionConflict, l.version, version)
	}

	next := clone(entries)
	if err := l.persist(next); err != nil {
		return nil, err
	}
	l.commit(next)
	return clone(next), nil
}

// Snapshot returns a copy of the list and the version to pass to ReplaceAll.
func (l *Ledger) Snapshot() ([]plan.JournalEntry, uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return clone(l.entries), l.version
}

// SavedAt reports when the journal was last persisted, for backends that
// record it.
func (l *Ledger) SavedAt() (time.Time, bool) {
	ts, ok := l.kv.(Timestamped)
	if !ok {
		return time.Time{}, false
	}
	at, err := ts.UpdatedAt(JournalKey)
	if err != nil {
		return time.Time{}, false
	}
	return at, true
}

// Version is bumped by every successful load or mutation.
func (l *Ledger) Version() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.version
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Get returns the entry with id.
func (l *Ledger) Get(id string) (plan.JournalEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i, ok := l.index(id)
	if !ok {
		return plan.JournalEntry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return l.entries[i].Clone(), nil
}

// UpdateStatus sets the outcome of entry id. Any transition is allowed.
func (l *Ledger) UpdateStatus(id string, status plan.Status) (plan.JournalEntry, error) {
	if !status.Valid() {
		return plan.JournalEntry{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	return l.Update(id, func(e *plan.JournalEntry) { e.Status = status })
}

// SetNotes replaces the free-text notes of entry id.
func (l *Ledger) SetNotes(id, notes string) (plan.JournalEntry, error) {
	return l.Update(id, func(e *plan.JournalEntry) { e.Notes = notes })
}

// Update applies fn to entry id and persists the result in one write. An
// edit that leaves the entry without its id or with an invalid status is
// rejected and nothing is stored.
func (l *Ledger) Update(id string, fn func(*plan.JournalEntry)) (plan.JournalEntry, error) {
	return l.modify(id, func(e *plan.JournalEntry) error {
		fn(e)
		if e.ID != id {
			return fmt.Errorf("entry %s: id cannot be changed", id)
		}
		if !e.Status.Valid() {
			return fmt.Errorf("%w: %q", ErrInvalidStatus, e.Status)
		}
		return nil
	})
}

// Delete removes entry id.
func (l *Ledger) Delete(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	i, ok := l.index(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	next := make([]plan.JournalEntry, 0, len(l.entries)-1)
	next = append(next, l.entries[:i]...)
	next = append(next, l.entries[i+1:]...)

	if err := l.persist(next); err != nil {
		return err
	}
	l.commit(next)
	return nil
}

func (l *Ledger) modify(id string, fn func(*plan.JournalEntry) error) (plan.JournalEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i, ok := l.index(id)
	if !ok {
		return plan.JournalEntry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	next := clone(l.entries)
	if err := fn(&next[i]); err != nil {
		return plan.JournalEntry{}, err
	}

	if err := l.persist(next); err != nil {
		return plan.JournalEntry{}, err
	}
	l.commit(next)
	return next[i].Clone(), nil
}

// index finds the first entry with id. Caller holds mu.
func (l *Ledger) index(id string) (int, bool) {
	for i := range l.entries {
		if l.entries[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

func (l *Ledger) persist(entries []plan.JournalEntry) error {
	b, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode journal: %w", err)
	}
	if err := l.kv.Set(JournalKey, b); err != nil {
		return fmt.Errorf("save journal: %w", err)
	}
	return nil
}

func (l *Ledger) commit(entries []plan.JournalEntry) {
	l.entries = entries
	l.version++
}

// clone deep-copies entries; callers never share slices with the ledger.
func clone(entries []plan.JournalEntry) []plan.JournalEntry {
	out := make([]plan.JournalEntry, len(entries))
	for i, e := range entries {
		out[i] = e.Clone()
	}
	return out
}
