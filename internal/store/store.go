// Package store implements the entry store: an ordered sequence of
// entries with unique keys, insertion order preserved across updates,
// and deep-copy semantics on every read. Entries live in a plain slice,
// with a parallel map from key to slice index for O(1) lookup.
package store

import (
	"time"

	"github.com/bluecrabdb/bluecrab/internal/bcerr"
	"github.com/bluecrabdb/bluecrab/internal/hashing"
	"github.com/bluecrabdb/bluecrab/internal/types"
)

// Outcome reports whether a set() inserted a new entry or updated an
// existing one.
type Outcome int

const (
	Inserted Outcome = iota
	Updated
)

// Now is the store's time source, overridable in tests.
type Now func() time.Time

// Store holds the live, uncommitted entry set of a database.
type Store struct {
	entries []*types.Entry
	index   map[string]int
	now     Now
}

// New returns an empty store using time.Now as its clock.
func New() *Store {
	return &Store{index: make(map[string]int), now: time.Now}
}

// NewWithClock returns an empty store using a caller-supplied clock,
// primarily for deterministic tests.
func NewWithClock(now Now) *Store {
	return &Store{index: make(map[string]int), now: now}
}

// Set inserts or updates key's value. Fails with InvalidArg if key is
// empty.
func (s *Store) Set(key string, v types.Value) (Outcome, error) {
	if key == "" {
		return 0, bcerr.Wrap("store.Set", bcerr.ErrInvalidArg, nil)
	}
	now := s.now()
	if i, ok := s.index[key]; ok {
		e := s.entries[i]
		e.Value = v.Clone()
		e.UpdatedAt = now
		e.Hash = hashing.Entry(e.Key, e.Value, e.Metadata, e.CreatedAt.UnixNano(), e.UpdatedAt.UnixNano())
		return Updated, nil
	}
	e := &types.Entry{
		Key:       key,
		Value:     v.Clone(),
		CreatedAt: now,
		UpdatedAt: now,
		Metadata:  "",
	}
	e.Hash = hashing.Entry(e.Key, e.Value, e.Metadata, e.CreatedAt.UnixNano(), e.UpdatedAt.UnixNano())
	s.index[key] = len(s.entries)
	s.entries = append(s.entries, e)
	return Inserted, nil
}

// Get returns a deep copy of key's value. Fails with NotFound if absent.
func (s *Store) Get(key string) (types.Value, error) {
	i, ok := s.index[key]
	if !ok {
		return types.Value{}, bcerr.Wrap("store.Get", bcerr.ErrNotFound, nil)
	}
	return s.entries[i].Value.Clone(), nil
}

// GetEntry returns a deep copy of key's whole entry. Fails with NotFound
// if absent.
func (s *Store) GetEntry(key string) (*types.Entry, error) {
	i, ok := s.index[key]
	if !ok {
		return nil, bcerr.Wrap("store.GetEntry", bcerr.ErrNotFound, nil)
	}
	return s.entries[i].Clone(), nil
}

// Delete removes key, preserving the relative order of the rest. Fails
// with NotFound if absent.
func (s *Store) Delete(key string) error {
	i, ok := s.index[key]
	if !ok {
		return bcerr.Wrap("store.Delete", bcerr.ErrNotFound, nil)
	}
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	delete(s.index, key)
	for k, idx := range s.index {
		if idx > i {
			s.index[k] = idx - 1
		}
	}
	return nil
}

// Has reports key's membership; never fails.
func (s *Store) Has(key string) bool {
	_, ok := s.index[key]
	return ok
}

// Clear removes every entry.
func (s *Store) Clear() {
	s.entries = nil
	s.index = make(map[string]int)
}

// Len returns the number of live entries.
func (s *Store) Len() int {
	return len(s.entries)
}

// SetMetadata associates a free-form annotation with key and recomputes
// its hash, since metadata participates in the hash. Fails with
// NotFound if key is absent.
func (s *Store) SetMetadata(key, metadata string) error {
	i, ok := s.index[key]
	if !ok {
		return bcerr.Wrap("store.SetMetadata", bcerr.ErrNotFound, nil)
	}
	e := s.entries[i]
	e.Metadata = metadata
	e.Hash = hashing.Entry(e.Key, e.Value, e.Metadata, e.CreatedAt.UnixNano(), e.UpdatedAt.UnixNano())
	return nil
}

// GetMetadata returns key's annotation. Fails with NotFound if absent.
func (s *Store) GetMetadata(key string) (string, error) {
	i, ok := s.index[key]
	if !ok {
		return "", bcerr.Wrap("store.GetMetadata", bcerr.ErrNotFound, nil)
	}
	return s.entries[i].Metadata, nil
}

// Keys returns every key in insertion order.
func (s *Store) Keys() []string {
	out := make([]string, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Key
	}
	return out
}

// Entries returns deep copies of every live entry, in insertion order.
// Used by commit() to capture a snapshot; commits must never alias live
// entries.
func (s *Store) Entries() []*types.Entry {
	return types.CloneEntries(s.entries)
}

// Replace discards the live set and installs a deep copy of snapshot, in
// the snapshot's order. Used by checkout() and merge()'s target reset.
func (s *Store) Replace(snapshot []*types.Entry) {
	s.entries = types.CloneEntries(snapshot)
	s.index = make(map[string]int, len(s.entries))
	for i, e := range s.entries {
		s.index[e.Key] = i
	}
}

// FindKeys returns the keys matching pattern, in insertion order.
func (s *Store) FindKeys(match func(key string) bool) []string {
	var out []string
	for _, e := range s.entries {
		if match(e.Key) {
			out = append(out, e.Key)
		}
	}
	return out
}

// FindEntries returns deep copies of the entries whose key matches, in
// insertion order.
func (s *Store) FindEntries(match func(key string) bool) []*types.Entry {
	var out []*types.Entry
	for _, e := range s.entries {
		if match(e.Key) {
			out = append(out, e.Clone())
		}
	}
	return out
}
