// Package store provides the in-memory, ordered key-value store the core's
// domain packages persist their maps in: holdings, the dispute registry,
// per-channel params, seen transactions and withdrawn markers (spec §9,
// "global state → encapsulated store").
//
// The core is single-threaded and transactional per call (spec §5): there
// is never more than one call in flight, so unlike a multi-block
// blockchain store this package has no need for a CacheWrap/Batch layer to
// stage writes for later commit-or-rollback at the storage level. Where the
// protocol itself needs rollback — withdraw's reserve/commit/rollback
// (spec §4.6) — it is implemented as ordinary, application-level
// compensating writes against this store, not as a storage transaction.
package store

import (
	"bytes"

	"github.com/google/btree"
)

// degree is the btree's branching factor; 32 matches common in-memory
// ordered-map btree usage and keeps tree depth shallow for the modest
// number of channels a canister manages.
const degree = 32

// KVStore is an ordered byte-string key-value store.
type KVStore interface {
	// Get returns the value stored for key, or nil if it is absent.
	Get(key []byte) []byte
	// Has reports whether key is present.
	Has(key []byte) bool
	// Set stores value under key, replacing any existing value.
	Set(key, value []byte)
	// Delete removes key, if present.
	Delete(key []byte)
	// Iterate calls fn for every key in [start, end) in ascending order,
	// stopping early if fn returns false.
	Iterate(start, end []byte, fn func(key, value []byte) bool)
}

// MemStore is a KVStore backed by an in-memory btree. It has no
// persistence of its own; the host runtime's stable-storage hook is
// responsible for round-tripping it across upgrades (spec §6).
type MemStore struct {
	bt *btree.BTree
}

var _ KVStore = (*MemStore)(nil)

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{bt: btree.New(degree)}
}

type item struct {
	key, value []byte
}

// Less implements btree.Item.
func (it item) Less(other btree.Item) bool {
	return bytes.Compare(it.key, other.(item).key) < 0
}

func (s *MemStore) Get(key []byte) []byte {
	found := s.bt.Get(item{key: key})
	if found == nil {
		return nil
	}
	return found.(item).value
}

func (s *MemStore) Has(key []byte) bool {
	return s.bt.Get(item{key: key}) != nil
}

func (s *MemStore) Set(key, value []byte) {
	cp := make([]byte, len(value))
	copy(cp, value)
	s.bt.ReplaceOrInsert(item{key: key, value: cp})
}

func (s *MemStore) Delete(key []byte) {
	s.bt.Delete(item{key: key})
}

// Iterate calls fn for every key >= start, in ascending order, stopping
// when a key reaches end (if end is non-nil) or fn returns false.
func (s *MemStore) Iterate(start, end []byte, fn func(key, value []byte) bool) {
	visit := func(i btree.Item) bool {
		it := i.(item)
		if end != nil && bytes.Compare(it.key, end) >= 0 {
			return false
		}
		return fn(it.key, it.value)
	}
	s.bt.AscendGreaterOrEqual(item{key: start}, visit)
}
