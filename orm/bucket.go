// Package orm provides a thin, typed wrapper over store.KVStore: a Bucket
// scopes a prefixed subspace of the store to a single kind of model,
// indexed by an opaque key, with all of the marshaling boilerplate in one
// place. It is deliberately a much smaller cousin of a full ORM — no
// secondary indexes, no sequences — since every one of the core's buckets
// (holdings, registry, params, seen transactions, withdrawn markers) is
// looked up solely by its natural key.
package orm

import (
	"regexp"

	"github.com/perun-network/perun-icp-canister/errors"
	"github.com/perun-network/perun-icp-canister/store"
)

var isBucketName = regexp.MustCompile(`^[a-z_]{3,16}$`).MatchString

// Model is anything a Bucket can persist: it must be able to marshal itself
// to and from bytes.
type Model interface {
	Marshal() ([]byte, error)
	Unmarshal([]byte) error
}

// Bucket is a prefixed subspace of a store.KVStore holding one kind of
// Model, identified by New.
type Bucket struct {
	prefix []byte
	new    func() Model
}

// NewBucket returns a bucket named name, storing models produced by new.
// New must return a fresh, zero-valued Model each call; it is used both to
// unmarshal into and, where useful, as a prototype.
func NewBucket(name string, new func() Model) Bucket {
	if !isBucketName(name) {
		panic("illegal bucket name: " + name)
	}
	return Bucket{prefix: append([]byte(name), ':'), new: new}
}

// dbKey returns the full store key for a bucket-local key.
func (b Bucket) dbKey(key []byte) []byte {
	out := make([]byte, len(b.prefix)+len(key))
	copy(out, b.prefix)
	copy(out[len(b.prefix):], key)
	return out
}

// Has reports whether key is present in the bucket.
func (b Bucket) Has(db store.KVStore, key []byte) bool {
	return db.Has(b.dbKey(key))
}

// Get loads the model stored under key. It returns (nil, nil) on a miss.
func (b Bucket) Get(db store.KVStore, key []byte) (Model, error) {
	raw := db.Get(b.dbKey(key))
	if raw == nil {
		return nil, nil
	}
	m := b.new()
	if err := m.Unmarshal(raw); err != nil {
		return nil, errors.Wrap(errors.ErrHuman, "unmarshal bucket model: "+err.Error())
	}
	return m, nil
}

// Save writes model under key, overwriting any previous value.
func (b Bucket) Save(db store.KVStore, key []byte, model Model) error {
	raw, err := model.Marshal()
	if err != nil {
		return errors.Wrap(errors.ErrHuman, "marshal bucket model: "+err.Error())
	}
	db.Set(b.dbKey(key), raw)
	return nil
}

// Delete removes key from the bucket, if present.
func (b Bucket) Delete(db store.KVStore, key []byte) {
	db.Delete(b.dbKey(key))
}

// Iterate calls fn for every (key, model) pair in the bucket, in ascending
// key order, stopping early if fn returns false or a model fails to
// unmarshal.
func (b Bucket) Iterate(db store.KVStore, fn func(key []byte, model Model) bool) error {
	var unmarshalErr error
	end := prefixEnd(b.prefix)
	db.Iterate(b.prefix, end, func(dbKey, value []byte) bool {
		key := dbKey[len(b.prefix):]
		m := b.new()
		if err := m.Unmarshal(value); err != nil {
			unmarshalErr = err
			return false
		}
		return fn(key, m)
	})
	return unmarshalErr
}

// prefixEnd returns the smallest key that is strictly greater than every
// key with the given prefix, i.e. the exclusive upper bound of the
// prefix's key range.
func prefixEnd(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end
		}
	}
	// every byte was 0xFF: there is no finite upper bound, so fall back to
	// an unbounded scan.
	return nil
}
