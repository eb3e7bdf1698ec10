package orm_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perun-network/perun-icp-canister/orm"
	"github.com/perun-network/perun-icp-canister/store"
)

type counter struct {
	n uint64
}

func (c *counter) Marshal() ([]byte, error) {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, c.n)
	return buf, nil
}

func (c *counter) Unmarshal(raw []byte) error {
	c.n = binary.BigEndian.Uint64(raw)
	return nil
}

func newCounterBucket() orm.Bucket {
	return orm.NewBucket("counters", func() orm.Model { return &counter{} })
}

func TestBucketGetMissIsNil(t *testing.T) {
	db := store.NewMemStore()
	b := newCounterBucket()

	m, err := b.Get(db, []byte("a"))
	require.NoError(t, err)
	assert.Nil(t, m)
	assert.False(t, b.Has(db, []byte("a")))
}

func TestBucketSaveGetRoundTrip(t *testing.T) {
	db := store.NewMemStore()
	b := newCounterBucket()

	require.NoError(t, b.Save(db, []byte("a"), &counter{n: 42}))
	assert.True(t, b.Has(db, []byte("a")))

	m, err := b.Get(db, []byte("a"))
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.EqualValues(t, 42, m.(*counter).n)
}

func TestBucketDelete(t *testing.T) {
	db := store.NewMemStore()
	b := newCounterBucket()
	require.NoError(t, b.Save(db, []byte("a"), &counter{n: 1}))

	b.Delete(db, []byte("a"))
	assert.False(t, b.Has(db, []byte("a")))
}

func TestBucketIterateIsScopedToPrefix(t *testing.T) {
	db := store.NewMemStore()
	counters := newCounterBucket()
	other := orm.NewBucket("others", func() orm.Model { return &counter{} })

	require.NoError(t, counters.Save(db, []byte("a"), &counter{n: 1}))
	require.NoError(t, counters.Save(db, []byte("b"), &counter{n: 2}))
	require.NoError(t, other.Save(db, []byte("a"), &counter{n: 99}))

	var total uint64
	var seenKeys []string
	err := counters.Iterate(db, func(key []byte, model orm.Model) bool {
		seenKeys = append(seenKeys, string(key))
		total += model.(*counter).n
		return true
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, seenKeys)
	assert.EqualValues(t, 3, total)
}
