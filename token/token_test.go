package token_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perun-network/perun-icp-canister/store"
	"github.com/perun-network/perun-icp-canister/token"
)

func TestObserveIsIdempotent(t *testing.T) {
	db := store.NewMemStore()
	tr := token.NewTracker()

	seen, err := tr.Observe(db, 42)
	require.NoError(t, err)
	assert.False(t, seen)

	seen, err = tr.Observe(db, 42)
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestObserveDistinguishesBlocks(t *testing.T) {
	db := store.NewMemStore()
	tr := token.NewTracker()

	seen, err := tr.Observe(db, 1)
	require.NoError(t, err)
	assert.False(t, seen)

	seen, err = tr.Observe(db, 2)
	require.NoError(t, err)
	assert.False(t, seen)
}

// fakeTransferer is a Transferer test double that can be made to fail.
type fakeTransferer struct {
	fail     bool
	requests []token.TransferRequest
}

func (f *fakeTransferer) Transfer(ctx context.Context, req token.TransferRequest) error {
	if f.fail {
		return assert.AnError
	}
	f.requests = append(f.requests, req)
	return nil
}

func TestFakeTransfererRecordsRequests(t *testing.T) {
	f := &fakeTransferer{}
	require.NoError(t, f.Transfer(context.Background(), token.TransferRequest{Amount: 10}))
	assert.Len(t, f.requests, 1)
}
