package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perun-network/perun-icp-canister/channel"
	"github.com/perun-network/perun-icp-canister/crypto"
	"github.com/perun-network/perun-icp-canister/errors"
	"github.com/perun-network/perun-icp-canister/registry"
	"github.com/perun-network/perun-icp-canister/store"
)

func newParams(t *testing.T) channel.Params {
	t.Helper()
	a, err := crypto.GenerateKey()
	require.NoError(t, err)
	b, err := crypto.GenerateKey()
	require.NoError(t, err)
	return channel.Params{
		Nonce:             channel.Nonce{9},
		Participants:      []crypto.ParticipantKey{a.Public(), b.Public()},
		ChallengeDuration: 100,
	}
}

func fss(c channel.ChannelID, version uint64, finalized bool) channel.FullySignedState {
	return channel.FullySignedState{State: channel.State{
		Channel:    c,
		Version:    version,
		Allocation: []channel.Amount{1, 2},
		Finalized:  finalized,
	}}
}

func TestParamsRoundTrip(t *testing.T) {
	db := store.NewMemStore()
	r := registry.New()
	p := newParams(t)

	require.NoError(t, r.SaveParams(db, p))
	got, ok := r.LoadParams(db, p.ID())
	require.True(t, ok)
	assert.Equal(t, p.Participants[0], got.Participants[0])
	assert.Equal(t, p.ChallengeDuration, got.ChallengeDuration)
}

func TestDisputeOpensThenAdvances(t *testing.T) {
	db := store.NewMemStore()
	r := registry.New()
	p := newParams(t)
	c := p.ID()

	require.NoError(t, r.Dispute(db, c, p.ChallengeDuration, fss(c, 3, false), 1000))
	state, ok := r.QueryState(db, c)
	require.True(t, ok)
	assert.EqualValues(t, 3, state.State.Version)
	assert.EqualValues(t, 1100, state.Timeout)

	require.NoError(t, r.Dispute(db, c, p.ChallengeDuration, fss(c, 5, false), 1050))
	state, _ = r.QueryState(db, c)
	assert.EqualValues(t, 5, state.State.Version)
}

func TestDisputeRejectsOutdatedVersion(t *testing.T) {
	db := store.NewMemStore()
	r := registry.New()
	p := newParams(t)
	c := p.ID()
	require.NoError(t, r.Dispute(db, c, p.ChallengeDuration, fss(c, 5, false), 1000))

	err := r.Dispute(db, c, p.ChallengeDuration, fss(c, 4, false), 1010)
	require.Error(t, err)
	assert.True(t, errors.ErrOutdatedState.Is(err))
}

func TestDisputeRejectsAfterTimeout(t *testing.T) {
	db := store.NewMemStore()
	r := registry.New()
	p := newParams(t)
	c := p.ID()
	require.NoError(t, r.Dispute(db, c, p.ChallengeDuration, fss(c, 1, false), 1000))

	err := r.Dispute(db, c, p.ChallengeDuration, fss(c, 2, false), 1000+p.ChallengeDuration+1)
	require.Error(t, err)
	assert.True(t, errors.ErrNotDisputable.Is(err))
}

func TestConcludeDirectFinal(t *testing.T) {
	db := store.NewMemStore()
	r := registry.New()
	p := newParams(t)
	c := p.ID()

	final := fss(c, 7, true)
	require.NoError(t, r.Conclude(db, c, &final, 1000))

	state, ok := r.QueryState(db, c)
	require.True(t, ok)
	assert.True(t, state.Concluded(1000))
}

func TestConcludeAfterDisputeTimeout(t *testing.T) {
	db := store.NewMemStore()
	r := registry.New()
	p := newParams(t)
	c := p.ID()
	require.NoError(t, r.Dispute(db, c, p.ChallengeDuration, fss(c, 2, false), 1000))

	err := r.Conclude(db, c, nil, 1000+p.ChallengeDuration-1)
	require.Error(t, err)
	assert.True(t, errors.ErrNotFinalized.Is(err))

	require.NoError(t, r.Conclude(db, c, nil, 1000+p.ChallengeDuration))
	state, ok := r.QueryState(db, c)
	require.True(t, ok)
	assert.True(t, state.State.Finalized)
}

func TestConcludeWithoutDisputeFails(t *testing.T) {
	db := store.NewMemStore()
	r := registry.New()
	p := newParams(t)

	err := r.Conclude(db, p.ID(), nil, 1000)
	require.Error(t, err)
	assert.True(t, errors.ErrNotFinalized.Is(err))
}
