package ledger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perun-network/perun-icp-canister/channel"
	"github.com/perun-network/perun-icp-canister/crypto"
	"github.com/perun-network/perun-icp-canister/errors"
	"github.com/perun-network/perun-icp-canister/ledger"
	"github.com/perun-network/perun-icp-canister/store"
)

func newFunding(t *testing.T) channel.Funding {
	t.Helper()
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	return channel.Funding{
		Channel:     channel.ChannelID{1},
		Participant: priv.Public(),
	}
}

func TestQueryHoldingsAbsentByDefault(t *testing.T) {
	db := store.NewMemStore()
	l := ledger.New()
	f := newFunding(t)

	amount, ok := l.QueryHoldings(db, f)
	assert.False(t, ok)
	assert.Zero(t, amount)
}

func TestDepositIsAdditive(t *testing.T) {
	db := store.NewMemStore()
	l := ledger.New()
	f := newFunding(t)

	require.NoError(t, l.Deposit(db, f, 100, false))
	require.NoError(t, l.Deposit(db, f, 42, false))

	amount, ok := l.QueryHoldings(db, f)
	require.True(t, ok)
	assert.EqualValues(t, 142, amount)
}

func TestDepositRejectedWhenFinalized(t *testing.T) {
	db := store.NewMemStore()
	l := ledger.New()
	f := newFunding(t)

	err := l.Deposit(db, f, 10, true)
	require.Error(t, err)
	assert.True(t, errors.ErrFinalized.Is(err))
}

func TestHoldingsTotalSumsAllParticipants(t *testing.T) {
	db := store.NewMemStore()
	l := ledger.New()
	c := channel.ChannelID{7}
	privA, err := crypto.GenerateKey()
	require.NoError(t, err)
	privB, err := crypto.GenerateKey()
	require.NoError(t, err)
	a, b := privA.Public(), privB.Public()

	require.NoError(t, l.Deposit(db, channel.Funding{Channel: c, Participant: a}, 100, false))
	require.NoError(t, l.Deposit(db, channel.Funding{Channel: c, Participant: b}, 50, false))

	total, err := l.HoldingsTotal(db, c, []crypto.ParticipantKey{a, b})
	require.NoError(t, err)
	assert.EqualValues(t, 150, total)
}

func TestSetAmountOverwritesHoldings(t *testing.T) {
	db := store.NewMemStore()
	l := ledger.New()
	f := newFunding(t)
	require.NoError(t, l.Deposit(db, f, 100, false))

	require.NoError(t, l.SetAmount(db, f, 0))
	amount, ok := l.QueryHoldings(db, f)
	require.True(t, ok)
	assert.Zero(t, amount)
}
