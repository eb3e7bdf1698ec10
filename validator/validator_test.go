package validator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perun-network/perun-icp-canister/channel"
	"github.com/perun-network/perun-icp-canister/crypto"
	"github.com/perun-network/perun-icp-canister/errors"
	"github.com/perun-network/perun-icp-canister/validator"
)

type fixture struct {
	params   channel.Params
	privs    []crypto.PrivateKey
	holdings channel.Amount
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	a, err := crypto.GenerateKey()
	require.NoError(t, err)
	b, err := crypto.GenerateKey()
	require.NoError(t, err)
	params := channel.Params{
		Nonce:             channel.Nonce{3},
		Participants:      []crypto.ParticipantKey{a.Public(), b.Public()},
		ChallengeDuration: 10,
	}
	return fixture{params: params, privs: []crypto.PrivateKey{a, b}, holdings: 300}
}

func (f fixture) sign(s channel.State) channel.FullySignedState {
	digest := s.Hash()
	sigs := make([]crypto.Signature, len(f.privs))
	for i, priv := range f.privs {
		sigs[i] = priv.Sign(digest)
	}
	return channel.FullySignedState{State: s, Sigs: sigs}
}

func TestValidateAccepts(t *testing.T) {
	f := newFixture(t)
	s := channel.State{Channel: f.params.ID(), Version: 1, Allocation: []channel.Amount{100, 200}}
	assert.NoError(t, validator.Validate(f.params, f.sign(s), f.holdings))
}

func TestValidateRejectsWrongChannelID(t *testing.T) {
	f := newFixture(t)
	s := channel.State{Channel: channel.ChannelID{0xAB}, Version: 1, Allocation: []channel.Amount{100, 200}}
	err := validator.Validate(f.params, f.sign(s), f.holdings)
	require.Error(t, err)
	assert.True(t, errors.ErrInvalidInput.Is(err))
}

func TestValidateRejectsOverAllocation(t *testing.T) {
	f := newFixture(t)
	s := channel.State{Channel: f.params.ID(), Version: 1, Allocation: []channel.Amount{250, 200}}
	err := validator.Validate(f.params, f.sign(s), f.holdings)
	require.Error(t, err)
	assert.True(t, errors.ErrInsufficientFunds.Is(err))
}

func TestValidateRejectsBadSignature(t *testing.T) {
	f := newFixture(t)
	s := channel.State{Channel: f.params.ID(), Version: 1, Allocation: []channel.Amount{100, 200}}
	signed := f.sign(s)

	intruder, err := crypto.GenerateKey()
	require.NoError(t, err)
	signed.Sigs[0] = intruder.Sign(s.Hash())

	err = validator.Validate(f.params, signed, f.holdings)
	require.Error(t, err)
	assert.True(t, errors.ErrAuthentication.Is(err))
}

func TestValidateRejectsWrongSignatureCount(t *testing.T) {
	f := newFixture(t)
	s := channel.State{Channel: f.params.ID(), Version: 1, Allocation: []channel.Amount{100, 200}}
	signed := f.sign(s)
	signed.Sigs = signed.Sigs[:1]

	err := validator.Validate(f.params, signed, f.holdings)
	require.Error(t, err)
	assert.True(t, errors.ErrInvalidInput.Is(err))
}
