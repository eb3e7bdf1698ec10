// Package channel defines the payment-channel domain model: the immutable
// parameters of a channel, the versioned states participants exchange
// off-chain, and the records the core persists about deposits, disputes and
// withdrawals. It also implements the canonical encoding that binds every
// one of these values to the hash participants actually sign.
package channel

import (
	"github.com/perun-network/perun-icp-canister/crypto"
)

// NonceLen is the length, in bytes, of a channel's disambiguating nonce.
const NonceLen = 32

// Nonce disambiguates channels that would otherwise share the same
// participants and challenge duration.
type Nonce [NonceLen]byte

// ChannelID identifies a channel. It is always H(encode(Params)) for the
// Params that created it; see ID.
type ChannelID [32]byte

// IsZero reports whether id is the zero channel id, which no real channel
// ever has since it would require hashing to all-zero bytes.
func (id ChannelID) IsZero() bool {
	var zero ChannelID
	return id == zero
}

// Amount is a non-negative quantity of the channel's single fungible asset,
// denominated in the asset's smallest unit (e.g. e8s for ICP).
type Amount uint64

// Principal is an opaque, host-assigned recipient identity. It is never
// interpreted by the core beyond being forwarded to the token subsystem as
// the destination of a withdrawal transfer.
type Principal []byte

// Equal reports whether two principals identify the same recipient.
func (p Principal) Equal(other Principal) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// Params are a channel's immutable parameters. They are fixed for the
// lifetime of the channel and determine its ChannelID.
type Params struct {
	Nonce             Nonce
	Participants      []crypto.ParticipantKey
	ChallengeDuration uint64 // seconds
}

// ID returns the channel id derived from params, i.e. H(encode(params)).
func (p Params) ID() ChannelID {
	return ChannelID(Hash(EncodeParams(p)))
}

// State is a versioned redistribution of a channel's holdings. Once
// Finalized is true, no later state may ever supersede it.
type State struct {
	Channel    ChannelID
	Version    uint64
	Allocation []Amount
	Finalized  bool
}

// Hash returns state_hash(state) = H(encode(state)).
func (s State) Hash() [32]byte {
	return Hash(EncodeState(s))
}

// Sum adds up the state's allocation, failing with InvalidInput on overflow
// rather than wrapping silently (see spec §9, "allocation arithmetic").
func (s State) Sum() (Amount, error) {
	return sumAmounts(s.Allocation)
}

// FullySignedState pairs a State with one signature per participant, each
// over state_hash(state).
type FullySignedState struct {
	State State
	Sigs  []crypto.Signature
}

// Funding keys the deposit ledger: it names a channel and one of its
// participants.
type Funding struct {
	Channel     ChannelID
	Participant crypto.ParticipantKey
}

// RegisteredState is the dispute registry's per-channel entry: the
// currently-winning state and the absolute time at which it becomes
// immutable (or already is, if Finalized).
type RegisteredState struct {
	State   State
	Timeout uint64 // unix seconds
}

// Concluded reports whether the registered state is terminal at time now:
// either it was finalized directly, or its challenge window has elapsed.
func (r RegisteredState) Concluded(now uint64) bool {
	return r.State.Finalized || now >= r.Timeout
}

// WithdrawalRequest asks the core to pay out a participant's allocation to
// an on-chain recipient. It is authenticated by a signature over its
// canonical encoding, binding the request to a specific Receiver.
type WithdrawalRequest struct {
	Funding  Funding
	Receiver Principal
}

// Hash returns wdreq_hash(req) = H(encode(req)).
func (w WithdrawalRequest) Hash() [32]byte {
	return Hash(EncodeWithdrawalRequest(w))
}
