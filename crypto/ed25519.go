// Package crypto wraps the Ed25519 primitives used to authenticate
// participants of a channel: state signatures and withdrawal-request
// signatures are both Ed25519 signatures over a 32-byte digest produced by
// the channel package's canonical encoding.
package crypto

import (
	"crypto/rand"
	"crypto/subtle"

	"golang.org/x/crypto/ed25519"

	"github.com/perun-network/perun-icp-canister/errors"
)

// KeyLen is the length, in bytes, of an Ed25519 public key.
const KeyLen = ed25519.PublicKeySize

// SigLen is the length, in bytes, of an Ed25519 signature.
const SigLen = ed25519.SignatureSize

// ParticipantKey is a participant's Ed25519 public key, as it appears in
// Params.Participants.
type ParticipantKey [KeyLen]byte

// Signature is a detached Ed25519 signature over a 32-byte digest.
type Signature [SigLen]byte

// Verify reports whether sig is participant pk's signature over digest. It
// never panics: a key or signature that fails to parse simply does not
// verify.
func (pk ParticipantKey) Verify(digest [32]byte, sig Signature) bool {
	return ed25519.Verify(pk[:], digest[:], sig[:])
}

// IsZero reports whether pk is the zero value, which is never a valid
// Ed25519 public key.
func (pk ParticipantKey) IsZero() bool {
	var zero ParticipantKey
	return subtle.ConstantTimeCompare(pk[:], zero[:]) == 1
}

// Equal reports whether two participant keys are the same.
func (pk ParticipantKey) Equal(other ParticipantKey) bool {
	return subtle.ConstantTimeCompare(pk[:], other[:]) == 1
}

// PrivateKey is an Ed25519 private key. It is only needed by participants
// signing off-chain states and by tests constructing fixtures; the core
// itself never holds one.
type PrivateKey ed25519.PrivateKey

// Sign signs digest with priv, returning a detached signature.
func (priv PrivateKey) Sign(digest [32]byte) Signature {
	raw := ed25519.Sign(ed25519.PrivateKey(priv), digest[:])
	var sig Signature
	copy(sig[:], raw)
	return sig
}

// Public returns the participant key corresponding to priv.
func (priv PrivateKey) Public() ParticipantKey {
	pub := ed25519.PrivateKey(priv).Public().(ed25519.PublicKey)
	var pk ParticipantKey
	copy(pk[:], pub)
	return pk
}

// GenerateKey returns a fresh, randomly generated private key.
func GenerateKey() (PrivateKey, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, errors.Wrap(errors.ErrHuman, "generate ed25519 key: "+err.Error())
	}
	return PrivateKey(priv), nil
}

// PrivateKeyFromSeed deterministically derives a private key from a 32-byte
// seed. It is intended for test fixtures that need reproducible keys.
func PrivateKeyFromSeed(seed []byte) PrivateKey {
	return PrivateKey(ed25519.NewKeyFromSeed(seed))
}
