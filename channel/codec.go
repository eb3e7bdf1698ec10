package channel

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/perun-network/perun-icp-canister/crypto"
)

// Hash is the H of spec §4.1: a fixed 32-byte cryptographic hash. SHA-256 is
// the deployment's choice; changing it requires a coordinated hash-encoding
// version bump with off-chain signers (spec §9, "crypto choice").
func Hash(b []byte) [32]byte {
	return sha256.Sum256(b)
}

// The encoders below produce the canonical byte encoding participants sign
// over: fixed field order, fixed-width big-endian integers, length-prefixed
// sequences, every field always present. This mirrors the
// version|len(chainID)|chainID|nonce pattern weave's sigs controller uses to
// build its own sign bytes, generalized to this module's richer value
// types.

// EncodeParams returns the canonical encoding of p.
func EncodeParams(p Params) []byte {
	buf := make([]byte, 0, NonceLen+8+4+len(p.Participants)*crypto.KeyLen)
	buf = append(buf, p.Nonce[:]...)
	buf = appendUint64(buf, p.ChallengeDuration)
	buf = appendUint32(buf, uint32(len(p.Participants)))
	for _, pk := range p.Participants {
		buf = append(buf, pk[:]...)
	}
	return buf
}

// EncodeState returns the canonical encoding of s.
func EncodeState(s State) []byte {
	buf := make([]byte, 0, 32+8+4+len(s.Allocation)*8+1)
	buf = append(buf, s.Channel[:]...)
	buf = appendUint64(buf, s.Version)
	buf = appendUint32(buf, uint32(len(s.Allocation)))
	for _, a := range s.Allocation {
		buf = appendUint64(buf, uint64(a))
	}
	buf = append(buf, boolByte(s.Finalized))
	return buf
}

// EncodeWithdrawalRequest returns the canonical encoding of w.
func EncodeWithdrawalRequest(w WithdrawalRequest) []byte {
	buf := make([]byte, 0, 32+crypto.KeyLen+4+len(w.Receiver))
	buf = append(buf, w.Funding.Channel[:]...)
	buf = append(buf, w.Funding.Participant[:]...)
	buf = appendUint32(buf, uint32(len(w.Receiver)))
	buf = append(buf, w.Receiver...)
	return buf
}

func appendUint64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendUint32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
