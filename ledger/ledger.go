// Package ledger implements the deposit ledger (spec §4.3): the
// per-(channel, participant) holdings map, additive until a participant
// withdraws, conserved across every deposit/withdraw sequence.
//
// The ledger never itself asks whether a channel may still accept deposits
// — that requires consulting the dispute registry, which lives in a
// separate package to avoid a dependency cycle. Callers (the core package)
// pass that verdict in explicitly.
package ledger

import (
	"encoding/binary"

	"github.com/perun-network/perun-icp-canister/channel"
	"github.com/perun-network/perun-icp-canister/crypto"
	"github.com/perun-network/perun-icp-canister/errors"
	"github.com/perun-network/perun-icp-canister/orm"
	"github.com/perun-network/perun-icp-canister/store"
)

const bucketName = "holdings"

// amountModel adapts channel.Amount to orm.Model.
type amountModel struct {
	value channel.Amount
}

func (m *amountModel) Marshal() ([]byte, error) {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(m.value))
	return buf, nil
}

func (m *amountModel) Unmarshal(raw []byte) error {
	m.value = channel.Amount(binary.BigEndian.Uint64(raw))
	return nil
}

// Ledger is the holdings map, keyed by Funding.
type Ledger struct {
	bucket orm.Bucket
}

// New returns an empty Ledger. It holds no data itself; every method reads
// and writes the store passed to it.
func New() *Ledger {
	return &Ledger{bucket: orm.NewBucket(bucketName, func() orm.Model { return &amountModel{} })}
}

func fundingKey(f channel.Funding) []byte {
	key := make([]byte, 32+crypto.KeyLen)
	copy(key, f.Channel[:])
	copy(key[32:], f.Participant[:])
	return key
}

// QueryHoldings returns (amount, true) if funding has a recorded balance,
// or (0, false) if it is unknown (spec §4.3, "absent when unknown").
func (l *Ledger) QueryHoldings(db store.KVStore, f channel.Funding) (channel.Amount, bool) {
	m, err := l.bucket.Get(db, fundingKey(f))
	if err != nil || m == nil {
		return 0, false
	}
	return m.(*amountModel).value, true
}

// Deposit additively credits funding by amount. finalized must reflect
// whether the channel's registry entry is already concluded (finalized or
// past its timeout); if so Deposit fails with Finalized, since once
// settlement is possible no new funds may be added (spec §4.3).
func (l *Ledger) Deposit(db store.KVStore, f channel.Funding, amount channel.Amount, finalized bool) error {
	if finalized {
		return errors.ErrFinalized.New("channel is already finalized")
	}
	current, _ := l.QueryHoldings(db, f)
	next := uint64(current) + uint64(amount)
	if next < uint64(current) {
		return errors.ErrInvalidInput.New("deposit overflows holdings")
	}
	return l.bucket.Save(db, fundingKey(f), &amountModel{value: channel.Amount(next)})
}

// HoldingsTotal returns the sum of holdings recorded for every participant
// of channel c (spec invariant 3, "allocation balance").
func (l *Ledger) HoldingsTotal(db store.KVStore, c channel.ChannelID, participants []crypto.ParticipantKey) (channel.Amount, error) {
	var total uint64
	for _, p := range participants {
		amount, _ := l.QueryHoldings(db, channel.Funding{Channel: c, Participant: p})
		next := total + uint64(amount)
		if next < total {
			return 0, errors.ErrInvalidInput.New("holdings total overflows")
		}
		total = next
	}
	return channel.Amount(total), nil
}

// SetAmount overwrites funding's recorded holdings with amount. It backs
// both the withdraw package's reservation step (zeroing holdings) and its
// rollback step (restoring the prior balance) — spec §4.6, steps 4 and 5.
func (l *Ledger) SetAmount(db store.KVStore, f channel.Funding, amount channel.Amount) error {
	return l.bucket.Save(db, fundingKey(f), &amountModel{value: amount})
}
