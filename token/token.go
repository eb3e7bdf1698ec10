// Package token models the core's boundary with the external token/ledger
// subsystem (spec §6): the core accounts for amounts but never itself
// moves tokens. It defines the two shapes that cross that boundary — an
// outbound transfer request and an inbound credit notification — plus the
// bookkeeping that makes notification delivery idempotent.
package token

import (
	"context"

	"github.com/perun-network/perun-icp-canister/channel"
	"github.com/perun-network/perun-icp-canister/errors"
	"github.com/perun-network/perun-icp-canister/orm"
	"github.com/perun-network/perun-icp-canister/store"
)

// BlockIndex identifies a ledger transaction the core has been notified
// about. It is opaque to the core beyond being a dedup key.
type BlockIndex uint64

// TransferRequest asks the token subsystem to pay amount to recipient. It
// is what withdraw emits on success (spec §4.6, step 5).
type TransferRequest struct {
	To     channel.Principal
	Amount channel.Amount
}

// Transferer executes outbound transfers against the token subsystem. A
// canister deployment implements this over inter-canister calls to the
// ICP ledger; tests substitute a fake that never fails, or always does.
type Transferer interface {
	Transfer(ctx context.Context, req TransferRequest) error
}

// CreditNotification describes a deposit the token subsystem has already
// credited and is now notifying the core about, keyed by block.
type CreditNotification struct {
	Block   BlockIndex
	Funding channel.Funding
	Amount  channel.Amount
}

const seenBucketName = "seentx"

// seenModel is a one-byte marker: presence in the bucket is the only fact
// that matters.
type seenModel struct{}

func (*seenModel) Marshal() ([]byte, error) { return []byte{1}, nil }
func (*seenModel) Unmarshal([]byte) error   { return nil }

// Tracker deduplicates credit notifications by block index, so that
// redelivery of the same notification is a no-op (spec §5, "must be
// idempotent against repeated delivery of the same notification"; spec §6,
// "the core treats duplicate notifications as idempotent").
type Tracker struct {
	seen orm.Bucket
}

// NewTracker returns an empty Tracker. It holds no data itself; Observe
// reads and writes the store passed to it.
func NewTracker() *Tracker {
	return &Tracker{seen: orm.NewBucket(seenBucketName, func() orm.Model { return &seenModel{} })}
}

func blockKey(b BlockIndex) []byte {
	key := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		key[i] = byte(b)
		b >>= 8
	}
	return key
}

// Observe reports whether block has already been recorded, and if not,
// records it. Callers should skip crediting the ledger a second time when
// Observe returns true.
func (t *Tracker) Observe(db store.KVStore, block BlockIndex) (alreadySeen bool, err error) {
	key := blockKey(block)
	if t.seen.Has(db, key) {
		return true, nil
	}
	if err := t.seen.Save(db, key, &seenModel{}); err != nil {
		return false, errors.Wrap(err, "record seen transaction")
	}
	return false, nil
}
