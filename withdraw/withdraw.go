// Package withdraw implements the authenticated-withdrawal protocol (spec
// §4.6): a participant claims their allocated share of a concluded
// channel, authenticated by a receiver-bound signature, paid out through
// the external token subsystem with a two-phase reserve/commit/rollback
// around the actual transfer (spec §5).
package withdraw

import (
	"context"

	"github.com/perun-network/perun-icp-canister/channel"
	"github.com/perun-network/perun-icp-canister/crypto"
	"github.com/perun-network/perun-icp-canister/errors"
	"github.com/perun-network/perun-icp-canister/ledger"
	"github.com/perun-network/perun-icp-canister/orm"
	"github.com/perun-network/perun-icp-canister/registry"
	"github.com/perun-network/perun-icp-canister/store"
	"github.com/perun-network/perun-icp-canister/token"
)

const withdrawnBucketName = "withdrawn"

type withdrawnModel struct{}

func (*withdrawnModel) Marshal() ([]byte, error) { return []byte{1}, nil }
func (*withdrawnModel) Unmarshal([]byte) error    { return nil }

// Withdrawer carries out withdraw, consulting the registry and ledger and
// driving the external transfer.
type Withdrawer struct {
	registry  *registry.Registry
	ledger    *ledger.Ledger
	withdrawn orm.Bucket
}

// New returns a Withdrawer over the given registry and ledger.
func New(reg *registry.Registry, led *ledger.Ledger) *Withdrawer {
	return &Withdrawer{
		registry:  reg,
		ledger:    led,
		withdrawn: orm.NewBucket(withdrawnBucketName, func() orm.Model { return &withdrawnModel{} }),
	}
}

// Withdraw executes the withdrawal described by req, authenticated by sig,
// against transferer tr. On success it returns the amount paid out; on any
// failure it returns the zero amount and a classified error, with no
// lasting state mutation (spec §7 policy).
func (w *Withdrawer) Withdraw(ctx context.Context, db store.KVStore, tr token.Transferer, req channel.WithdrawalRequest, sig crypto.Signature, now uint64) (channel.Amount, error) {
	registered, ok := w.registry.QueryState(db, req.Funding.Channel)
	if !ok || !registered.Concluded(now) {
		return 0, errors.ErrNotFinalized.New("channel is not yet concluded")
	}

	params, ok := w.registry.LoadParams(db, req.Funding.Channel)
	if !ok {
		return 0, errors.ErrInvalidInput.New("channel params were never recorded")
	}
	index := -1
	for i, pk := range params.Participants {
		if pk.Equal(req.Funding.Participant) {
			index = i
			break
		}
	}
	if index < 0 {
		return 0, errors.ErrInvalidInput.New("participant is not part of this channel")
	}
	if index >= len(registered.State.Allocation) {
		return 0, errors.ErrInvalidInput.New("registered state allocation is shorter than participants")
	}

	if !req.Funding.Participant.Verify(req.Hash(), sig) {
		return 0, errors.ErrAuthentication.New("withdrawal request signature does not verify")
	}

	key := fundingKeyOf(req.Funding)
	if w.withdrawn.Has(db, key) {
		return 0, errors.ErrAlreadyWithdrawn.New("funding has already been withdrawn")
	}

	payout := registered.State.Allocation[index]
	previous, _ := w.ledger.QueryHoldings(db, req.Funding)

	// reserve: zero holdings and mark withdrawn before asking the token
	// subsystem to transfer anything, so a concurrent read never observes
	// funds as both held and in flight.
	if err := w.ledger.SetAmount(db, req.Funding, 0); err != nil {
		return 0, errors.Wrap(err, "reserve withdrawal")
	}
	if err := w.withdrawn.Save(db, key, &withdrawnModel{}); err != nil {
		return 0, errors.Wrap(err, "reserve withdrawal")
	}

	if err := tr.Transfer(ctx, token.TransferRequest{To: req.Receiver, Amount: payout}); err != nil {
		// rollback: restore both mutations so the failed attempt leaves no
		// trace (spec §4.6, step 5).
		w.withdrawn.Delete(db, key)
		if restoreErr := w.ledger.SetAmount(db, req.Funding, previous); restoreErr != nil {
			return 0, errors.Wrap(restoreErr, "rollback withdrawal after ledger failure")
		}
		return 0, errors.Wrap(errors.ErrLedgerFailure, errors.Cause(err).Error())
	}

	return payout, nil
}

func fundingKeyOf(f channel.Funding) []byte {
	key := make([]byte, 32+crypto.KeyLen)
	copy(key, f.Channel[:])
	copy(key[32:], f.Participant[:])
	return key
}
