// Package validator implements the state-transition validator (spec §4.4):
// it is the sole gate through which a FullySignedState must pass before the
// registry or ledger ever acts on it.
package validator

import (
	"github.com/perun-network/perun-icp-canister/channel"
	"github.com/perun-network/perun-icp-canister/errors"
)

// Validate checks fss against params and the channel's current holdings
// total, per spec §4.4's five numbered rules. It does not consult the
// registry: monotonic-version and timeout checks are the registry's job
// (spec §4.5), layered on top of this validator by the core.
func Validate(params channel.Params, fss channel.FullySignedState, holdingsTotal channel.Amount) error {
	if err := params.Validate(); err != nil {
		return errors.Wrap(err, "invalid params")
	}
	if err := fss.State.Validate(params); err != nil {
		return err
	}

	sum, err := fss.State.Sum()
	if err != nil {
		return err
	}
	if sum > holdingsTotal {
		return errors.ErrInsufficientFunds.Newf("allocation sums to %d, holdings total only %d", sum, holdingsTotal)
	}

	if len(fss.Sigs) != len(params.Participants) {
		return errors.ErrInvalidInput.Newf("got %d signatures, want %d", len(fss.Sigs), len(params.Participants))
	}
	digest := fss.State.Hash()
	for i, pk := range params.Participants {
		if !pk.Verify(digest, fss.Sigs[i]) {
			return errors.ErrAuthentication.Newf("signature %d does not verify", i)
		}
	}
	return nil
}
