package channel

import (
	"github.com/perun-network/perun-icp-canister/crypto"
	"github.com/perun-network/perun-icp-canister/errors"
)

// MinParticipants is the minimum participant count a channel may have
// (spec §3, Params.participants "length ≥ 2").
const MinParticipants = 2

// Validate checks p's shape in isolation, independent of any registry or
// ledger state: nonce is always present, so only participant count,
// non-zero keys and uniqueness are checked here.
func (p Params) Validate() error {
	var errs error
	if len(p.Participants) < MinParticipants {
		errs = errors.AppendField(errs, "Participants",
			errors.ErrInvalidInput.Newf("need at least %d participants, got %d", MinParticipants, len(p.Participants)))
	}
	seen := make(map[crypto.ParticipantKey]bool, len(p.Participants))
	for i, pk := range p.Participants {
		if pk.IsZero() {
			errs = errors.AppendField(errs, "Participants", errors.ErrInvalidInput.Newf("participant %d is the zero key", i))
			continue
		}
		if seen[pk] {
			errs = errors.AppendField(errs, "Participants", errors.ErrInvalidInput.Newf("participant %d is a duplicate", i))
		}
		seen[pk] = true
	}
	return errs
}

// Validate checks that s is well-formed with respect to params: it does not
// check signatures or holdings, which are the validator package's job
// (spec §4.4, rules 3-5 straddle multiple components).
func (s State) Validate(params Params) error {
	var errs error
	if s.Channel != params.ID() {
		errs = errors.AppendField(errs, "Channel", errors.ErrInvalidInput.New("channel id does not match params"))
	}
	if len(s.Allocation) != len(params.Participants) {
		errs = errors.AppendField(errs, "Allocation",
			errors.ErrInvalidInput.Newf("allocation has %d entries, want %d", len(s.Allocation), len(params.Participants)))
	}
	if _, err := s.Sum(); err != nil {
		errs = errors.AppendField(errs, "Allocation", err)
	}
	return errs
}

// sumAmounts adds up amounts, failing with InvalidInput on overflow instead
// of wrapping (spec §9, "allocation arithmetic").
func sumAmounts(amounts []Amount) (Amount, error) {
	var total uint64
	for _, a := range amounts {
		next := total + uint64(a)
		if next < total {
			return 0, errors.ErrInvalidInput.New("allocation sum overflows")
		}
		total = next
	}
	return Amount(total), nil
}
