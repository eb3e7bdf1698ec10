// Package core wires the channel, ledger, registry, validator, token and
// withdraw packages into the external service surface spec §6 lists:
// deposit, query_holdings, conclude, dispute, query_state, withdraw and
// transaction_notification. It is the only package a host runtime needs to
// call into.
package core

import (
	"context"

	"github.com/perun-network/perun-icp-canister/channel"
	"github.com/perun-network/perun-icp-canister/clock"
	"github.com/perun-network/perun-icp-canister/crypto"
	"github.com/perun-network/perun-icp-canister/errors"
	"github.com/perun-network/perun-icp-canister/ledger"
	"github.com/perun-network/perun-icp-canister/registry"
	"github.com/perun-network/perun-icp-canister/store"
	"github.com/perun-network/perun-icp-canister/token"
	"github.com/perun-network/perun-icp-canister/validator"
	"github.com/perun-network/perun-icp-canister/withdraw"
)

// Core is the channel state machine described by spec §1-§7. A single
// instance serves every channel; there is no per-channel object, matching
// the single-threaded, process-wide store model of spec §9.
type Core struct {
	db          store.KVStore
	clock       clock.Source
	transferer  token.Transferer
	registry    *registry.Registry
	ledger      *ledger.Ledger
	withdrawals *withdraw.Withdrawer
	notifier    *token.Tracker
}

// New returns a Core backed by db, reading time from c and issuing
// transfers through tr. db should be restored from the host's
// stable-storage hook on upgrade and is otherwise process-wide and
// exclusive per call (spec §9).
func New(db store.KVStore, c clock.Source, tr token.Transferer) *Core {
	reg := registry.New()
	led := ledger.New()
	return &Core{
		db:          db,
		clock:       c,
		transferer:  tr,
		registry:    reg,
		ledger:      led,
		withdrawals: withdraw.New(reg, led),
		notifier:    token.NewTracker(),
	}
}

// Deposit credits funding by amount (spec §4.3). The caller is assumed to
// have already arranged for the token subsystem to credit the
// corresponding real transfer — the ledger only accounts for it.
//
// Deposit takes only the Funding and the amount, no Params: the
// finalized/past-timeout check it applies needs nothing but the
// registry entry for funding.Channel, so unlike Dispute and Conclude it
// never needs the channel's Params.
func (c *Core) Deposit(funding channel.Funding, amount channel.Amount) error {
	finalized := false
	if registered, ok := c.registry.QueryState(c.db, funding.Channel); ok {
		finalized = registered.Concluded(c.clock.Now())
	}
	return c.ledger.Deposit(c.db, funding, amount, finalized)
}

// QueryHoldings returns funding's recorded balance, if any (spec §4.3).
func (c *Core) QueryHoldings(funding channel.Funding) (channel.Amount, bool) {
	return c.ledger.QueryHoldings(c.db, funding)
}

// Dispute registers fss as channel.Channel's current state, opening or
// advancing its challenge window (spec §4.5).
func (c *Core) Dispute(params channel.Params, fss channel.FullySignedState) error {
	if err := c.validateAgainstHoldings(params, fss); err != nil {
		return err
	}
	if err := c.registry.SaveParams(c.db, params); err != nil {
		return err
	}
	return c.registry.Dispute(c.db, params.ID(), params.ChallengeDuration, fss, c.clock.Now())
}

// Conclude finalizes a channel, either directly with a mutually signed
// final state, or by confirming that an already-open dispute's challenge
// window has elapsed (spec §4.5).
func (c *Core) Conclude(params channel.Params, fss *channel.FullySignedState) error {
	if fss != nil {
		if err := c.validateAgainstHoldings(params, *fss); err != nil {
			return err
		}
	} else if err := params.Validate(); err != nil {
		return errors.Wrap(err, "invalid params")
	}
	if err := c.registry.SaveParams(c.db, params); err != nil {
		return err
	}
	return c.registry.Conclude(c.db, params.ID(), fss, c.clock.Now())
}

// QueryState returns the registered state for channel id, if any
// (spec §4.5).
func (c *Core) QueryState(id channel.ChannelID) (channel.RegisteredState, bool) {
	return c.registry.QueryState(c.db, id)
}

// Withdraw pays out req.Funding's allocated share to req.Receiver,
// authenticated by sig (spec §4.6).
func (c *Core) Withdraw(ctx context.Context, req channel.WithdrawalRequest, sig crypto.Signature) (channel.Amount, error) {
	return c.withdrawals.Withdraw(ctx, c.db, c.transferer, req, sig, c.clock.Now())
}

// TransactionNotification informs the core that the token subsystem has
// credited a deposit at the given block, crediting the ledger exactly once
// regardless of how many times the notification is delivered (spec §5,
// §6, §8 property 6).
func (c *Core) TransactionNotification(notif token.CreditNotification) error {
	alreadySeen, err := c.notifier.Observe(c.db, notif.Block)
	if err != nil {
		return err
	}
	if alreadySeen {
		return nil
	}

	finalized := false
	if registered, ok := c.registry.QueryState(c.db, notif.Funding.Channel); ok {
		finalized = registered.Concluded(c.clock.Now())
	}
	return c.ledger.Deposit(c.db, notif.Funding, notif.Amount, finalized)
}

// validateAgainstHoldings runs the state-transition validator (spec §4.4)
// against this channel's current holdings total.
func (c *Core) validateAgainstHoldings(params channel.Params, fss channel.FullySignedState) error {
	total, err := c.ledger.HoldingsTotal(c.db, params.ID(), params.Participants)
	if err != nil {
		return err
	}
	return validator.Validate(params, fss, total)
}
