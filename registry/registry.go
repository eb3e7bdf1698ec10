// Package registry implements the dispute registry state machine (spec
// §4.5): per-channel registered state, monotonic version advancement, and
// the challenge timer that eventually makes a registered state immutable.
//
// It also persists each channel's Params the first time it is seen, so
// that later calls — withdraw in particular — can recover the ordered
// participant list without requiring the caller to resupply it (spec §9,
// "params persistence", option (a)).
package registry

import (
	"encoding/binary"

	"github.com/perun-network/perun-icp-canister/channel"
	"github.com/perun-network/perun-icp-canister/crypto"
	"github.com/perun-network/perun-icp-canister/errors"
	"github.com/perun-network/perun-icp-canister/orm"
	"github.com/perun-network/perun-icp-canister/store"
)

const (
	stateBucketName  = "registry"
	paramsBucketName = "params"
)

// Registry is the per-channel registered-state and params store.
type Registry struct {
	states orm.Bucket
	params orm.Bucket
}

// New returns an empty Registry. It holds no data itself; every method
// reads and writes the store passed to it.
func New() *Registry {
	return &Registry{
		states: orm.NewBucket(stateBucketName, func() orm.Model { return &registeredStateModel{} }),
		params: orm.NewBucket(paramsBucketName, func() orm.Model { return &paramsModel{} }),
	}
}

// SaveParams persists p, keyed by its own channel id, the first time the
// channel is seen. Subsequent saves are idempotent no-ops since Params is
// immutable for a channel's lifetime.
func (r *Registry) SaveParams(db store.KVStore, p channel.Params) error {
	id := p.ID()
	if r.params.Has(db, id[:]) {
		return nil
	}
	return r.params.Save(db, id[:], &paramsModel{params: p})
}

// LoadParams returns the Params previously saved for c, or false if none
// were ever persisted.
func (r *Registry) LoadParams(db store.KVStore, c channel.ChannelID) (channel.Params, bool) {
	m, err := r.params.Get(db, c[:])
	if err != nil || m == nil {
		return channel.Params{}, false
	}
	return m.(*paramsModel).params, true
}

// QueryState returns the registered state for c, if any (spec §4.5,
// query_state).
func (r *Registry) QueryState(db store.KVStore, c channel.ChannelID) (channel.RegisteredState, bool) {
	m, err := r.states.Get(db, c[:])
	if err != nil || m == nil {
		return channel.RegisteredState{}, false
	}
	return m.(*registeredStateModel).state, true
}

// Dispute registers fss.State as channel c's current state, opening or
// advancing its challenge window. now is the current time; see spec §4.5
// for the full transition table.
func (r *Registry) Dispute(db store.KVStore, c channel.ChannelID, challengeDuration uint64, fss channel.FullySignedState, now uint64) error {
	if fss.State.Finalized {
		return errors.ErrInvalidInput.New("dispute requires a non-finalized state")
	}

	current, ok := r.QueryState(db, c)
	if ok {
		if current.State.Finalized {
			return errors.ErrFinalized.New("channel already concluded")
		}
		if now >= current.Timeout {
			return errors.ErrNotDisputable.New("challenge window has already expired")
		}
		if fss.State.Version <= current.State.Version {
			return errors.ErrOutdatedState.Newf("version %d does not exceed registered version %d", fss.State.Version, current.State.Version)
		}
	}

	next := channel.RegisteredState{State: fss.State, Timeout: now + challengeDuration}
	return r.states.Save(db, c[:], &registeredStateModel{state: next})
}

// Conclude finalizes channel c. If fss is non-nil it is a direct final
// conclusion (spec §4.5, "direct conclusion"); if fss is nil it confirms
// expiry of an already-open dispute (spec §4.5, "dispute conclusion").
func (r *Registry) Conclude(db store.KVStore, c channel.ChannelID, fss *channel.FullySignedState, now uint64) error {
	current, ok := r.QueryState(db, c)

	if fss != nil {
		if !fss.State.Finalized {
			return errors.ErrInvalidInput.New("direct conclusion requires a finalized state")
		}
		if ok && current.Concluded(now) {
			return errors.ErrFinalized.New("channel already concluded")
		}
		if ok && fss.State.Version < current.State.Version {
			return errors.ErrOutdatedState.Newf("version %d is older than registered version %d", fss.State.Version, current.State.Version)
		}
		next := channel.RegisteredState{State: fss.State, Timeout: now}
		return r.states.Save(db, c[:], &registeredStateModel{state: next})
	}

	if !ok {
		return errors.ErrNotFinalized.New("no registered dispute to conclude")
	}
	if current.State.Finalized {
		return nil // already terminal: concluding again is a no-op.
	}
	if now < current.Timeout {
		return errors.ErrNotFinalized.New("challenge window has not yet expired")
	}
	current.State.Finalized = true
	return r.states.Save(db, c[:], &registeredStateModel{state: current})
}

// registeredStateModel adapts channel.RegisteredState to orm.Model using a
// plain fixed-layout encoding; this is storage framing, not a signed
// value, so it need not match the channel package's canonical encoding.
type registeredStateModel struct {
	state channel.RegisteredState
}

func (m *registeredStateModel) Marshal() ([]byte, error) {
	s := m.state.State
	buf := make([]byte, 0, 32+8+8+8+4+len(s.Allocation)*8+1)
	buf = append(buf, s.Channel[:]...)
	buf = appendUint64(buf, s.Version)
	buf = appendUint64(buf, m.state.Timeout)
	buf = appendUint32(buf, uint32(len(s.Allocation)))
	for _, a := range s.Allocation {
		buf = appendUint64(buf, uint64(a))
	}
	buf = append(buf, boolByte(s.Finalized))
	return buf, nil
}

func (m *registeredStateModel) Unmarshal(raw []byte) error {
	if len(raw) < 32+8+8+4+1 {
		return errors.ErrHuman.New("registered state record is truncated")
	}
	var s channel.State
	copy(s.Channel[:], raw[:32])
	raw = raw[32:]
	s.Version = binary.BigEndian.Uint64(raw)
	raw = raw[8:]
	m.state.Timeout = binary.BigEndian.Uint64(raw)
	raw = raw[8:]
	count := binary.BigEndian.Uint32(raw)
	raw = raw[4:]
	s.Allocation = make([]channel.Amount, count)
	for i := range s.Allocation {
		s.Allocation[i] = channel.Amount(binary.BigEndian.Uint64(raw))
		raw = raw[8:]
	}
	s.Finalized = raw[0] == 1
	m.state = channel.RegisteredState{State: s, Timeout: m.state.Timeout}
	return nil
}

// paramsModel adapts channel.Params to orm.Model.
type paramsModel struct {
	params channel.Params
}

func (m *paramsModel) Marshal() ([]byte, error) {
	return channel.EncodeParams(m.params), nil
}

func (m *paramsModel) Unmarshal(raw []byte) error {
	if len(raw) < channel.NonceLen+8+4 {
		return errors.ErrHuman.New("params record is truncated")
	}
	var p channel.Params
	copy(p.Nonce[:], raw[:channel.NonceLen])
	raw = raw[channel.NonceLen:]
	p.ChallengeDuration = binary.BigEndian.Uint64(raw)
	raw = raw[8:]
	count := binary.BigEndian.Uint32(raw)
	raw = raw[4:]
	p.Participants = make([]crypto.ParticipantKey, count)
	for i := range p.Participants {
		copy(p.Participants[i][:], raw[:crypto.KeyLen])
		raw = raw[crypto.KeyLen:]
	}
	m.params = p
	return nil
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
