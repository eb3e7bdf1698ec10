package errors

import (
	"fmt"
	"reflect"

	"github.com/pkg/errors"
)

// Root errors of the channel core's error taxonomy (see spec §7). Every
// error that crosses the core's external interface wraps exactly one of
// these, so a caller can classify a failure with Is without parsing error
// strings.
var (
	// ErrAuthentication is returned when a signature check fails: a
	// state, a withdrawal request, or any other participant-authenticated
	// payload does not verify against the expected public key.
	ErrAuthentication = Register(1, "authentication failed")

	// ErrInvalidInput is returned for malformed arguments: a channel-id
	// mismatch, a participant-count mismatch, an allocation-length
	// mismatch, or arithmetic overflow while summing an allocation.
	ErrInvalidInput = Register(2, "invalid input")

	// ErrOutdatedState is returned when a dispute is submitted with a
	// version that does not strictly exceed the currently registered
	// version.
	ErrOutdatedState = Register(3, "outdated state")

	// ErrFinalized is returned when an operation is disallowed because
	// the channel has already been concluded (directly or by timeout).
	ErrFinalized = Register(4, "channel already finalized")

	// ErrNotFinalized is returned when a withdrawal is attempted before
	// the channel has reached a terminal, concluded state.
	ErrNotFinalized = Register(5, "channel not finalized")

	// ErrInsufficientFunds is returned when a state's allocation exceeds
	// the channel's holdings, or a withdrawal would overdraw them.
	ErrInsufficientFunds = Register(6, "insufficient funds")

	// ErrAlreadyWithdrawn is returned when a participant repeats a
	// withdrawal for funding that has already been drained.
	ErrAlreadyWithdrawn = Register(7, "already withdrawn")

	// ErrNotDisputable is returned when a dispute is submitted after the
	// channel's challenge window has already expired.
	ErrNotDisputable = Register(8, "channel no longer disputable")

	// ErrLedgerFailure is returned when the external token subsystem
	// fails to execute a requested transfer. Any state mutated in
	// anticipation of the transfer must be rolled back by the caller.
	ErrLedgerFailure = Register(9, "ledger failure")

	// ErrHuman marks a code path that should be unreachable if the core
	// was implemented as specified.
	ErrHuman = Register(10, "coding error")

	// ErrPanic is assigned to an error recovered from a panic, so callers
	// know to redact whatever sensitive detail the panic carried.
	ErrPanic = Register(111222, "panic")
)

// Register returns an error instance that should be used as the base for
// creating error instances during runtime.
//
// Popular root errors are declared in this package, but callers may declare
// custom codes as needed. This function ensures that no error code is used
// twice; reusing a code panics.
//
// Use this function only during a program startup phase.
func Register(code uint32, description string) *Error {
	if e, ok := usedCodes[code]; ok {
		panic(fmt.Sprintf("error with code %d is already registered: %q", code, e.desc))
	}
	err := &Error{
		code: code,
		desc: description,
	}
	usedCodes[err.code] = err
	return err
}

// usedCodes tracks used codes to ensure their uniqueness. No two error
// instances should share the same error code.
var usedCodes = map[uint32]*Error{}

// Error represents a root error.
//
// The core categorizes every failure by wrapping one of these root errors.
// This allows error tests and returning errors to callers in a safe,
// classifiable manner.
type Error struct {
	code uint32
	desc string
}

func (e *Error) Error() string {
	return e.desc
}

// Code returns this error's stable numeric identifier.
func (e *Error) Code() uint32 {
	return e.code
}

// New returns a new error with this as its root cause. The following two
// lines are equivalent:
//
//	e.New("my description")
//	Wrap(e, "my description")
func (e *Error) New(description string) error {
	return Wrap(e, description)
}

// Newf is New with formatting capabilities.
func (e *Error) Newf(description string, args ...interface{}) error {
	return e.New(fmt.Sprintf(description, args...))
}

// Is reports whether err is, or wraps, or aggregates an error sharing this
// root's code. Classification is by code rather than pointer identity and
// descends into Append's multi-errors, so each independent field failure a
// Validate method accumulates still answers true for the root it was built
// from, not just the outermost single-error case.
func (e *Error) Is(err error) bool {
	// Reflect usage is necessary to correctly compare with a nil
	// implementation of an error.
	if e == nil {
		if err == nil {
			return true
		}
		return reflect.ValueOf(err).IsNil()
	}
	return hasCode(err, e.code)
}

// hasCode recurses through err's wrap chain and, where err aggregates
// several independent errors (as Append does), through each of them,
// reporting whether any carries code.
func hasCode(err error, code uint32) bool {
	switch v := err.(type) {
	case nil:
		return false
	case *Error:
		return v.code == code
	case *wrappedError:
		if v.rootCode != 0 {
			return v.rootCode == code
		}
		return hasCode(v.parent, code)
	case unpacker:
		for _, sub := range v.Unpack() {
			if hasCode(sub, code) {
				return true
			}
		}
		return false
	case causer:
		return hasCode(v.Cause(), code)
	default:
		return false
	}
}

// Wrap extends given error with additional context.
//
// If err is nil, Wrap returns nil, avoiding the need for an if statement
// when wrapping an error returned at the end of a function. The wrapper
// caches the code of the *Error at the bottom of err's chain (0 if none is
// found, e.g. err aggregates several roots), so Is only re-walks the chain
// it was built from when no single root code was cached.
func Wrap(err error, description string) error {
	if err == nil {
		return nil
	}
	return &wrappedError{
		parent:   err,
		msg:      description,
		rootCode: rootCodeOf(err),
	}
}

// Wrapf extends given error with additional, formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	return Wrap(err, fmt.Sprintf(format, args...))
}

// rootCodeOf returns the code of the *Error at the bottom of err's wrap
// chain, or 0 if err does not resolve to exactly one (nil, or an
// aggregate of several).
func rootCodeOf(err error) uint32 {
	switch v := err.(type) {
	case *Error:
		return v.code
	case *wrappedError:
		return v.rootCode
	case causer:
		return rootCodeOf(v.Cause())
	default:
		return 0
	}
}

type wrappedError struct {
	// msg is this error layer's description.
	msg string
	// parent is the underlying error that triggered this one.
	parent error
	// rootCode is the code this chain ultimately resolves to, cached at
	// wrap time; see rootCodeOf.
	rootCode uint32
}

func (e *wrappedError) Error() string {
	return fmt.Sprintf("%s: %s", e.msg, e.parent.Error())
}

func (e *wrappedError) Cause() error {
	return e.parent
}

// Recover captures a panic and stops its propagation, assigning an ErrPanic
// instance to *err. Call this with defer to work as expected. A recovered
// error value is folded in by its message rather than its %v form, so a
// panic triggered by an error (e.g. a failed type assertion surfaced as a
// panic by a collaborator) doesn't pick up a redundant error wrapping.
func Recover(err *error) {
	r := recover()
	if r == nil {
		return
	}
	if e, ok := r.(error); ok {
		*err = Wrapf(ErrPanic, "%s", e.Error())
		return
	}
	*err = Wrapf(ErrPanic, "%v", r)
}

// WithType augments an error with the Go type of obj, which is useful when
// reporting a failed type assertion.
func WithType(err error, obj interface{}) error {
	return Wrapf(err, "%T", obj)
}

// Cause returns the root cause of err by repeatedly unwrapping it. This
// mirrors github.com/pkg/errors.Cause and exists for errors produced by a
// collaborator outside this package whose own wrap chain this package
// cannot otherwise see into (a transferer's inter-canister call failure,
// say) — see withdraw.Withdraw's rollback path for the one place it matters:
// the transferer's error is unwrapped to its root before it is folded into
// ErrLedgerFailure, so a deeply wrapped collaborator error doesn't produce
// an ever-growing description.
func Cause(err error) error {
	return errors.Cause(err)
}

// causer is implemented by an error that supports unwrapping. It is used to
// test whether an error wraps another error instance.
type causer interface {
	Cause() error
}
