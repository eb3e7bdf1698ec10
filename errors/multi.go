package errors

import (
	"fmt"
	"strings"
)

// Append combines two errors, either of which may be nil, into one. This is
// the workhorse behind Validate methods that check many independent fields
// and want to report every failure at once instead of stopping at the
// first one:
//
//	var errs error
//	errs = errors.AppendField(errs, "Nonce", validateNonce(p.Nonce))
//	errs = errors.AppendField(errs, "Participants", validateParticipants(p.Participants))
//	return errs
func Append(a, b error) error {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}

	merged := &multiErr{}
	merged.errors = append(merged.errors, unpack(a)...)
	merged.errors = append(merged.errors, unpack(b)...)
	return merged
}

func unpack(err error) []error {
	if m, ok := err.(*multiErr); ok {
		return m.errors
	}
	return []error{err}
}

// multiErr aggregates multiple independent errors into a single error value.
type multiErr struct {
	errors []error
}

func (m *multiErr) Error() string {
	if len(m.errors) == 1 {
		return m.errors[0].Error()
	}
	points := make([]string, len(m.errors))
	for i, err := range m.errors {
		points[i] = fmt.Sprintf("* %s", err)
	}
	return fmt.Sprintf("%d errors occurred:\n\t%s", len(m.errors), strings.Join(points, "\n\t"))
}

// Unpack implements the unpacker interface, exposing the individual errors
// this value aggregates.
func (m *multiErr) Unpack() []error {
	return m.errors
}

// unpacker is implemented by an error that aggregates several independent
// errors, such as the one Append produces.
type unpacker interface {
	Unpack() []error
}
