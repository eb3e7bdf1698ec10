package errors_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/perun-network/perun-icp-canister/errors"
)

func TestAppendFieldCombinesFailures(t *testing.T) {
	var errs error
	errs = errors.AppendField(errs, "Nonce", nil)
	assert.Nil(t, errs)

	errs = errors.AppendField(errs, "Nonce", errors.ErrInvalidInput.New("missing"))
	errs = errors.AppendField(errs, "Participants", errors.ErrInvalidInput.New("too few"))

	assert.Len(t, errors.FieldErrors(errs, "Nonce"), 1)
	assert.Len(t, errors.FieldErrors(errs, "Participants"), 1)
	assert.Len(t, errors.FieldErrors(errs, "Missing"), 0)
}

func TestFieldNilErrorIsNil(t *testing.T) {
	assert.Nil(t, errors.Field("X", nil, "unused"))
}
