package errors

import (
	"fmt"
)

// Field returns an error instance that wraps the original error with
// additional information. It returns nil if the given error is nil.
// Use this function to describe a field/attribute-level validation failure.
//
// Use Go naming for the field name. For example, UserName or MaxAge. When
// the error is for a nested field, use dot notation to construct the path,
// for example State.Allocation or Sigs.0.
func Field(fieldName string, err error, description string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	if len(args) > 0 {
		description = fmt.Sprintf(description, args...)
	}
	return &fieldError{
		parent: err,
		field:  fieldName,
		desc:   description,
	}
}

// AppendField is a shortcut to combine an accumulated error with a new
// field-level error.
func AppendField(errorsOrNil error, fieldName string, fieldErrOrNil error) error {
	return Append(errorsOrNil, Field(fieldName, fieldErrOrNil, ""))
}

type fieldError struct {
	parent error
	field  string
	desc   string
}

func (err *fieldError) Error() string {
	if err.desc == "" {
		return fmt.Sprintf("field %q: %s", err.field, err.parent)
	}
	return fmt.Sprintf("field %q: %s: %s", err.field, err.desc, err.parent)
}

// Cause implements the causer interface.
func (err *fieldError) Cause() error {
	return err.parent
}

// Field implements the fielder interface.
func (err *fieldError) Field() string {
	return err.field
}

// FieldErrors returns every error registered for fieldName anywhere in err's
// wrap tree: a single fieldError wrapping it directly, or one buried inside
// a multi-error several AppendField calls built up.
func FieldErrors(err error, fieldName string) []error {
	var matches []error
	collectFieldErrors(err, fieldName, &matches)
	return matches
}

// collectFieldErrors walks err looking for fieldError values tagged
// fieldName, appending each one found to out. A match ends that branch of
// the walk: a fieldError's own parent is never itself a separate field, so
// there is nothing more to find below it.
func collectFieldErrors(err error, fieldName string, out *[]error) {
	if err == nil {
		return
	}
	if f, ok := err.(fielder); ok && f.Field() == fieldName {
		*out = append(*out, err)
		return
	}
	if u, ok := err.(unpacker); ok {
		for _, sub := range u.Unpack() {
			collectFieldErrors(sub, fieldName, out)
		}
		return
	}
	if c, ok := err.(causer); ok {
		collectFieldErrors(c.Cause(), fieldName, out)
	}
}

type fielder interface {
	// Field returns the field name that this error was created for.
	Field() string
}
