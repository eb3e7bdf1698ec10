/*
Package errors implements the error taxonomy used across the channel core.

The idea is to reuse one of the root errors declared in this package whenever
possible and register a new one only when a call site needs a kind that does
not exist yet. Every error returned by the core wraps exactly one of these
root causes, which lets a caller classify a failure with Is without parsing
error strings.

Use Register(code, description) during package initialization to declare a
new root error. Use ErrXxx.New/.Newf to create an instance of it at the point
of failure, or Wrap/Wrapf to attach context to an error coming from another
package.
*/
package errors
