// Package sentinel provides a const-declarable error type for sentinel errors.
package sentinel

var _ error = Error("")

// Error is an immutable sentinel error backed by a string constant.
// Unlike errors.New values it can be declared const, and since the type
// is comparable, errors.Is works through wrapped chains without an Is method.
type Error string

func (e Error) Error() string {
	return string(e)
}
