// Package multierr collects several errors into one value. Configuration
// validation uses it so that a single load reports every violation in the
// file instead of stopping at the first.
package multierr

import (
	"errors"
	"fmt"
	"strings"
)

type Error []error

func (e Error) Error() string {
	switch len(e) {
	case 0:
		return "<empty multierr>"
	case 1:
		return e[0].Error()
	}
	sb := new(strings.Builder)
	fmt.Fprintf(sb, "%d errors occurred:", len(e))
	for _, err := range e {
		fmt.Fprintf(sb, "\n\t* %v", err)
	}
	return sb.String()
}

// Append mutates e, adding err. No-op when err is nil, so callers can append
// unconditionally:
//
//	var errs Error
//	errs.Append(section.Validate())
func (e *Error) Append(err error) {
	if err == nil || e == nil {
		return
	}
	*e = append(*e, err)
}

// Appendf appends a formatted error. The %w verb works as in [fmt.Errorf].
func (e *Error) Appendf(format string, args ...interface{}) {
	e.Append(fmt.Errorf(format, args...))
}

// ErrOrNil converts the accumulator into a plain error: nil when nothing was
// collected (avoiding the typed-nil pitfall), the sole element when there is
// exactly one, and e itself otherwise.
func (e Error) ErrOrNil() error {
	switch len(e) {
	case 0:
		return nil
	case 1:
		return e[0]
	default:
		return e
	}
}

// Unwrap exposes the members to [errors.Is] and [errors.As] tree traversal.
func (e Error) Unwrap() []error { return e }

func (e Error) Is(target error) bool {
	for _, err := range e {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (e Error) As(target interface{}) bool {
	for _, err := range e {
		if errors.As(err, target) {
			return true
		}
	}
	return false
}
