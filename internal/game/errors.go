package game

import (
	"errors"
	"fmt"
)

// Error taxonomy. Engine errors wrap one of these so callers can classify
// failures with errors.Is.
var (
	// ErrNotFound reports a missing session, card or zone entry.
	ErrNotFound = errors.New("not found")
	// ErrIllegalAction reports a phase, turn, ownership or affordability
	// violation.
	ErrIllegalAction = errors.New("illegal action")
	// ErrInternalInconsistency reports that state assumed present is missing,
	// meaning an invariant was broken upstream.
	ErrInternalInconsistency = errors.New("internal inconsistency")
)

func illegalf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrIllegalAction, fmt.Sprintf(format, args...))
}

func notFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func inconsistentf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInternalInconsistency, fmt.Sprintf(format, args...))
}
