package kraft

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument is the sentinel wrapped by every InvalidArgumentError,
// so callers can branch with errors.Is(err, kraft.ErrInvalidArgument)
// regardless of the specific operation that produced it.
var ErrInvalidArgument = errors.New("invalid argument")

// ErrInvalidState is the sentinel wrapped by every InvalidStateError.
var ErrInvalidState = errors.New("invalid state")

// InvalidArgumentError reports a programmer-error condition caused by a
// caller-supplied value: an acknowledgement from a non-voter, or a
// replica-key refinement that conflicts with a previously learned directory
// id.
type InvalidArgumentError struct {
	Op  string
	Msg string
}

func (e *InvalidArgumentError) Error() string { return fmt.Sprintf("%s: %s", e.Op, e.Msg) }
func (e *InvalidArgumentError) Unwrap() error { return ErrInvalidArgument }

func newInvalidArgumentError(op, format string, args ...interface{}) *InvalidArgumentError {
	return &InvalidArgumentError{Op: op, Msg: fmt.Sprintf(format, args...)}
}

// InvalidStateError reports a programmer-error condition caused by the
// state of the LeaderState itself: a local end offset moving backwards, a
// leader-change emission demanding bootstrap records under a KRaft version
// that cannot support them, or a remote fetch colliding with the local id.
type InvalidStateError struct {
	Op  string
	Msg string
}

func (e *InvalidStateError) Error() string { return fmt.Sprintf("%s: %s", e.Op, e.Msg) }
func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

func newInvalidStateError(op, format string, args ...interface{}) *InvalidStateError {
	return &InvalidStateError{Op: op, Msg: fmt.Sprintf(format, args...)}
}
