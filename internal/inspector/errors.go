package inspector

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"

	sherrors "github.com/khanhnv2901/sitesniffer/internal/shared/errors"
)

// Error is returned by every failing accessor. Kind is one of the sentinel
// errors in internal/shared/errors; Err is the underlying cause.
//
// Both are reachable through errors.Is / errors.As.
type Error struct {
	Op     string
	Target string
	Kind   error
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Target, e.Kind)
	}
	return fmt.Sprintf("%s %s: %v: %v", e.Op, e.Target, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func (in *Inspector) fail(op string, kind, cause error) error {
	return &Error{Op: op, Target: in.target.String(), Kind: kind, Err: cause}
}

// transportKind maps an HTTP client or dial error onto an error kind.
func transportKind(err error) error {
	switch {
	case errors.Is(err, sherrors.ErrTooManyRedirects):
		return sherrors.ErrTooManyRedirects
	case errors.Is(err, context.Canceled):
		return sherrors.ErrCanceled
	case isTimeout(err):
		return sherrors.ErrTimeout
	}
	return sherrors.ErrConnection
}

// contextKind maps the error of a finished context onto an error kind.
func contextKind(err error) error {
	if errors.Is(err, context.Canceled) {
		return sherrors.ErrCanceled
	}
	return sherrors.ErrTimeout
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
