package publisher

import (
	"errors"

	"github.com/samgozman/tvs-bot/pkg/errlvl"
)

var (
	errNoToken        = errors.New("failed to obtain bot token")
	errConnect        = errors.New("failed to connect to discord")
	errUpdatePresence = errors.New("failed to update presence")
	errDisconnect     = errors.New("failed to disconnect from discord")
	errBroker         = errors.New("token broker request failed")
	errNotConnected   = errors.New("discord connection not configured in token broker")
)

// Error is returned by the publisher for any connection, auth or API failure. It carries the severity level.
type Error struct {
	// severity level of the error
	level errlvl.Lvl
	// errors stack (preferably generic error + the real error)
	errs []error
}

// Error returns the string representation of the error.
func (e *Error) Error() string {
	return e.getWrappedError().Error()
}

func (e *Error) Unwrap() error {
	return e.getWrappedError()
}

func (e *Error) getWrappedError() error {
	if len(e.errs) == 1 {
		return errlvl.Wrap(e.errs[0], e.level)
	}

	return errlvl.Wrap(errors.Join(e.errs...), e.level)
}

// newError creates a new Error instance with the given errors.
func newError(lvl errlvl.Lvl, errs ...error) *Error {
	return &Error{
		level: lvl,
		errs:  errs,
	}
}
