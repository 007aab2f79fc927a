package tvs

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/samgozman/tvs-bot/pkg/errlvl"
)

// ErrorType is the category of a FetchError.
type ErrorType string

const (
	ErrorTypeNetwork    ErrorType = "network"     // source unreachable
	ErrorTypeTimeout    ErrorType = "timeout"     // deadline exceeded or canceled
	ErrorTypeHTTPStatus ErrorType = "http_status" // non-2xx response
	ErrorTypeParse      ErrorType = "parse"       // value not found or not numeric
)

var (
	errNetwork  = errors.New("request failed")
	errTimeout  = errors.New("request timed out")
	errStatus   = errors.New("unexpected status code")
	errNotFound = errors.New("value not found")
	errNotValue = errors.New("invalid value")
)

// FetchError is returned by every Fetcher.
type FetchError struct {
	Type       ErrorType
	Source     string // name of the Fetcher
	StatusCode int    // set for ErrorTypeHTTPStatus only
	Value      string // offending payload for ErrorTypeParse, truncated
	level      errlvl.Lvl
	errs       []error
}

func (e *FetchError) Error() string {
	return e.getWrappedError().Error()
}

func (e *FetchError) Unwrap() error {
	return e.getWrappedError()
}

func (e *FetchError) getWrappedError() error {
	err := fmt.Errorf("tvs %s fetch (%s): %w", e.Source, e.Type, errors.Join(e.errs...))
	switch {
	case e.StatusCode > 0:
		err = fmt.Errorf("%w (status %d)", err, e.StatusCode)
	case e.Value != "":
		err = fmt.Errorf("%w (value: %s)", err, e.Value)
	}
	return errlvl.Wrap(err, e.level)
}

func newNetworkError(source string, cause error) *FetchError {
	if isTimeout(cause) {
		return &FetchError{Type: ErrorTypeTimeout, Source: source, level: errlvl.WARN, errs: []error{errTimeout, cause}}
	}
	return &FetchError{Type: ErrorTypeNetwork, Source: source, level: errlvl.WARN, errs: []error{errNetwork, cause}}
}

func newStatusError(source string, code int) *FetchError {
	lvl := errlvl.ERROR
	if code >= 500 || code == 429 {
		lvl = errlvl.WARN
	}
	return &FetchError{Type: ErrorTypeHTTPStatus, Source: source, StatusCode: code, level: lvl, errs: []error{errStatus}}
}

func newParseError(source, value string, cause error) *FetchError {
	errs := []error{errNotValue}
	if cause != nil {
		errs = append(errs, cause)
	}
	return &FetchError{Type: ErrorTypeParse, Source: source, Value: truncate(value, 64), level: errlvl.ERROR, errs: errs}
}

func newNotFoundError(source string) *FetchError {
	return &FetchError{Type: ErrorTypeParse, Source: source, level: errlvl.ERROR, errs: []error{errNotFound}}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
