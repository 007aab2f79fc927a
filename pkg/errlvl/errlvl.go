package errlvl

import (
	"errors"
	"fmt"
)

// Lvl is the severity of an error.
type Lvl uint8

const (
	DEBUG Lvl = iota + 1
	INFO
	WARN
	ERROR
	FATAL
)

// String returns the upper-case name of the level.
func (l Lvl) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ErrorLevel is a type that represents the severity of an error in the application.
//
// These sentinels are matched with errors.Is to find the severity of any wrapped error.
type ErrorLevel error

var (
	ErrDebug ErrorLevel = errors.New("[DEBUG]")
	ErrInfo  ErrorLevel = errors.New("[INFO]")
	ErrWarn  ErrorLevel = errors.New("[WARN]")
	ErrError ErrorLevel = errors.New("[ERROR]")
	ErrFatal ErrorLevel = errors.New("[FATAL]")
)

var sentinels = map[Lvl]ErrorLevel{
	DEBUG: ErrDebug,
	INFO:  ErrInfo,
	WARN:  ErrWarn,
	ERROR: ErrError,
	FATAL: ErrFatal,
}

// Wrap tags the given error with the given level. Errors that already carry a level are returned as is.
// Unknown levels are treated as ERROR.
func Wrap(err error, level Lvl) error {
	if err == nil {
		return nil
	}
	if hasLevel(err) {
		return err
	}

	s, ok := sentinels[level]
	if !ok {
		s = ErrError
	}
	return fmt.Errorf("%w %w", s, err)
}

// Of returns the level the error was tagged with, or ERROR for untagged errors.
func Of(err error) Lvl {
	for _, l := range []Lvl{FATAL, ERROR, WARN, INFO, DEBUG} {
		if errors.Is(err, sentinels[l]) {
			return l
		}
	}
	return ERROR
}

// hasLevel checks if the given error has a level set already.
func hasLevel(err error) bool {
	return errors.Is(err, ErrDebug) || errors.Is(err, ErrInfo) || errors.Is(err, ErrWarn) || errors.Is(err, ErrError) || errors.Is(err, ErrFatal)
}
