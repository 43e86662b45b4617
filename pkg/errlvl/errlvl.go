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

// ErrorLevel is a sentinel error that marks the severity of a wrapped error.
//
// Every package of the poster tags its errors with one of these levels, so the job runner and
// the error tracker can decide how loud a failure is without knowing the concrete error type.
type ErrorLevel error

var (
	ErrDebug ErrorLevel = errors.New("[DEBUG]")
	ErrInfo  ErrorLevel = errors.New("[INFO]")
	ErrWarn  ErrorLevel = errors.New("[WARN]")
	ErrError ErrorLevel = errors.New("[ERROR]")
	ErrFatal ErrorLevel = errors.New("[FATAL]")
)

var levels = map[Lvl]ErrorLevel{
	DEBUG: ErrDebug,
	INFO:  ErrInfo,
	WARN:  ErrWarn,
	ERROR: ErrError,
	FATAL: ErrFatal,
}

// Wrap tags err with the given level. Errors that already carry a level are returned as is.
func Wrap(err error, level Lvl) error {
	if err == nil || hasLevel(err) {
		return err
	}

	sentinel, ok := levels[level]
	if !ok {
		sentinel = ErrError
	}

	return fmt.Errorf("%w %w", sentinel, err)
}

// Of returns the level err was tagged with, ERROR for untagged errors and 0 for nil.
func Of(err error) Lvl {
	if err == nil {
		return 0
	}

	// From the most to the least severe, so that joined errors report the loudest level.
	for _, l := range []Lvl{FATAL, ERROR, WARN, INFO, DEBUG} {
		if errors.Is(err, levels[l]) {
			return l
		}
	}

	return ERROR
}

// hasLevel checks if the given error has a level set already.
func hasLevel(err error) bool {
	for _, sentinel := range levels {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
