package composer

import (
	"errors"
	"fmt"

	"github.com/keystat/keystat/pkg/errlvl"
)

var (
	// ErrMalformedPayload is returned when the payload has no KeyStatisticList or no row list.
	ErrMalformedPayload = errors.New("malformed key statistics payload")
	// ErrNoIndicators is returned when none of the rows matches the allow-list.
	ErrNoIndicators = errors.New("no allow-listed indicators in payload")
	// ErrPostTooLong is returned when not even the first line fits into the platform limit.
	ErrPostTooLong = errors.New("post exceeds the platform length limit")
	// ErrUnknownMode is returned by NewPostComposer for an unsupported mode.
	ErrUnknownMode = errors.New("unknown composer mode")
)

// Error is an error that occurs while turning statistics into a post.
type Error struct {
	level  errlvl.Lvl // severity level of the error
	err    error      // generic error, compared with errors.Is
	fnName string     // name of the function that caused the error
	value  string     // value that caused the error
}

func (e *Error) Error() string {
	return e.Unwrap().Error()
}

func (e *Error) Unwrap() error {
	if e.value != "" {
		return errlvl.Wrap(fmt.Errorf("[%s]: %w (value: %s)", e.fnName, e.err, e.value), e.level)
	}
	return errlvl.Wrap(fmt.Errorf("[%s]: %w", e.fnName, e.err), e.level)
}

// WithValue sets the value that caused the error.
func (e *Error) WithValue(value string) *Error {
	e.value = value
	return e
}

func newError(err error, level errlvl.Lvl, fnName string) *Error {
	return &Error{
		level:  level,
		err:    err,
		fnName: fnName,
	}
}
