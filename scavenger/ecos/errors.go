package ecos

import (
	"errors"
	"fmt"

	"github.com/keystat/keystat/pkg/errlvl"
)

var (
	errCreateRequest = errors.New("failed to create request")
	errRequestFailed = errors.New("request to ECOS failed")
	errInvalidStatus = errors.New("invalid status code")
	errReadBody      = errors.New("failed to read response body")
	errDecodeBody    = errors.New("failed to decode response body")
)

// Error is returned by KeyStatistics.Fetch when the statistics could not be fetched.
type Error struct {
	level      errlvl.Lvl // severity level of the error
	errs       []error    // generic error + the real cause
	StatusCode int        // HTTP status code, 0 if no response was received
}

func (e *Error) Error() string {
	return e.wrapped().Error()
}

func (e *Error) Unwrap() error {
	return e.wrapped()
}

// WithStatus sets the HTTP status code of the failed response.
func (e *Error) WithStatus(code int) *Error {
	e.StatusCode = code
	return e
}

func (e *Error) wrapped() error {
	err := errors.Join(e.errs...)
	if e.StatusCode != 0 {
		err = fmt.Errorf("ecos (status %d): %w", e.StatusCode, err)
	} else {
		err = fmt.Errorf("ecos: %w", err)
	}
	return errlvl.Wrap(err, e.level)
}

func newError(lvl errlvl.Lvl, errs ...error) *Error {
	return &Error{
		level: lvl,
		errs:  errs,
	}
}
