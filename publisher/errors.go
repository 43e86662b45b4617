package publisher

import (
	"errors"
	"fmt"
	"strings"

	"github.com/keystat/keystat/pkg/errlvl"
)

var (
	errCreateRequest  = errors.New("failed to create request")
	errRequestFailed  = errors.New("request to the platform failed")
	errRejected       = errors.New("post rejected by the platform")
	errDecodeResponse = errors.New("failed to decode platform response")
	errEmptyText      = errors.New("post text is empty")
)

// Error is returned when a post could not be published.
type Error struct {
	level    errlvl.Lvl // severity level of the error
	errs     []error    // generic error + the real cause
	Platform string     // "x" or "telegram"
	Code     int        // platform error code (HTTP status for X), 0 if unknown
	Messages []string   // messages returned by the platform
}

func (e *Error) Error() string {
	return e.Unwrap().Error()
}

func (e *Error) Unwrap() error {
	prefix := e.Platform
	if e.Code != 0 {
		prefix = fmt.Sprintf("%s: code %d", prefix, e.Code)
	}
	if len(e.Messages) > 0 {
		prefix = fmt.Sprintf("%s: %s", prefix, strings.Join(e.Messages, "; "))
	}
	return errlvl.Wrap(fmt.Errorf("%s: %w", prefix, errors.Join(e.errs...)), e.level)
}

// WithResponse sets the platform error code and messages.
func (e *Error) WithResponse(code int, messages ...string) *Error {
	e.Code = code
	e.Messages = messages
	return e
}

// newError creates a new Error instance with the given errors.
func newError(platform string, lvl errlvl.Lvl, errs ...error) *Error {
	return &Error{
		level:    lvl,
		errs:     errs,
		Platform: platform,
	}
}
