package utils

import (
	"github.com/getsentry/sentry-go"
	"github.com/keystat/keystat/pkg/errlvl"
)

type sentryHub interface {
	CaptureException(exception error) *sentry.EventID
	WithScope(callback func(scope *sentry.Scope))
}

// CaptureSentryException captures err in the hub under the given exception type name.
// Sentry names exceptions after the Go error type (*errors.joinError, *fmt.wrapError...), which says nothing
// about the failed pipeline stage, so the top exception type is rewritten to name.
func CaptureSentryException(name string, hub sentryHub, err error) {
	lvl := errorsLevelMatcher(err)
	hub.WithScope(func(scope *sentry.Scope) {
		scope.AddEventProcessor(func(e *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			if len(e.Exception) > 0 {
				e.Exception[len(e.Exception)-1].Type = name
			}
			e.Level = lvl
			return e
		})
		hub.CaptureException(err)
	})
}

// errorsLevelMatcher returns the Sentry level for the errlvl level of err.
func errorsLevelMatcher(err error) sentry.Level {
	switch errlvl.Of(err) {
	case errlvl.FATAL:
		return sentry.LevelFatal
	case errlvl.ERROR:
		return sentry.LevelError
	case errlvl.WARN:
		return sentry.LevelWarning
	case errlvl.INFO:
		return sentry.LevelInfo
	default:
		return sentry.LevelDebug
	}
}
