package utils

import "github.com/getsentry/sentry-go"

// AddBreadcrumb records an info breadcrumb on the hub.
func AddBreadcrumb(hub *sentry.Hub, category, message string) {
	AddLeveledBreadcrumb(hub, category, message, sentry.LevelInfo)
}

// AddLeveledBreadcrumb records a breadcrumb with an explicit level.
func AddLeveledBreadcrumb(hub *sentry.Hub, category, message string, level sentry.Level) {
	hub.AddBreadcrumb(&sentry.Breadcrumb{
		Category: category,
		Message:  message,
		Level:    level,
	}, nil)
}
