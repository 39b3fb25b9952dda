package apperrors

import (
	"sync"

	"github.com/getsentry/sentry-go"
)

// telemetryEnabled gates whether Report sends events to Sentry. Disabled
// by default; callers opt in via EnableTelemetry during startup, mirroring
// the teacher's pattern of treating telemetry as an optional sink rather
// than an ambient default.
var (
	telemetryMu      sync.Mutex
	telemetryEnabled bool
)

// EnableTelemetry turns on Sentry reporting for categories that warrant it
// (resource exhaustion and configuration errors, per SPEC_FULL §7).
func EnableTelemetry(dsn string) error {
	if dsn == "" {
		return nil
	}
	if err := sentry.Init(sentry.ClientOptions{Dsn: dsn}); err != nil {
		return Wrap(err).Component("apperrors").Category(CategoryConfiguration).Build()
	}
	telemetryMu.Lock()
	telemetryEnabled = true
	telemetryMu.Unlock()
	return nil
}

// Report sends err to telemetry if enabled and the category warrants it,
// then marks it reported so repeated calls are idempotent.
func Report(err *Error) {
	if err == nil || err.Reported() {
		return
	}
	telemetryMu.Lock()
	enabled := telemetryEnabled
	telemetryMu.Unlock()
	if !enabled {
		return
	}
	switch err.Category() {
	case CategoryResource, CategoryConfiguration:
		sentry.WithScope(func(scope *sentry.Scope) {
			scope.SetTag("component", err.Component())
			scope.SetTag("category", string(err.Category()))
			for k, v := range err.Context() {
				scope.SetContext(k, map[string]any{"value": v})
			}
			sentry.CaptureException(err)
		})
		err.MarkReported()
	}
}
