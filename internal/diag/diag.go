// Package diag is the process-wide diagnostics collaborator. The
// streaming client reports classified failures here exactly once, at
// the point of classification; reporting is fire-and-forget and never
// fatal to the call being diagnosed.
package diag

import (
	"context"

	"go.uber.org/zap"
)

// Reporter receives classified stream failures for diagnostics.
type Reporter interface {
	// CaptureError records one classified failure with request context.
	// Implementations must not block the calling stream.
	CaptureError(ctx context.Context, err error, fields ...zap.Field)
}

// logReporter writes captured failures to a structured logger.
type logReporter struct {
	// logger is the underlying zap logger.
	logger *zap.Logger
}

// NewReporter builds a Reporter backed by the given zap logger.
func NewReporter(logger *zap.Logger) Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &logReporter{logger: logger}
}

// Nop returns a Reporter that discards everything, for tests and for
// callers that opt out of diagnostics.
func Nop() Reporter {
	return &logReporter{logger: zap.NewNop()}
}

// CaptureError logs the failure and its context fields.
func (r *logReporter) CaptureError(ctx context.Context, err error, fields ...zap.Field) {
	if err == nil {
		return
	}
	fields = append(fields, zap.Error(err))
	r.logger.Error("stream failure", fields...)
}
