package diag

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// TestCaptureErrorLogsKindAndFields verifies captured failures reach
// the underlying logger with their context fields.
func TestCaptureErrorLogsKindAndFields(testingHandle *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	reporter := NewReporter(zap.New(core))

	reporter.CaptureError(context.Background(), errors.New("boom"), zap.String("path", "/drafts/stream"))

	entries := logs.All()
	if len(entries) != 1 {
		testingHandle.Fatalf("expected one log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["path"] != "/drafts/stream" {
		testingHandle.Fatalf("path field lost: %#v", fields)
	}
	if fields["error"] != "boom" {
		testingHandle.Fatalf("error field lost: %#v", fields)
	}
}

// TestCaptureErrorIgnoresNil verifies nil errors produce no noise.
func TestCaptureErrorIgnoresNil(testingHandle *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	reporter := NewReporter(zap.New(core))

	reporter.CaptureError(context.Background(), nil)
	if len(logs.All()) != 0 {
		testingHandle.Fatal("nil errors must not be logged")
	}
}

// TestNewReporterToleratesNilLogger verifies the nil fallback.
func TestNewReporterToleratesNilLogger(testingHandle *testing.T) {
	reporter := NewReporter(nil)
	reporter.CaptureError(context.Background(), errors.New("boom"))
}
