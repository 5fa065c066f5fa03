package streamerr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

// TestKindOfClassifiesTaxonomyErrors verifies kind extraction through
// wrapping layers.
func TestKindOfClassifiesTaxonomyErrors(testingHandle *testing.T) {
	wrapped := fmt.Errorf("attempt 2: %w", NewNoMessages())
	if got := KindOf(wrapped); got != KindNoMessages {
		testingHandle.Fatalf("kind mismatch: want %q, got %q", KindNoMessages, got)
	}
}

// TestKindOfMapsContextCancellation verifies cancellation errors are
// treated as aborted even without a taxonomy wrapper.
func TestKindOfMapsContextCancellation(testingHandle *testing.T) {
	if !IsAborted(context.Canceled) {
		testingHandle.Fatal("context.Canceled should classify as aborted")
	}
	if !IsAborted(context.DeadlineExceeded) {
		testingHandle.Fatal("context.DeadlineExceeded should classify as aborted")
	}
	if IsAborted(errors.New("boom")) {
		testingHandle.Fatal("arbitrary errors must not classify as aborted")
	}
}

// TestErrorIsMatchesByKind verifies errors.Is support against kind
// sentinels.
func TestErrorIsMatchesByKind(testingHandle *testing.T) {
	err := NewAborted(context.Canceled)
	if !errors.Is(err, &Error{Kind: KindAborted}) {
		testingHandle.Fatal("expected kind sentinel match")
	}
	if errors.Is(err, &Error{Kind: KindStream}) {
		testingHandle.Fatal("unexpected cross-kind match")
	}
}

// TestNewStreamSilentFallback verifies that a missing message forces
// the silent flag and a generic description.
func TestNewStreamSilentFallback(testingHandle *testing.T) {
	err := NewStream("", false, "run_9")
	if !err.Silent {
		testingHandle.Fatal("empty message should mark the error silent")
	}
	if err.Message == "" {
		testingHandle.Fatal("silent errors still need a generic message")
	}
	if err.CorrelationID != "run_9" {
		testingHandle.Fatalf("correlation id lost: %q", err.CorrelationID)
	}
}

// TestNewParseTruncatesPayload verifies the payload excerpt is bounded.
func TestNewParseTruncatesPayload(testingHandle *testing.T) {
	raw := []byte(strings.Repeat("x", 5000))
	err := NewParse(raw, errors.New("bad json"))
	excerpt, ok := err.Context["payload"].(string)
	if !ok {
		testingHandle.Fatal("expected payload excerpt in context")
	}
	if len(excerpt) != maxPayloadContext {
		testingHandle.Fatalf("excerpt length: want %d, got %d", maxPayloadContext, len(excerpt))
	}
}

// TestNewConnectionFailedCarriesStatus verifies status and headers
// survive into the error value and its rendering.
func TestNewConnectionFailedCarriesStatus(testingHandle *testing.T) {
	header := http.Header{}
	header.Set("Retry-After", "5")
	err := NewConnectionFailed(http.StatusBadGateway, header)
	if err.Status != http.StatusBadGateway {
		testingHandle.Fatalf("status: want 502, got %d", err.Status)
	}
	if !strings.Contains(err.Error(), "502") {
		testingHandle.Fatalf("rendered error should include status: %s", err.Error())
	}
	headers, ok := err.Context["headers"].(map[string]string)
	if !ok || headers["Retry-After"] != "5" {
		testingHandle.Fatalf("response headers lost: %#v", err.Context["headers"])
	}
}

// TestWrapUnknownPreservesCause verifies unrecognized failures become
// stream errors without losing the root cause.
func TestWrapUnknownPreservesCause(testingHandle *testing.T) {
	cause := errors.New("socket reset")
	err := WrapUnknown(cause)
	if err.Kind != KindStream {
		testingHandle.Fatalf("kind: want %q, got %q", KindStream, err.Kind)
	}
	if !errors.Is(err, cause) {
		testingHandle.Fatal("cause must remain reachable via errors.Is")
	}
}
