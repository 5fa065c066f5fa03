// Package streamerr defines the closed failure taxonomy shared by the
// streaming client. Retry and presentation layers pattern-match on the
// Kind tag instead of inspecting error strings.
package streamerr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies one failure class in the streaming taxonomy.
type Kind string

const (
	// KindParse marks a frame that could not be decoded as JSON.
	KindParse Kind = "parse_error"
	// KindInvalidFormat marks a decoded frame that is not a JSON object.
	KindInvalidFormat Kind = "invalid_format"
	// KindConnectionFailed marks a handshake that did not reach streaming.
	KindConnectionFailed Kind = "connection_failed"
	// KindStream marks an error payload delivered over an open stream.
	KindStream Kind = "stream_error"
	// KindNoMessages marks a stream that closed cleanly without any payload.
	KindNoMessages Kind = "no_messages_received"
	// KindAborted marks caller cancellation or watchdog timeout.
	KindAborted Kind = "aborted"
)

// maxPayloadContext bounds raw payload excerpts attached to errors.
const maxPayloadContext = 1000

// Error is a classified streaming failure. Values are immutable once
// constructed; Context must not be mutated by consumers.
type Error struct {
	// Kind tags the failure class.
	Kind Kind
	// Message is the human-readable description.
	Message string
	// Status is the HTTP status code when applicable, zero otherwise.
	Status int
	// CorrelationID links the failure to a server-side unit of work.
	CorrelationID string
	// Silent reports a stream error whose producer supplied no message.
	Silent bool
	// Context carries diagnostic details such as truncated payloads.
	Context map[string]any
	// cause is the wrapped underlying error, when any.
	cause error
}

// Error renders the kind tag and message, plus status when present.
func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Kind, e.Message, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches another taxonomy error by kind, so callers can use
// errors.Is(err, &Error{Kind: KindAborted}) style sentinels.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind
}

// NewParse builds a ParseError carrying a truncated excerpt of the
// undecodable frame.
func NewParse(raw []byte, cause error) *Error {
	return &Error{
		Kind:    KindParse,
		Message: "failed to decode stream frame",
		Context: map[string]any{"payload": Truncate(string(raw))},
		cause:   cause,
	}
}

// NewInvalidFormat builds an InvalidFormat error for frames that decode
// to something other than a JSON object.
func NewInvalidFormat(raw []byte) *Error {
	return &Error{
		Kind:    KindInvalidFormat,
		Message: "stream frame is not a JSON object",
		Context: map[string]any{"payload": Truncate(string(raw))},
	}
}

// NewConnectionFailed builds a ConnectionFailed error from a rejected
// handshake, retaining the response status and headers.
func NewConnectionFailed(status int, header http.Header) *Error {
	return &Error{
		Kind:    KindConnectionFailed,
		Message: fmt.Sprintf("stream connection rejected: %s", http.StatusText(status)),
		Status:  status,
		Context: map[string]any{"headers": flattenHeader(header)},
	}
}

// NewConnectionError builds a ConnectionFailed error for transport
// failures that never produced an HTTP response.
func NewConnectionError(cause error) *Error {
	return &Error{
		Kind:    KindConnectionFailed,
		Message: fmt.Sprintf("stream connection failed: %v", cause),
		cause:   cause,
	}
}

// NewStream builds a StreamError from an error payload delivered over
// an open stream. A silent error carries a generic message because the
// producer supplied none.
func NewStream(message string, silent bool, correlationID string) *Error {
	if silent || message == "" {
		message = "stream reported an error without details"
		silent = true
	}
	return &Error{
		Kind:          KindStream,
		Message:       message,
		Silent:        silent,
		CorrelationID: correlationID,
	}
}

// WrapUnknown converts an unrecognized failure into a generic
// StreamError so no error leaves the client unclassified.
func WrapUnknown(err error) *Error {
	return &Error{
		Kind:    KindStream,
		Message: fmt.Sprintf("unexpected stream failure: %v", err),
		Context: map[string]any{"cause": fmt.Sprint(err)},
		cause:   err,
	}
}

// NewNoMessages builds the terminal error for a stream that opened and
// closed without ever emitting a payload.
func NewNoMessages() *Error {
	return &Error{
		Kind:    KindNoMessages,
		Message: "stream closed without delivering any message",
	}
}

// NewAborted builds an Aborted error from a cancellation cause.
func NewAborted(cause error) *Error {
	return &Error{
		Kind:    KindAborted,
		Message: "stream aborted",
		cause:   cause,
	}
}

// KindOf classifies an arbitrary error. Context cancellation and
// deadline expiry map to KindAborted; anything else without a taxonomy
// wrapper reports an empty kind.
func KindOf(err error) Kind {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindAborted
	}
	return ""
}

// IsAborted reports whether err represents cancellation or timeout.
// The retry executor uses this to bypass its budget.
func IsAborted(err error) bool {
	return KindOf(err) == KindAborted
}

// Truncate bounds a payload excerpt for diagnostic context.
func Truncate(payload string) string {
	if len(payload) <= maxPayloadContext {
		return payload
	}
	return payload[:maxPayloadContext]
}

// flattenHeader copies response headers into a loggable map.
func flattenHeader(header http.Header) map[string]string {
	if header == nil {
		return nil
	}
	flat := make(map[string]string, len(header))
	for key := range header {
		flat[key] = header.Get(key)
	}
	return flat
}
