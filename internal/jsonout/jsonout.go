// Package jsonout emits streaming progress as JSON Lines for piping
// streamkit output into other tools.
package jsonout

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// MessageEvent reports one message frame received from the stream.
type MessageEvent struct {
	// Type is always "message".
	Type string `json:"type"`
	// Payload is the verbatim message frame.
	Payload json.RawMessage `json:"payload"`
	// RequestID identifies the logical call.
	RequestID string `json:"request_id"`
	// UUID uniquely identifies the event.
	UUID string `json:"uuid"`
	// ElapsedMS is the time since the call started, in milliseconds.
	ElapsedMS int64 `json:"elapsed_ms"`
}

// ErrorEvent reports the classified terminal failure of a call.
type ErrorEvent struct {
	// Type is always "error".
	Type string `json:"type"`
	// Kind is the taxonomy kind tag.
	Kind string `json:"kind"`
	// Message is the human-readable description.
	Message string `json:"message"`
	// CorrelationID links the failure to a server-side run, when known.
	CorrelationID string `json:"correlation_id,omitempty"`
	// RequestID identifies the logical call.
	RequestID string `json:"request_id"`
	// UUID uniquely identifies the event.
	UUID string `json:"uuid"`
}

// ResultEvent reports the settled value of a successful call.
type ResultEvent struct {
	// Type is always "result".
	Type string `json:"type"`
	// Document is the final reconciled text.
	Document string `json:"document"`
	// Frames counts the message frames received.
	Frames int `json:"frames"`
	// RequestID identifies the logical call.
	RequestID string `json:"request_id"`
	// UUID uniquely identifies the event.
	UUID string `json:"uuid"`
	// ElapsedMS is the total call duration in milliseconds.
	ElapsedMS int64 `json:"elapsed_ms"`
}

// Writer emits events as JSON Lines.
type Writer struct {
	// writer is the output sink.
	writer io.Writer
	// requestID scopes all events to one logical call.
	requestID string
	// start anchors elapsed-time reporting.
	start time.Time
}

// NewWriter constructs a writer for one logical call.
func NewWriter(writer io.Writer, requestID string) *Writer {
	return &Writer{
		writer:    writer,
		requestID: requestID,
		start:     time.Now(),
	}
}

// Message emits a message event for one received frame.
func (w *Writer) Message(payload json.RawMessage) error {
	return w.emit(MessageEvent{
		Type:      "message",
		Payload:   payload,
		RequestID: w.requestID,
		UUID:      uuid.NewString(),
		ElapsedMS: time.Since(w.start).Milliseconds(),
	})
}

// Error emits the terminal failure event.
func (w *Writer) Error(kind string, message string, correlationID string) error {
	return w.emit(ErrorEvent{
		Type:          "error",
		Kind:          kind,
		Message:       message,
		CorrelationID: correlationID,
		RequestID:     w.requestID,
		UUID:          uuid.NewString(),
	})
}

// Result emits the final document event.
func (w *Writer) Result(document string, frames int) error {
	return w.emit(ResultEvent{
		Type:      "result",
		Document:  document,
		Frames:    frames,
		RequestID: w.requestID,
		UUID:      uuid.NewString(),
		ElapsedMS: time.Since(w.start).Milliseconds(),
	})
}

// emit writes a single event as one JSON line.
func (w *Writer) emit(event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal output event: %w", err)
	}
	if _, err := w.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write output event: %w", err)
	}
	return nil
}
