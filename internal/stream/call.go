package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/openclaude/streamkit/internal/diag"
	"github.com/openclaude/streamkit/internal/retry"
	"github.com/openclaude/streamkit/internal/streamerr"
)

// Client binds the streaming entry point to its collaborators. All
// three are injected so the client stays testable in isolation.
type Client struct {
	// Transport opens event-stream connections.
	Transport Transport
	// Headers resolves per-call request headers, when set.
	Headers HeaderFunc
	// Reporter receives classified failures; nil disables diagnostics.
	Reporter diag.Reporter
}

// reporter returns the configured diagnostics reporter or a no-op.
func (c *Client) reporter() diag.Reporter {
	if c.Reporter == nil {
		return diag.Nop()
	}
	return c.Reporter
}

// Call performs one resilient streaming request. It opens a server-push
// event stream, forwards every decoded message to onMessage in arrival
// order, and resolves with the last message seen once the producer
// closes the stream. Transport and protocol failures are retried with
// bounded exponential backoff; cancellation and timeout are terminal.
//
// Every failure path settles with exactly one taxonomy error from the
// streamerr package, never an unclassified failure.
func Call[T any](
	ctx context.Context,
	client *Client,
	path string,
	method string,
	body any,
	onMessage func(T),
	opts Options,
) (T, error) {
	var zero T
	if client == nil || client.Transport == nil {
		return zero, errors.New("stream transport is required")
	}
	if !allowedMethod(method) {
		return zero, fmt.Errorf("unsupported stream method %q", method)
	}

	// One watchdog bounds the entire call, retries included. It is
	// disarmed on every exit path. Caller cancellation and the timer
	// share the same context, so the session reacts to whichever
	// fires first.
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	// Serialize the body once so every retry attempt sends identical
	// bytes.
	payload, err := marshalBody(method, body)
	if err != nil {
		return zero, fmt.Errorf("marshal stream body: %w", err)
	}

	callID := uuid.NewString()

	return retry.Do(ctx, opts.Retry, func(ctx context.Context) (T, error) {
		header, err := resolveHeaders(ctx, client, callID, payload)
		if err != nil {
			return zero, err
		}
		req := Request{
			Path:   path,
			Method: method,
			Header: header,
			Body:   payload,
		}
		return runSession(ctx, client, req, onMessage, callID)
	})
}

// allowedMethod restricts streaming calls to the supported verbs.
func allowedMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

// marshalBody serializes the request body for non-idempotent methods,
// injecting the streaming flag into object payloads. GET requests never
// carry a body.
func marshalBody(method string, body any) ([]byte, error) {
	if method == http.MethodGet || body == nil {
		return nil, nil
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	var asObject map[string]any
	if err := json.Unmarshal(payload, &asObject); err != nil || asObject == nil {
		return payload, nil
	}
	asObject["stream"] = true
	return json.Marshal(asObject)
}

// resolveHeaders runs the header provider and layers the streaming
// headers on top. Provider failures are classified and reported so
// they surface like any other stream failure.
func resolveHeaders(ctx context.Context, client *Client, callID string, payload []byte) (http.Header, error) {
	header := http.Header{}
	if client.Headers != nil {
		resolved, err := client.Headers(ctx)
		if err != nil {
			if aborted := abortError(ctx, err); aborted != nil {
				return nil, aborted
			}
			classified := streamerr.WrapUnknown(err)
			client.report(ctx, classified, Request{}, callID)
			return nil, classified
		}
		header = cloneHeader(resolved)
	}
	header.Set("Accept", eventStreamContentType)
	header.Set("X-Request-ID", callID)
	if payload != nil {
		header.Set("Content-Type", "application/json")
	}
	return header, nil
}
