package stream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/openclaude/streamkit/internal/streamerr"
)

// eventStreamContentType is the handshake content type a healthy
// event-stream endpoint must report.
const eventStreamContentType = "text/event-stream"

// runSession drives one connection attempt from open to close. Each
// attempt starts fresh: no state, including the last message seen,
// carries over from a previous attempt.
func runSession[T any](
	ctx context.Context,
	client *Client,
	req Request,
	onMessage func(T),
	callID string,
) (T, error) {
	var zero T

	conn, err := client.Transport.Open(ctx, req)
	if err != nil {
		if aborted := abortError(ctx, err); aborted != nil {
			return zero, aborted
		}
		classified := streamerr.NewConnectionError(err)
		client.report(ctx, classified, req, callID)
		return zero, classified
	}
	// The connection is torn down on every exit path, including abort.
	defer conn.Close()

	if failure := checkHandshake(conn); failure != nil {
		client.report(ctx, failure, req, callID)
		return zero, failure
	}

	var last T
	received := false
	for {
		if err := ctx.Err(); err != nil {
			return zero, streamerr.NewAborted(err)
		}

		raw, err := conn.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				if received {
					return last, nil
				}
				classified := streamerr.NewNoMessages()
				client.report(ctx, classified, req, callID)
				return zero, classified
			}
			if aborted := abortError(ctx, err); aborted != nil {
				return zero, aborted
			}
			classified := streamerr.WrapUnknown(err)
			client.report(ctx, classified, req, callID)
			return zero, classified
		}

		event := Classify(ctx, raw, client.reporter())
		if event.Err != nil {
			return zero, event.Err
		}

		var message T
		if err := json.Unmarshal(event.Message, &message); err != nil {
			classified := streamerr.NewInvalidFormat(event.Message)
			client.report(ctx, classified, req, callID)
			return zero, classified
		}

		// At-least-once per frame; the session does not deduplicate.
		last = message
		received = true
		if onMessage != nil {
			onMessage(message)
		}
	}
}

// checkHandshake validates the connection handshake: anything other
// than a 2xx event-stream response fails the session before streaming.
func checkHandshake(conn Conn) error {
	status := conn.Status()
	if status < 200 || status >= 300 {
		return streamerr.NewConnectionFailed(status, conn.Header())
	}
	contentType := conn.Header().Get("Content-Type")
	if !strings.HasPrefix(contentType, eventStreamContentType) {
		return streamerr.NewConnectionFailed(status, conn.Header())
	}
	return nil
}

// abortError maps cancellation-flavored failures to the Aborted kind,
// or returns nil when err is unrelated to cancellation.
func abortError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return streamerr.NewAborted(ctx.Err())
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return streamerr.NewAborted(err)
	}
	return nil
}

// report forwards a classified failure to the diagnostics reporter
// with enough request context to reproduce it. Aborted failures are
// never reported.
func (c *Client) report(ctx context.Context, err error, req Request, callID string) {
	c.reporter().CaptureError(ctx, err,
		zap.String("path", req.Path),
		zap.String("method", req.Method),
		zap.String("request_id", callID),
	)
}

// cloneHeader copies resolved headers so a retry attempt never observes
// mutations from a previous one.
func cloneHeader(header http.Header) http.Header {
	cloned := make(http.Header, len(header)+2)
	for key, values := range header {
		cloned[key] = append([]string(nil), values...)
	}
	return cloned
}
