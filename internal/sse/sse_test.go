package sse

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openclaude/streamkit/internal/stream"
	"github.com/openclaude/streamkit/internal/testutil"
)

// openConn dials a test server and returns the open connection.
func openConn(testingHandle *testing.T, handler http.HandlerFunc) stream.Conn {
	testingHandle.Helper()
	server := httptest.NewServer(handler)
	httpClient := &http.Client{}
	testingHandle.Cleanup(func() {
		httpClient.CloseIdleConnections()
		server.Close()
	})

	client := NewClient(server.URL, httpClient)
	conn, err := client.Open(context.Background(), stream.Request{
		Path:   "/events",
		Method: http.MethodGet,
		Header: http.Header{},
	})
	testutil.RequireNoError(testingHandle, err, "open connection")
	testingHandle.Cleanup(func() { _ = conn.Close() })
	return conn
}

// recvAll drains the connection until clean close.
func recvAll(testingHandle *testing.T, conn stream.Conn) []string {
	testingHandle.Helper()
	var frames []string
	for {
		payload, err := conn.Recv()
		if errors.Is(err, io.EOF) {
			return frames
		}
		testutil.RequireNoError(testingHandle, err, "recv frame")
		frames = append(frames, string(payload))
	}
}

// TestRecvSplitsDataFrames verifies one payload per blank-line-delimited
// event.
func TestRecvSplitsDataFrames(testingHandle *testing.T) {
	conn := openConn(testingHandle, func(responseWriter http.ResponseWriter, request *http.Request) {
		responseWriter.Header().Set("Content-Type", "text/event-stream")
		_, _ = fmt.Fprint(responseWriter, "data: {\"a\":1}\n\ndata: {\"a\":2}\n\n")
	})
	frames := recvAll(testingHandle, conn)
	testutil.RequireEqual(testingHandle, frames, []string{`{"a":1}`, `{"a":2}`}, "frame split")
}

// TestRecvJoinsMultiLineData verifies consecutive data lines within one
// event join with newlines.
func TestRecvJoinsMultiLineData(testingHandle *testing.T) {
	conn := openConn(testingHandle, func(responseWriter http.ResponseWriter, request *http.Request) {
		responseWriter.Header().Set("Content-Type", "text/event-stream")
		_, _ = fmt.Fprint(responseWriter, "data: first line\ndata: second line\n\n")
	})
	frames := recvAll(testingHandle, conn)
	testutil.RequireEqual(testingHandle, frames, []string{"first line\nsecond line"}, "multi-line join")
}

// TestRecvIgnoresNonDataFields verifies comments and other SSE fields
// do not leak into payloads.
func TestRecvIgnoresNonDataFields(testingHandle *testing.T) {
	conn := openConn(testingHandle, func(responseWriter http.ResponseWriter, request *http.Request) {
		responseWriter.Header().Set("Content-Type", "text/event-stream")
		_, _ = fmt.Fprint(responseWriter, ": keepalive comment\nevent: update\nid: 7\ndata: payload\n\n")
	})
	frames := recvAll(testingHandle, conn)
	testutil.RequireEqual(testingHandle, frames, []string{"payload"}, "only data fields count")
}

// TestRecvHandlesCRLFAndEOFWithoutTrailingBlank verifies carriage
// returns are stripped and a final event unterminated by a blank line
// is still delivered before EOF.
func TestRecvHandlesCRLFAndEOFWithoutTrailingBlank(testingHandle *testing.T) {
	conn := openConn(testingHandle, func(responseWriter http.ResponseWriter, request *http.Request) {
		responseWriter.Header().Set("Content-Type", "text/event-stream")
		_, _ = fmt.Fprint(responseWriter, "data: one\r\n\r\ndata: final")
	})
	frames := recvAll(testingHandle, conn)
	testutil.RequireEqual(testingHandle, frames, []string{"one", "final"}, "CRLF and unterminated tail")
}

// TestOpenExposesHandshakeMetadata verifies status and headers surface
// even for rejected handshakes, so the session can classify them.
func TestOpenExposesHandshakeMetadata(testingHandle *testing.T) {
	conn := openConn(testingHandle, func(responseWriter http.ResponseWriter, request *http.Request) {
		responseWriter.Header().Set("Retry-After", "30")
		responseWriter.WriteHeader(http.StatusServiceUnavailable)
	})
	testutil.RequireEqual(testingHandle, conn.Status(), http.StatusServiceUnavailable, "handshake status")
	testutil.RequireEqual(testingHandle, conn.Header().Get("Retry-After"), "30", "handshake headers")
}

// TestCloseIsIdempotent verifies double close is safe.
func TestCloseIsIdempotent(testingHandle *testing.T) {
	conn := openConn(testingHandle, func(responseWriter http.ResponseWriter, request *http.Request) {
		responseWriter.Header().Set("Content-Type", "text/event-stream")
		_, _ = fmt.Fprint(responseWriter, "data: x\n\n")
	})
	testutil.RequireNoError(testingHandle, conn.Close(), "first close")
	testutil.RequireNoError(testingHandle, conn.Close(), "second close")
}

// TestOpenHonorsContextCancellation verifies an already-cancelled
// context aborts the handshake.
func TestOpenHonorsContextCancellation(testingHandle *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		<-request.Context().Done()
	}))
	httpClient := &http.Client{}
	testingHandle.Cleanup(func() {
		httpClient.CloseIdleConnections()
		server.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewClient(server.URL, httpClient).Open(ctx, stream.Request{
		Path:   "/events",
		Method: http.MethodGet,
		Header: http.Header{},
	})
	testutil.RequireError(testingHandle, err, "cancelled handshake")
	testutil.RequireTrue(testingHandle, errors.Is(err, context.Canceled), "cause is context cancellation")
}
