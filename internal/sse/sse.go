// Package sse is the HTTP transport for server-sent event streams. It
// implements the stream.Transport interface over net/http, honoring
// request-context cancellation during the handshake and while frames
// are pending.
package sse

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/openclaude/streamkit/internal/stream"
)

// Client opens SSE connections against a fixed base URL.
type Client struct {
	// baseURL is the endpoint root, without a trailing slash.
	baseURL string
	// httpClient executes the underlying requests.
	httpClient *http.Client
}

// NewClient constructs an SSE transport. A nil httpClient falls back
// to a default client without a global timeout: streams are long-lived
// and bounded by the request context instead.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Open issues the HTTP request and returns the connection regardless of
// handshake status; the session layer classifies non-2xx responses.
func (c *Client) Open(ctx context.Context, req stream.Request) (stream.Conn, error) {
	var bodyReader io.Reader
	if req.Body != nil {
		bodyReader = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.requestURL(req.Path), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create stream request: %w", err)
	}
	for key, values := range req.Header {
		httpReq.Header[key] = values
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}

	return &conn{
		response: resp,
		reader:   bufio.NewReader(resp.Body),
	}, nil
}

// requestURL joins the base URL and a request path.
func (c *Client) requestURL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

// conn is one open SSE connection.
type conn struct {
	// response is the underlying HTTP response.
	response *http.Response
	// reader buffers the response body for line-oriented parsing.
	reader *bufio.Reader
	// closeOnce guards the body close.
	closeOnce sync.Once
}

// Status reports the handshake HTTP status code.
func (c *conn) Status() int {
	return c.response.StatusCode
}

// Header returns the handshake response headers.
func (c *conn) Header() http.Header {
	return c.response.Header
}

// Close tears down the connection. Safe to call more than once.
func (c *conn) Close() error {
	c.closeOnce.Do(func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(c.response.Body, 4096))
		_ = c.response.Body.Close()
	})
	return nil
}

// Recv reads the next SSE event payload. Consecutive data lines within
// one event are joined with newlines; comment and field lines other
// than data are ignored. io.EOF signals a clean close.
func (c *conn) Recv() ([]byte, error) {
	var builder strings.Builder
	for {
		line, err := c.reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")

		if line == "" {
			if builder.Len() == 0 {
				if errors.Is(err, io.EOF) {
					return nil, io.EOF
				}
				continue
			}
			return []byte(strings.TrimSuffix(builder.String(), "\n")), nil
		}

		if strings.HasPrefix(line, "data:") {
			payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			builder.WriteString(payload)
			builder.WriteByte('\n')
		}

		if errors.Is(err, io.EOF) {
			if builder.Len() == 0 {
				return nil, io.EOF
			}
			return []byte(strings.TrimSuffix(builder.String(), "\n")), nil
		}
	}
}
