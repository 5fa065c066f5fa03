package stream

import (
	"context"
	"net/http"
)

// Request describes one streaming connection attempt handed to the
// transport. Body is already serialized; nil means no request body.
type Request struct {
	// Path is the endpoint path relative to the transport's base URL.
	Path string
	// Method is the HTTP method for the request.
	Method string
	// Header carries the fully resolved request headers.
	Header http.Header
	// Body is the serialized JSON request body, when any.
	Body []byte
}

// Conn is one open event-stream connection. Recv returns io.EOF when
// the producer closes the stream cleanly.
type Conn interface {
	// Status reports the handshake HTTP status code.
	Status() int
	// Header returns the handshake response headers.
	Header() http.Header
	// Recv blocks for the next frame payload.
	Recv() ([]byte, error)
	// Close tears down the connection. Safe to call more than once.
	Close() error
}

// Transport opens event-stream connections. It must honor ctx
// cancellation both during the handshake and while frames are pending.
type Transport interface {
	Open(ctx context.Context, req Request) (Conn, error)
}

// HeaderFunc supplies request headers (auth, content negotiation) per
// call. The client treats it as an opaque async dependency.
type HeaderFunc func(ctx context.Context) (http.Header, error)
