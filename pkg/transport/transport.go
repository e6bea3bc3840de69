// Package transport defines the duplex socket contract used by the live
// connection manager, plus WebSocket implementations of it.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type MessageType int

const (
	TextMessage MessageType = iota + 1
	BinaryMessage
)

func (t MessageType) String() string {
	switch t {
	case TextMessage:
		return "text"
	case BinaryMessage:
		return "binary"
	default:
		return fmt.Sprintf("MessageType(%d)", int(t))
	}
}

// Frame is one discrete unit read from or written to a socket.
type Frame struct {
	Type MessageType
	Data []byte
}

// WebSocket close codes the live layer cares about.
const (
	CloseNormal    = 1000
	CloseGoingAway = 1001
	CloseAbnormal  = 1006

	// CloseInternalError is sent when the local side tears down after a
	// failure.
	CloseInternalError = 1011
)

var ErrSocketClosed = errors.New("transport: socket closed")

// CloseError is returned by Receive when the remote end sent a close frame.
type CloseError struct {
	Code   int
	Reason string
}

func (e *CloseError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("transport: closed by peer (code=%d)", e.Code)
	}
	return fmt.Sprintf("transport: closed by peer (code=%d, reason=%s)", e.Code, e.Reason)
}

// Normal reports whether the peer closed the session gracefully.
func (e *CloseError) Normal() bool {
	return e.Code == CloseNormal || e.Code == CloseGoingAway
}

// DialError wraps a failed handshake. StatusCode is set when the server
// answered the upgrade request with an HTTP error.
type DialError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *DialError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transport: dial %s: http status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("transport: dial %s: %v", e.URL, e.Err)
}

func (e *DialError) Unwrap() error {
	return e.Err
}

// Socket is a single established duplex connection. Send may be called
// concurrently with Receive, but callers serialize their own Sends.
type Socket interface {
	Send(ctx context.Context, frame Frame) error
	Receive(ctx context.Context) (Frame, error)
	Close(code int, reason string) error
}

type Dialer interface {
	Dial(ctx context.Context, url string, header http.Header) (Socket, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, url string, header http.Header) (Socket, error)

func (f DialerFunc) Dial(ctx context.Context, url string, header http.Header) (Socket, error) {
	return f(ctx, url, header)
}

// NewDialer returns the dialer registered under name ("gorilla" or "coder").
// An empty name selects gorilla.
func NewDialer(name string, handshakeTimeout time.Duration) (Dialer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "gorilla":
		return &GorillaDialer{HandshakeTimeout: handshakeTimeout}, nil
	case "coder":
		return &CoderDialer{}, nil
	default:
		return nil, fmt.Errorf("unknown transport %q", name)
	}
}
