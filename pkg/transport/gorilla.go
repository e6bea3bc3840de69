package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const closeWriteTimeout = time.Second

// GorillaDialer dials sockets backed by github.com/gorilla/websocket.
type GorillaDialer struct {
	HandshakeTimeout  time.Duration
	ReadLimit         int64
	EnableCompression bool
}

func (d *GorillaDialer) Dial(ctx context.Context, url string, header http.Header) (Socket, error) {
	dialer := websocket.Dialer{
		Proxy:             http.ProxyFromEnvironment,
		HandshakeTimeout:  d.HandshakeTimeout,
		EnableCompression: d.EnableCompression,
	}
	if dialer.HandshakeTimeout == 0 {
		dialer.HandshakeTimeout = websocket.DefaultDialer.HandshakeTimeout
	}

	conn, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		dialErr := &DialError{URL: url, Err: err}
		if resp != nil {
			dialErr.StatusCode = resp.StatusCode
		}
		return nil, dialErr
	}
	if d.ReadLimit > 0 {
		conn.SetReadLimit(d.ReadLimit)
	}
	return &gorillaSocket{conn: conn}, nil
}

type gorillaSocket struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func (s *gorillaSocket) Send(ctx context.Context, frame Frame) error {
	messageType := websocket.TextMessage
	if frame.Type == BinaryMessage {
		messageType = websocket.BinaryMessage
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		_ = s.conn.SetWriteDeadline(deadline)
		defer s.conn.SetWriteDeadline(time.Time{})
	}
	stop := context.AfterFunc(ctx, func() {
		_ = s.conn.SetWriteDeadline(time.Now())
	})
	defer stop()

	if err := s.conn.WriteMessage(messageType, frame.Data); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("websocket write: %w", err)
	}
	return nil
}

func (s *gorillaSocket) Receive(ctx context.Context) (Frame, error) {
	stop := context.AfterFunc(ctx, func() {
		_ = s.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	messageType, data, err := s.conn.ReadMessage()
	if err != nil {
		var closeErr *websocket.CloseError
		if errors.As(err, &closeErr) {
			return Frame{}, &CloseError{Code: closeErr.Code, Reason: closeErr.Text}
		}
		if ctx.Err() != nil {
			return Frame{}, ctx.Err()
		}
		return Frame{}, fmt.Errorf("websocket read: %w", err)
	}

	frame := Frame{Type: TextMessage, Data: data}
	if messageType == websocket.BinaryMessage {
		frame.Type = BinaryMessage
	}
	return frame, nil
}

func (s *gorillaSocket) Close(code int, reason string) error {
	s.closeOnce.Do(func() {
		s.writeMu.Lock()
		msg := websocket.FormatCloseMessage(code, reason)
		_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteTimeout))
		s.writeMu.Unlock()
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}
