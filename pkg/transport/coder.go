package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/coder/websocket"
)

const defaultCoderReadLimit = 4 << 20

// CoderDialer dials sockets backed by github.com/coder/websocket.
type CoderDialer struct {
	ReadLimit  int64
	HTTPClient *http.Client
}

func (d *CoderDialer) Dial(ctx context.Context, url string, header http.Header) (Socket, error) {
	conn, resp, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		HTTPClient: d.HTTPClient,
		HTTPHeader: header,
	})
	if err != nil {
		dialErr := &DialError{URL: url, Err: err}
		if resp != nil {
			dialErr.StatusCode = resp.StatusCode
		}
		return nil, dialErr
	}

	limit := d.ReadLimit
	if limit == 0 {
		limit = defaultCoderReadLimit
	}
	conn.SetReadLimit(limit)
	return &coderSocket{conn: conn}, nil
}

type coderSocket struct {
	conn      *websocket.Conn
	closeOnce sync.Once
	closeErr  error
}

func (s *coderSocket) Send(ctx context.Context, frame Frame) error {
	messageType := websocket.MessageText
	if frame.Type == BinaryMessage {
		messageType = websocket.MessageBinary
	}
	if err := s.conn.Write(ctx, messageType, frame.Data); err != nil {
		return fmt.Errorf("websocket write: %w", err)
	}
	return nil
}

func (s *coderSocket) Receive(ctx context.Context) (Frame, error) {
	messageType, data, err := s.conn.Read(ctx)
	if err != nil {
		var closeErr websocket.CloseError
		if errors.As(err, &closeErr) {
			return Frame{}, &CloseError{Code: int(closeErr.Code), Reason: closeErr.Reason}
		}
		if ctx.Err() != nil {
			return Frame{}, ctx.Err()
		}
		return Frame{}, fmt.Errorf("websocket read: %w", err)
	}

	frame := Frame{Type: TextMessage, Data: data}
	if messageType == websocket.MessageBinary {
		frame.Type = BinaryMessage
	}
	return frame, nil
}

func (s *coderSocket) Close(code int, reason string) error {
	s.closeOnce.Do(func() {
		s.closeErr = s.conn.Close(websocket.StatusCode(code), reason)
		if s.closeErr != nil && errors.Is(s.closeErr, net.ErrClosed) {
			s.closeErr = nil
		}
	})
	return s.closeErr
}
