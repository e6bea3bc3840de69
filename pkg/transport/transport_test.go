package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

// echoServer greets with the Authorization header, then echoes every message.
func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		if err := conn.WriteMessage(websocket.TextMessage, []byte(r.Header.Get("Authorization"))); err != nil {
			return
		}
		for {
			typ, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if string(data) == "bye" {
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done")
				_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
				return
			}
			if err := conn.WriteMessage(typ, data); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dialers() map[string]Dialer {
	return map[string]Dialer{
		"gorilla": &GorillaDialer{HandshakeTimeout: 5 * time.Second},
		"coder":   &CoderDialer{},
	}
}

func TestDialer_RoundTrip(t *testing.T) {
	srv := echoServer(t)

	for name, dialer := range dialers() {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			header := http.Header{}
			header.Set("Authorization", "Token secret")
			sock, err := dialer.Dial(ctx, wsURL(srv), header)
			require.NoError(t, err)
			defer sock.Close(CloseNormal, "")

			greeting, err := sock.Receive(ctx)
			require.NoError(t, err)
			assert.Equal(t, TextMessage, greeting.Type)
			assert.Equal(t, "Token secret", string(greeting.Data))

			require.NoError(t, sock.Send(ctx, Frame{Type: BinaryMessage, Data: []byte{1, 2, 3}}))
			require.NoError(t, sock.Send(ctx, Frame{Type: TextMessage, Data: []byte(`{"type":"KeepAlive"}`)}))

			first, err := sock.Receive(ctx)
			require.NoError(t, err)
			assert.Equal(t, BinaryMessage, first.Type)
			assert.Equal(t, []byte{1, 2, 3}, first.Data)

			second, err := sock.Receive(ctx)
			require.NoError(t, err)
			assert.Equal(t, TextMessage, second.Type)
			assert.JSONEq(t, `{"type":"KeepAlive"}`, string(second.Data))
		})
	}
}

func TestDialer_RemoteCloseReturnsCloseError(t *testing.T) {
	srv := echoServer(t)

	for name, dialer := range dialers() {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			sock, err := dialer.Dial(ctx, wsURL(srv), nil)
			require.NoError(t, err)
			defer sock.Close(CloseNormal, "")

			_, err = sock.Receive(ctx)
			require.NoError(t, err)

			require.NoError(t, sock.Send(ctx, Frame{Type: TextMessage, Data: []byte("bye")}))

			_, err = sock.Receive(ctx)
			var closeErr *CloseError
			require.True(t, errors.As(err, &closeErr), "expected CloseError, got %v", err)
			assert.Equal(t, CloseNormal, closeErr.Code)
			assert.Equal(t, "done", closeErr.Reason)
			assert.True(t, closeErr.Normal())
		})
	}
}

func TestDialer_HandshakeRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"err_code":"INVALID_AUTH"}`, http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	for name, dialer := range dialers() {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			sock, err := dialer.Dial(ctx, wsURL(srv), nil)
			require.Error(t, err)
			assert.Nil(t, sock)

			var dialErr *DialError
			require.True(t, errors.As(err, &dialErr))
			assert.Equal(t, http.StatusUnauthorized, dialErr.StatusCode)
		})
	}
}

func TestSocket_CloseIdempotent(t *testing.T) {
	srv := echoServer(t)

	for name, dialer := range dialers() {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			sock, err := dialer.Dial(ctx, wsURL(srv), nil)
			require.NoError(t, err)

			first := sock.Close(CloseNormal, "finished")
			second := sock.Close(CloseNormal, "finished")
			assert.Equal(t, first, second)
		})
	}
}

func TestNewDialer(t *testing.T) {
	tests := []struct {
		name    string
		want    any
		wantErr bool
	}{
		{"", &GorillaDialer{}, false},
		{"gorilla", &GorillaDialer{}, false},
		{" Coder ", &CoderDialer{}, false},
		{"quic", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dialer, err := NewDialer(tt.name, time.Second)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, dialer)
		})
	}
}

func TestCloseError(t *testing.T) {
	assert.True(t, (&CloseError{Code: CloseNormal}).Normal())
	assert.True(t, (&CloseError{Code: CloseGoingAway}).Normal())
	assert.False(t, (&CloseError{Code: 1011, Reason: "internal"}).Normal())
	assert.Contains(t, (&CloseError{Code: 1011, Reason: "internal"}).Error(), "internal")
}
