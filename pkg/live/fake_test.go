package live

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/liuscraft/voxlink/pkg/transport"
)

type fakeRead struct {
	frame transport.Frame
	err   error
}

type sentFrame struct {
	frame transport.Frame
	at    time.Time
}

// fakeSocket records outbound frames and replays scripted inbound reads.
type fakeSocket struct {
	mu         sync.Mutex
	sent       []sentFrame
	sendErr    error
	closeCalls int
	closeCode  int
	closeText  string

	inbound   chan fakeRead
	closed    chan struct{}
	closeOnce sync.Once

	// closeOnFinalize makes the peer confirm closure after the finalize
	// signal, like the real service does.
	closeOnFinalize bool
}

func newFakeSocket() *fakeSocket {
	return &fakeSocket{
		inbound:         make(chan fakeRead, 64),
		closed:          make(chan struct{}),
		closeOnFinalize: true,
	}
}

func (s *fakeSocket) Send(ctx context.Context, frame transport.Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	if s.sendErr != nil {
		err := s.sendErr
		s.mu.Unlock()
		return err
	}
	s.sent = append(s.sent, sentFrame{frame: frame, at: time.Now()})
	closeNow := s.closeOnFinalize && strings.Contains(string(frame.Data), `"CloseStream"`)
	s.mu.Unlock()

	if closeNow {
		s.inbound <- fakeRead{err: &transport.CloseError{Code: transport.CloseNormal}}
	}
	return nil
}

func (s *fakeSocket) Receive(ctx context.Context) (transport.Frame, error) {
	select {
	case r := <-s.inbound:
		return r.frame, r.err
	case <-ctx.Done():
		return transport.Frame{}, ctx.Err()
	case <-s.closed:
		return transport.Frame{}, transport.ErrSocketClosed
	}
}

func (s *fakeSocket) Close(code int, reason string) error {
	s.mu.Lock()
	s.closeCalls++
	if s.closeCalls == 1 {
		s.closeCode, s.closeText = code, reason
	}
	s.mu.Unlock()
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

func (s *fakeSocket) push(typ transport.MessageType, data string) {
	s.inbound <- fakeRead{frame: transport.Frame{Type: typ, Data: []byte(data)}}
}

func (s *fakeSocket) fail(err error) {
	s.inbound <- fakeRead{err: err}
}

func (s *fakeSocket) setSendErr(err error) {
	s.mu.Lock()
	s.sendErr = err
	s.mu.Unlock()
}

func (s *fakeSocket) frames() []transport.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]transport.Frame, 0, len(s.sent))
	for _, sf := range s.sent {
		out = append(out, sf.frame)
	}
	return out
}

func (s *fakeSocket) keepAliveTimes() []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []time.Time
	for _, sf := range s.sent {
		if strings.Contains(string(sf.frame.Data), `"KeepAlive"`) {
			out = append(out, sf.at)
		}
	}
	return out
}

// closedWith returns the code and reason of the first Close call.
func (s *fakeSocket) closedWith() (int, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeCode, s.closeText
}

func (s *fakeSocket) closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeCalls
}

func (s *fakeSocket) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

func dialerFor(sock transport.Socket) transport.Dialer {
	return transport.DialerFunc(func(ctx context.Context, url string, header http.Header) (transport.Socket, error) {
		return sock, nil
	})
}

// recorder collects every dispatched event in order.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) handle(ev Event) error {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	return nil
}

func (r *recorder) kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventKind, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Kind)
	}
	return out
}

func (r *recorder) ofKind(kind EventKind) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, ev := range r.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

// hookRecorder counts hook callbacks.
type hookRecorder struct {
	NopHooks
	mu             sync.Mutex
	transitions    []State
	handlerErrors  int
	keepAlivesSent int
}

func (h *hookRecorder) StateChanged(_ string, _, to State) {
	h.mu.Lock()
	h.transitions = append(h.transitions, to)
	h.mu.Unlock()
}

func (h *hookRecorder) HandlerFailed(string, EventKind, error) {
	h.mu.Lock()
	h.handlerErrors++
	h.mu.Unlock()
}

func (h *hookRecorder) KeepAliveSent(string) {
	h.mu.Lock()
	h.keepAlivesSent++
	h.mu.Unlock()
}

func (h *hookRecorder) states() []State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]State(nil), h.transitions...)
}

func testCodec() *JSONCodec {
	codec := NewJSONCodec("CloseStream", "KeepAlive")
	codec.Register("Results", EventResult, nil)
	codec.Register("Metadata", EventMetadata, nil)
	codec.Register("Warning", EventWarning, nil)
	codec.Register("Error", EventError, nil)
	return codec
}

type harness struct {
	conn *Conn
	sock *fakeSocket
	rec  *recorder
}

func newHarness(t *testing.T, opts Options, options ...Option) *harness {
	t.Helper()
	if opts.URL == "" {
		opts.URL = "wss://example.test/v1/listen"
	}
	if opts.CloseTimeout == 0 {
		opts.CloseTimeout = 500 * time.Millisecond
	}
	sock := newFakeSocket()
	options = append([]Option{WithDialer(dialerFor(sock)), WithCodec(testCodec())}, options...)
	conn, err := New(opts, options...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	rec := &recorder{}
	conn.OnAny(rec.handle)
	t.Cleanup(func() { _ = conn.Close() })
	return &harness{conn: conn, sock: sock, rec: rec}
}

func waitDone(t *testing.T, conn *Conn, timeout time.Duration) {
	t.Helper()
	select {
	case <-conn.Done():
	case <-time.After(timeout):
		t.Fatalf("connection did not terminate within %s (state=%s)", timeout, conn.State())
	}
}

func eventually(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}
