// Package live manages one long-lived duplex connection to a streaming
// speech endpoint: handshake, ordered outbound queue, receive loop,
// keepalive traffic and typed event dispatch.
//
// A Conn is single use. Once it reaches Closed or Errored a new Conn must be
// created to reconnect.
package live

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/liuscraft/voxlink/pkg/transport"
)

const closedDueToError = "closed due to error"

var clientClose = termination{state: StateClosed, code: transport.CloseNormal, reason: "closed by client"}

type termination struct {
	state  State
	err    *Error
	code   int
	reason string
}

type Conn struct {
	id     string
	opts   Options
	dialer transport.Dialer
	codec  Codec
	hooks  Hooks
	logger *zap.Logger

	dispatcher *Dispatcher
	queue      *sendQueue

	mu           sync.Mutex
	sm           stateMachine
	sock         transport.Socket
	pendingClose bool
	abortOnOpen  bool
	closeTimer   *time.Timer
	unsent       []Message
	termErr      error

	lastSend         atomic.Int64
	lastRecv         atomic.Int64
	keepAlivePending atomic.Bool

	runCtx      context.Context
	runCancel   context.CancelFunc
	group       errgroup.Group
	terminateCh chan termination
	done        chan struct{}
}

func New(opts Options, options ...Option) (*Conn, error) {
	if opts.URL == "" {
		return nil, errURLRequired
	}
	opts = opts.withDefaults()

	c := &Conn{
		id:          uuid.NewString(),
		opts:        opts,
		codec:       NewJSONCodec("CloseStream", "KeepAlive"),
		hooks:       NopHooks{},
		logger:      zap.NewNop(),
		queue:       newSendQueue(opts.QueueCapacity),
		terminateCh: make(chan termination, 1),
		done:        make(chan struct{}),
	}
	for _, option := range options {
		option(c)
	}
	if c.dialer == nil {
		c.dialer = &transport.GorillaDialer{HandshakeTimeout: opts.HandshakeTimeout}
	}
	c.logger = c.logger.With(zap.String("component", "live_conn"), zap.String("conn_id", c.id))
	c.dispatcher = NewDispatcher(func(ev Event, err error) {
		c.logger.Warn("event handler failed", zap.Stringer("kind", ev.Kind), zap.Error(err))
		c.hooks.HandlerFailed(c.id, ev.Kind, err)
	})
	c.runCtx, c.runCancel = context.WithCancel(context.Background())
	return c, nil
}

func (c *Conn) ID() string {
	return c.id
}

func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sm.current
}

func (c *Conn) IsOpen() bool {
	return c.State() == StateOpen
}

// On registers handler for events of kind. Handlers registered after Start
// only see later events.
func (c *Conn) On(kind EventKind, handler Handler) {
	c.dispatcher.On(kind, handler)
}

func (c *Conn) OnAny(handler Handler) {
	c.dispatcher.OnAny(handler)
}

// Start performs the handshake and launches the receive, writer and
// keepalive activities. ctx only bounds the handshake.
func (c *Conn) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.sm.current != StateDisconnected {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.transitionLocked(StateConnecting)
	c.mu.Unlock()

	c.logger.Info("connecting", zap.String("url", c.opts.URL))

	dialCtx, cancel := context.WithTimeout(ctx, c.opts.HandshakeTimeout)
	defer cancel()

	sock, err := c.dialer.Dial(dialCtx, c.opts.URL, c.opts.Header.Clone())
	if err != nil {
		kind := KindConnectionEstablish
		if errors.Is(dialCtx.Err(), context.DeadlineExceeded) {
			kind = KindTimeout
		}
		return c.failHandshake(newError(kind, "start", err))
	}

	now := time.Now().UnixNano()
	c.lastSend.Store(now)
	c.lastRecv.Store(now)

	c.mu.Lock()
	c.sock = sock
	c.transitionLocked(StateOpen)
	pending, abort := c.pendingClose, c.abortOnOpen
	c.mu.Unlock()

	c.logger.Info("connection open")
	c.dispatcher.Dispatch(newEvent(EventOpen))

	go c.supervise()
	c.group.Go(c.readLoop)
	c.group.Go(c.writeLoop)
	c.group.Go(c.keepaliveLoop)

	switch {
	case abort:
		c.requestTerminate(clientClose)
	case pending:
		c.beginClosing()
	}
	return nil
}

func (c *Conn) failHandshake(err *Error) error {
	c.logger.Error("handshake failed", zap.Error(err))
	c.runCancel()
	c.queue.closeWith(nil)

	c.mu.Lock()
	c.transitionLocked(StateErrored)
	c.unsent = c.queue.drain()
	c.termErr = err
	c.mu.Unlock()

	ev := newEvent(EventError)
	ev.Err = err
	c.dispatcher.Dispatch(ev)
	close(c.done)
	return err
}

// Send enqueues a binary or control message. Messages sent before the
// connection is Open are flushed once the handshake completes.
func (c *Conn) Send(ctx context.Context, msg Message) error {
	if !msg.application() {
		return fmt.Errorf("live: cannot send %s message", msg.Kind)
	}
	switch c.State() {
	case StateClosing, StateClosed, StateErrored:
		return newError(KindClosed, "send", nil)
	}
	return c.queue.push(ctx, msg, c.opts.Backpressure)
}

// Finish sends the finalize signal after everything already queued, then
// waits until the connection is Closed or ctx is done. It is safe to call
// more than once and from any goroutine, but not synchronously from a
// handler: the handler would wait on its own receive loop.
func (c *Conn) Finish(ctx context.Context) error {
	c.mu.Lock()
	state := c.sm.current
	if state == StateConnecting {
		c.pendingClose = true
	}
	c.mu.Unlock()

	switch state {
	case StateDisconnected:
		return ErrNotStarted
	case StateOpen:
		c.beginClosing()
	}
	return c.Wait(ctx)
}

func (c *Conn) beginClosing() {
	c.mu.Lock()
	ok := c.transitionLocked(StateClosing)
	c.mu.Unlock()
	if !ok {
		return
	}
	c.logger.Debug("finishing")
	final := Message{Kind: MessageFinalize}
	c.queue.closeWith(&final)
}

// Close tears the connection down without the finalize exchange and waits
// for teardown to complete. During the handshake it waits for the handshake
// to finish and then closes without sending the finalize signal.
func (c *Conn) Close() error {
	c.mu.Lock()
	state := c.sm.current
	if state == StateConnecting {
		c.abortOnOpen = true
	}
	c.mu.Unlock()

	switch state {
	case StateDisconnected:
		return nil
	case StateOpen, StateClosing:
		c.requestTerminate(clientClose)
	}
	<-c.done
	return c.Err()
}

// Done is closed once the connection reached a terminal state and all
// terminal events were dispatched.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the connection is terminal and returns its error, if any.
func (c *Conn) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return c.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the error that ended the connection; nil after a clean close.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.termErr
}

// Unsent returns application messages that were queued or in flight when
// the connection terminated. They are never replayed automatically.
func (c *Conn) Unsent() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.unsent)
}

// Subscribe returns a channel receiving every event dispatched after the
// call. The channel is closed when the connection is terminal. A slow
// reader stalls the receive loop once the buffer is full; cancel ctx to
// stop delivery.
func (c *Conn) Subscribe(ctx context.Context, buffer int) <-chan Event {
	ch := make(chan Event, buffer)
	var (
		mu     sync.Mutex
		closed bool
	)
	c.dispatcher.OnAny(func(ev Event) error {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return nil
		}
		select {
		case ch <- ev:
		case <-ctx.Done():
		}
		return nil
	})
	go func() {
		select {
		case <-c.done:
		case <-ctx.Done():
		}
		mu.Lock()
		closed = true
		close(ch)
		mu.Unlock()
	}()
	return ch
}

func (c *Conn) readLoop() error {
	for {
		frame, err := c.sock.Receive(c.runCtx)
		if err != nil {
			if c.runCtx.Err() != nil {
				return nil
			}
			var closeErr *transport.CloseError
			if errors.As(err, &closeErr) && closeErr.Normal() {
				c.logger.Info("remote closed connection", zap.Int("code", closeErr.Code), zap.String("reason", closeErr.Reason))
				c.requestTerminate(termination{state: StateClosed, code: closeErr.Code, reason: closeErr.Reason})
				return nil
			}
			c.requestTerminate(termination{state: StateErrored, err: newError(KindTransport, "receive", err)})
			return nil
		}

		c.touchRecv()
		ev := c.codec.Decode(frame)
		c.hooks.FrameReceived(c.id, ev.Kind, len(frame.Data))
		c.dispatcher.Dispatch(ev)
	}
}

func (c *Conn) writeLoop() error {
	for {
		msg, ok := c.queue.pop(c.runCtx)
		if !ok {
			return nil
		}
		if msg.Kind == MessageKeepAlive {
			c.keepAlivePending.Store(false)
		}
		if c.runCtx.Err() != nil {
			c.keepUnsent(msg)
			return nil
		}

		frame, err := c.codec.Encode(msg)
		if err != nil {
			c.logger.Error("encode failed", zap.Stringer("kind", msg.Kind), zap.Error(err))
			if msg.Kind == MessageFinalize {
				c.armCloseTimer()
			}
			continue
		}

		if err := c.sock.Send(c.runCtx, frame); err != nil {
			c.keepUnsent(msg)
			if c.runCtx.Err() != nil {
				return nil
			}
			c.requestTerminate(termination{state: StateErrored, err: newError(KindTransport, "send", err)})
			return nil
		}

		c.touchSend()
		c.hooks.FrameSent(c.id, msg.Kind, len(frame.Data))
		switch msg.Kind {
		case MessageKeepAlive:
			c.hooks.KeepAliveSent(c.id)
		case MessageFinalize:
			c.armCloseTimer()
		}
	}
}

func (c *Conn) keepUnsent(msg Message) {
	if !msg.application() {
		return
	}
	c.mu.Lock()
	c.unsent = append(c.unsent, msg)
	c.mu.Unlock()
}

func (c *Conn) armCloseTimer() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closeTimer != nil {
		return
	}
	c.closeTimer = time.AfterFunc(c.opts.CloseTimeout, func() {
		c.logger.Warn("remote did not close in time", zap.Duration("timeout", c.opts.CloseTimeout))
		c.requestTerminate(termination{state: StateClosed, code: transport.CloseNormal, reason: "close timeout"})
	})
}

// requestTerminate asks the supervisor to tear down. Only the first request
// is honored.
func (c *Conn) requestTerminate(t termination) {
	select {
	case c.terminateCh <- t:
	default:
	}
}

// supervise owns teardown: it stops the activities, releases the socket,
// applies the terminal transition and dispatches the terminal events.
func (c *Conn) supervise() {
	t := <-c.terminateCh

	c.runCancel()
	c.queue.closeWith(nil)
	c.mu.Lock()
	if c.closeTimer != nil {
		c.closeTimer.Stop()
	}
	c.mu.Unlock()

	var result *multierror.Error
	code, reason := t.code, t.reason
	if t.err != nil {
		code, reason = transport.CloseInternalError, closedDueToError
	}
	closeSocket := func() {
		if err := c.sock.Close(code, reason); err != nil {
			result = multierror.Append(result, fmt.Errorf("close socket: %w", err))
		}
	}

	// Terminal events wait for the receive loop to return, even past the
	// grace period.
	stopped := make(chan error, 1)
	go func() { stopped <- c.group.Wait() }()
	grace := time.NewTimer(c.opts.CloseTimeout)
	var stopErr error
	select {
	case stopErr = <-stopped:
		closeSocket()
	case <-grace.C:
		c.logger.Warn("activities did not stop within grace period, forcing socket close")
		closeSocket()
		stopErr = <-stopped
	}
	grace.Stop()
	if stopErr != nil {
		result = multierror.Append(result, stopErr)
	}

	if err := result.ErrorOrNil(); err != nil {
		c.logger.Warn("teardown finished with errors", zap.Error(err))
	}

	c.mu.Lock()
	c.unsent = append(c.unsent, c.queue.drain()...)
	unsent := slices.Clone(c.unsent)
	if t.state == StateClosed && c.sm.current == StateOpen {
		c.transitionLocked(StateClosing)
	}
	c.transitionLocked(t.state)
	if t.err != nil {
		c.termErr = t.err
	}
	c.mu.Unlock()

	closeEv := newEvent(EventClose)
	closeEv.CloseCode = t.code
	closeEv.CloseReason = t.reason
	closeEv.Unsent = unsent
	if t.err != nil {
		c.logger.Error("connection failed", zap.Error(t.err))
		errEv := newEvent(EventError)
		errEv.Err = t.err
		c.dispatcher.Dispatch(errEv)

		closeEv.CloseCode = transport.CloseAbnormal
		closeEv.CloseReason = closedDueToError
	}
	if len(unsent) > 0 {
		c.logger.Warn("messages left unsent", zap.Int("count", len(unsent)))
	}
	c.logger.Info("connection closed", zap.Int("code", closeEv.CloseCode), zap.String("reason", closeEv.CloseReason))
	c.dispatcher.Dispatch(closeEv)
	close(c.done)
}

func (c *Conn) transitionLocked(to State) bool {
	from := c.sm.current
	if !c.sm.transition(to) {
		c.logger.Debug("invalid transition ignored", zap.Stringer("from", from), zap.Stringer("to", to))
		return false
	}
	c.hooks.StateChanged(c.id, from, to)
	return true
}
