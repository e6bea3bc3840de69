package live

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/liuscraft/voxlink/pkg/transport"
)

const (
	defaultQueueCapacity    = 256
	defaultHandshakeTimeout = 10 * time.Second
	defaultCloseTimeout     = 5 * time.Second
)

var errURLRequired = errors.New("live: endpoint URL is required")

// Options configures a Conn.
type Options struct {
	URL    string
	Header http.Header

	// IdleSendInterval emits a keepalive after this much outbound silence.
	// Zero disables keepalives.
	IdleSendInterval time.Duration
	// ReceiveTimeout fails the connection when nothing arrives for this long
	// while Open. Zero disables the check.
	ReceiveTimeout time.Duration

	QueueCapacity int
	Backpressure  Backpressure

	// HandshakeTimeout bounds Start.
	HandshakeTimeout time.Duration
	// CloseTimeout bounds the wait for the remote close after the finalize
	// signal, and the grace period for activities to stop on teardown.
	CloseTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.QueueCapacity <= 0 {
		o.QueueCapacity = defaultQueueCapacity
	}
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = defaultHandshakeTimeout
	}
	if o.CloseTimeout <= 0 {
		o.CloseTimeout = defaultCloseTimeout
	}
	if o.Header == nil {
		o.Header = http.Header{}
	}
	return o
}

type Option func(*Conn)

func WithDialer(dialer transport.Dialer) Option {
	return func(c *Conn) {
		if dialer != nil {
			c.dialer = dialer
		}
	}
}

func WithCodec(codec Codec) Option {
	return func(c *Conn) {
		if codec != nil {
			c.codec = codec
		}
	}
}

func WithHooks(hooks Hooks) Option {
	return func(c *Conn) {
		if hooks != nil {
			c.hooks = hooks
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Conn) {
		if logger != nil {
			c.logger = logger
		}
	}
}
