package live

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	KindConnectionEstablish ErrorKind = iota + 1
	KindTransport
	KindProtocol
	KindTimeout
	KindQueueFull
	KindClosed
	// KindRemote marks an error envelope sent by the provider.
	KindRemote
)

func (k ErrorKind) String() string {
	switch k {
	case KindConnectionEstablish:
		return "ConnectionEstablishError"
	case KindTransport:
		return "TransportError"
	case KindProtocol:
		return "ProtocolError"
	case KindTimeout:
		return "TimeoutError"
	case KindQueueFull:
		return "QueueFullError"
	case KindClosed:
		return "ClosedError"
	case KindRemote:
		return "RemoteError"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Sentinels for errors.Is. Any *Error matches the sentinel of its kind.
var (
	ErrConnectionEstablish = &Error{Kind: KindConnectionEstablish}
	ErrTransport           = &Error{Kind: KindTransport}
	ErrProtocol            = &Error{Kind: KindProtocol}
	ErrTimeout             = &Error{Kind: KindTimeout}
	ErrQueueFull           = &Error{Kind: KindQueueFull}
	ErrClosed              = &Error{Kind: KindClosed}
	ErrRemote              = &Error{Kind: KindRemote}

	ErrAlreadyStarted = errors.New("live: connection already started")
	ErrNotStarted     = errors.New("live: connection not started")
)

type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func newError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("live: %s: %s: %v", e.Kind, e.Op, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("live: %s: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("live: %s: %s", e.Kind, e.Op)
	default:
		return fmt.Sprintf("live: %s", e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Err == nil
}

// AsError extracts a *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the ErrorKind of err, or 0 when err is not a live error.
func KindOf(err error) ErrorKind {
	if e, ok := AsError(err); ok {
		return e.Kind
	}
	return 0
}
