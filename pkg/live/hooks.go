package live

import (
	"go.uber.org/zap"
)

// Hooks observes a Conn. Implementations must be safe for concurrent use and
// must not block.
type Hooks interface {
	StateChanged(connID string, from, to State)
	FrameSent(connID string, kind MessageKind, size int)
	FrameReceived(connID string, kind EventKind, size int)
	KeepAliveSent(connID string)
	HandlerFailed(connID string, kind EventKind, err error)
}

type NopHooks struct{}

func (NopHooks) StateChanged(string, State, State) {}
func (NopHooks) FrameSent(string, MessageKind, int) {}
func (NopHooks) FrameReceived(string, EventKind, int) {}
func (NopHooks) KeepAliveSent(string) {}
func (NopHooks) HandlerFailed(string, EventKind, error) {}

// LogHooks reports through a zap logger.
type LogHooks struct {
	Logger *zap.Logger
}

func NewLogHooks(logger *zap.Logger) *LogHooks {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogHooks{Logger: logger.With(zap.String("component", "live_hooks"))}
}

func (h *LogHooks) StateChanged(connID string, from, to State) {
	h.Logger.Info("connection state changed",
		zap.String("conn_id", connID),
		zap.Stringer("from", from),
		zap.Stringer("to", to))
}

func (h *LogHooks) FrameSent(connID string, kind MessageKind, size int) {
	h.Logger.Debug("frame sent",
		zap.String("conn_id", connID),
		zap.Stringer("kind", kind),
		zap.Int("size", size))
}

func (h *LogHooks) FrameReceived(connID string, kind EventKind, size int) {
	h.Logger.Debug("frame received",
		zap.String("conn_id", connID),
		zap.Stringer("kind", kind),
		zap.Int("size", size))
}

func (h *LogHooks) KeepAliveSent(connID string) {
	h.Logger.Debug("keepalive sent", zap.String("conn_id", connID))
}

func (h *LogHooks) HandlerFailed(connID string, kind EventKind, err error) {
	h.Logger.Warn("event handler failed",
		zap.String("conn_id", connID),
		zap.Stringer("kind", kind),
		zap.Error(err))
}

// MultiHooks fans out to every non-nil hook in order.
type MultiHooks []Hooks

func (m MultiHooks) StateChanged(connID string, from, to State) {
	for _, h := range m {
		if h != nil {
			h.StateChanged(connID, from, to)
		}
	}
}

func (m MultiHooks) FrameSent(connID string, kind MessageKind, size int) {
	for _, h := range m {
		if h != nil {
			h.FrameSent(connID, kind, size)
		}
	}
}

func (m MultiHooks) FrameReceived(connID string, kind EventKind, size int) {
	for _, h := range m {
		if h != nil {
			h.FrameReceived(connID, kind, size)
		}
	}
}

func (m MultiHooks) KeepAliveSent(connID string) {
	for _, h := range m {
		if h != nil {
			h.KeepAliveSent(connID)
		}
	}
}

func (m MultiHooks) HandlerFailed(connID string, kind EventKind, err error) {
	for _, h := range m {
		if h != nil {
			h.HandlerFailed(connID, kind, err)
		}
	}
}
