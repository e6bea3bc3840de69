// Package listen transcribes audio, either streamed over a live session or
// uploaded as a prerecorded file.
package listen

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/liuscraft/voxlink/pkg/client"
	"github.com/liuscraft/voxlink/pkg/live"
)

const (
	livePath = "v1/listen"

	typeResults       = "Results"
	typeMetadata      = "Metadata"
	typeSpeechStarted = "SpeechStarted"
	typeUtteranceEnd  = "UtteranceEnd"
	typeWarning       = "Warning"
	typeError         = "Error"

	finalizeType  = "CloseStream"
	keepAliveType = "KeepAlive"
	flushType     = "Finalize"
)

func decodeAs[T any](data []byte) (any, error) {
	v := new(T)
	if err := json.Unmarshal(data, v); err != nil {
		return nil, err
	}
	return v, nil
}

// NewCodec returns the codec of the live transcription endpoint.
func NewCodec() *live.JSONCodec {
	codec := live.NewJSONCodec(finalizeType, keepAliveType)
	codec.Register(typeResults, live.EventResult, decodeAs[LiveResult])
	codec.Register(typeSpeechStarted, live.EventResult, decodeAs[SpeechStarted])
	codec.Register(typeUtteranceEnd, live.EventResult, decodeAs[UtteranceEnd])
	codec.Register(typeMetadata, live.EventMetadata, decodeAs[Metadata])
	codec.Register(typeWarning, live.EventWarning, decodeAs[ErrorResponse])
	codec.Register(typeError, live.EventError, decodeAs[ErrorResponse])
	return codec
}

// LiveClient streams audio to the live transcription endpoint.
type LiveClient struct {
	conn   *live.Conn
	logger *zap.Logger
}

// NewLiveClient prepares a session. tuning carries the connection timing;
// its URL and Header are derived from opts and params.
func NewLiveClient(opts client.Options, params LiveOptions, tuning live.Options) (*LiveClient, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	endpoint, err := opts.WSURL(livePath, params.Query())
	if err != nil {
		return nil, err
	}
	tuning.URL = endpoint
	tuning.Header = opts.Header()

	conn, err := live.New(tuning, append(opts.ConnOptions(), live.WithCodec(NewCodec()))...)
	if err != nil {
		return nil, err
	}
	return &LiveClient{
		conn:   conn,
		logger: opts.Log().With(zap.String("component", "listen_live"), zap.String("conn_id", conn.ID())),
	}, nil
}

func (c *LiveClient) Conn() *live.Conn {
	return c.conn
}

func (c *LiveClient) Start(ctx context.Context) error {
	return c.conn.Start(ctx)
}

func (c *LiveClient) Send(ctx context.Context, audio []byte) error {
	return c.conn.Send(ctx, live.Binary(audio))
}

// Flush asks the service to finalize pending audio without ending the
// session.
func (c *LiveClient) Flush(ctx context.Context) error {
	return c.conn.Send(ctx, live.Control(flushType))
}

func (c *LiveClient) Finish(ctx context.Context) error {
	return c.conn.Finish(ctx)
}

func (c *LiveClient) Close() error {
	return c.conn.Close()
}

func (c *LiveClient) IsOpen() bool {
	return c.conn.IsOpen()
}

func onPayload[T any](c *LiveClient, kind live.EventKind, handler func(*T)) {
	c.conn.On(kind, func(ev live.Event) error {
		if v, ok := ev.Payload.(*T); ok {
			handler(v)
		}
		return nil
	})
}

func (c *LiveClient) OnTranscript(handler func(*LiveResult)) {
	onPayload(c, live.EventResult, handler)
}

func (c *LiveClient) OnSpeechStarted(handler func(*SpeechStarted)) {
	onPayload(c, live.EventResult, handler)
}

func (c *LiveClient) OnUtteranceEnd(handler func(*UtteranceEnd)) {
	onPayload(c, live.EventResult, handler)
}

func (c *LiveClient) OnMetadata(handler func(*Metadata)) {
	onPayload(c, live.EventMetadata, handler)
}

func (c *LiveClient) OnWarning(handler func(*ErrorResponse)) {
	onPayload(c, live.EventWarning, handler)
}

func (c *LiveClient) OnOpen(handler func()) {
	c.conn.On(live.EventOpen, func(live.Event) error {
		handler()
		return nil
	})
}

// OnClose receives the close code and reason. It runs exactly once per
// session that reached Open.
func (c *LiveClient) OnClose(handler func(code int, reason string)) {
	c.conn.On(live.EventClose, func(ev live.Event) error {
		handler(ev.CloseCode, ev.CloseReason)
		return nil
	})
}

// OnError receives connection failures, protocol errors and error messages
// sent by the service (wrapping *ErrorResponse).
func (c *LiveClient) OnError(handler func(error)) {
	c.conn.On(live.EventError, func(ev live.Event) error {
		handler(ev.Err)
		return nil
	})
}

func (c *LiveClient) OnUnhandled(handler func(raw []byte)) {
	c.conn.On(live.EventUnhandled, func(ev live.Event) error {
		c.logger.Debug("unhandled message", zap.String("type", ev.Type))
		handler(ev.Raw)
		return nil
	})
}
