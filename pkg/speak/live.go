package speak

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/liuscraft/voxlink/internal/text"
	"github.com/liuscraft/voxlink/pkg/client"
	"github.com/liuscraft/voxlink/pkg/live"
)

const (
	livePath = "v1/speak"

	typeSpeak    = "Speak"
	typeFlush    = "Flush"
	typeClear    = "Clear"
	typeClose    = "Close"
	typeFlushed  = "Flushed"
	typeCleared  = "Cleared"
	typeMetadata = "Metadata"
	typeWarning  = "Warning"
	typeError    = "Error"

	// defaultMaxSentenceRunes keeps single Speak messages well under the
	// service's per-message text limit.
	defaultMaxSentenceRunes = 1000
)

func decodeAs[T any](data []byte) (any, error) {
	v := new(T)
	if err := json.Unmarshal(data, v); err != nil {
		return nil, err
	}
	return v, nil
}

// NewCodec returns the codec of the live synthesis endpoint. The endpoint
// has no keepalive message.
func NewCodec() *live.JSONCodec {
	codec := live.NewJSONCodec(typeClose, "")
	codec.Register(typeFlushed, live.EventResult, decodeAs[Flushed])
	codec.Register(typeCleared, live.EventResult, decodeAs[Cleared])
	codec.Register(typeMetadata, live.EventMetadata, decodeAs[Metadata])
	codec.Register(typeWarning, live.EventWarning, decodeAs[ErrorResponse])
	codec.Register(typeError, live.EventError, decodeAs[ErrorResponse])
	return codec
}

// LiveClient sends text over a live session and exposes the synthesized
// audio as a reader.
type LiveClient struct {
	conn   *live.Conn
	audio  *audioPipe
	logger *zap.Logger

	// MaxSentenceRunes bounds each Speak message built by SpeakText.
	MaxSentenceRunes int
}

func NewLiveClient(opts client.Options, params Options, tuning live.Options) (*LiveClient, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	params.Callback, params.CallbackMethod = "", ""
	endpoint, err := opts.WSURL(livePath, params.Query())
	if err != nil {
		return nil, err
	}
	tuning.URL = endpoint
	tuning.Header = opts.Header()
	tuning.IdleSendInterval = 0

	conn, err := live.New(tuning, append(opts.ConnOptions(), live.WithCodec(NewCodec()))...)
	if err != nil {
		return nil, err
	}
	c := &LiveClient{
		conn:             conn,
		audio:            newAudioPipe(),
		logger:           opts.Log().With(zap.String("component", "speak_live"), zap.String("conn_id", conn.ID())),
		MaxSentenceRunes: defaultMaxSentenceRunes,
	}
	conn.On(live.EventAudio, func(ev live.Event) error {
		_, err := c.audio.Write(ev.Raw)
		return err
	})
	conn.On(live.EventClose, func(ev live.Event) error {
		if err := conn.Err(); err != nil {
			return c.audio.CloseWithError(err)
		}
		return c.audio.Close()
	})
	return c, nil
}

func (c *LiveClient) Conn() *live.Conn {
	return c.conn
}

func (c *LiveClient) Start(ctx context.Context) error {
	if err := c.conn.Start(ctx); err != nil {
		_ = c.audio.CloseWithError(err)
		return err
	}
	return nil
}

// AudioReader returns the synthesized audio. It reaches EOF once the
// session is closed.
func (c *LiveClient) AudioReader() io.ReadCloser {
	return c.audio
}

// SendText queues one Speak message as is.
func (c *LiveClient) SendText(ctx context.Context, input string) error {
	msg, err := live.JSON(map[string]string{"type": typeSpeak, "text": input})
	if err != nil {
		return err
	}
	return c.conn.Send(ctx, msg)
}

// SpeakText strips Markdown from input and queues it sentence by sentence.
func (c *LiveClient) SpeakText(ctx context.Context, input string) error {
	sentences := text.Split(text.Plain(input), c.MaxSentenceRunes)
	for i, sentence := range sentences {
		if err := c.SendText(ctx, sentence); err != nil {
			return fmt.Errorf("speak sentence %d/%d: %w", i+1, len(sentences), err)
		}
	}
	c.logger.Debug("text queued", zap.Int("sentences", len(sentences)))
	return nil
}

// Flush asks the service to synthesize everything sent so far.
func (c *LiveClient) Flush(ctx context.Context) error {
	return c.conn.Send(ctx, live.Control(typeFlush))
}

// Clear discards text the service has not synthesized yet.
func (c *LiveClient) Clear(ctx context.Context) error {
	return c.conn.Send(ctx, live.Control(typeClear))
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

func (c *LiveClient) OnFlushed(handler func(*Flushed)) {
	onPayload(c, live.EventResult, handler)
}

func (c *LiveClient) OnCleared(handler func(*Cleared)) {
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

func (c *LiveClient) OnClose(handler func(code int, reason string)) {
	c.conn.On(live.EventClose, func(ev live.Event) error {
		handler(ev.CloseCode, ev.CloseReason)
		return nil
	})
}

func (c *LiveClient) OnError(handler func(error)) {
	c.conn.On(live.EventError, func(ev live.Event) error {
		handler(ev.Err)
		return nil
	})
}
