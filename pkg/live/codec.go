package live

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/liuscraft/voxlink/pkg/transport"
)

// Codec turns outbound messages into frames and inbound frames into events.
// Decode must not fail: problems are reported as Error or Unhandled events.
type Codec interface {
	Encode(msg Message) (transport.Frame, error)
	Decode(frame transport.Frame) Event
}

// DecodeFunc builds the typed payload of a registered frame type.
type DecodeFunc func(data []byte) (any, error)

type registeredType struct {
	kind   EventKind
	decode DecodeFunc
}

// JSONCodec implements the provider envelope: control frames are JSON objects
// carrying a type discriminator.
type JSONCodec struct {
	// TypeField names the discriminator, "type" when empty.
	TypeField string
	// FinalizeType and KeepAliveType are written as {"type": ...}.
	FinalizeType  string
	KeepAliveType string

	mu    sync.RWMutex
	types map[string]registeredType
}

func NewJSONCodec(finalizeType, keepAliveType string) *JSONCodec {
	return &JSONCodec{
		FinalizeType:  finalizeType,
		KeepAliveType: keepAliveType,
		types:         make(map[string]registeredType),
	}
}

// Register maps a wire type to an event kind. decode may be nil, in which
// case the payload is the generic map of the envelope.
func (c *JSONCodec) Register(typ string, kind EventKind, decode DecodeFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.types == nil {
		c.types = make(map[string]registeredType)
	}
	c.types[typ] = registeredType{kind: kind, decode: decode}
}

func (c *JSONCodec) typeField() string {
	if c.TypeField == "" {
		return "type"
	}
	return c.TypeField
}

func (c *JSONCodec) Encode(msg Message) (transport.Frame, error) {
	switch msg.Kind {
	case MessageBinary:
		return transport.Frame{Type: transport.BinaryMessage, Data: msg.Data}, nil
	case MessageControl:
		return transport.Frame{Type: transport.TextMessage, Data: msg.Data}, nil
	case MessageFinalize:
		return c.envelope(c.FinalizeType)
	case MessageKeepAlive:
		return c.envelope(c.KeepAliveType)
	default:
		return transport.Frame{}, fmt.Errorf("encode: unknown message kind %s", msg.Kind)
	}
}

func (c *JSONCodec) envelope(typ string) (transport.Frame, error) {
	if typ == "" {
		return transport.Frame{}, fmt.Errorf("encode: no wire type configured")
	}
	data, err := json.Marshal(map[string]string{c.typeField(): typ})
	if err != nil {
		return transport.Frame{}, err
	}
	return transport.Frame{Type: transport.TextMessage, Data: data}, nil
}

func (c *JSONCodec) Decode(frame transport.Frame) Event {
	if frame.Type == transport.BinaryMessage {
		ev := newEvent(EventAudio)
		ev.Raw = frame.Data
		ev.Payload = frame.Data
		return ev
	}

	var envelope map[string]any
	if err := json.Unmarshal(frame.Data, &envelope); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			// valid JSON that is not an object carries no type
			ev := newEvent(EventUnhandled)
			ev.Raw = frame.Data
			return ev
		}
		ev := newEvent(EventError)
		ev.Raw = frame.Data
		ev.Err = newError(KindProtocol, "decode frame", err)
		return ev
	}

	typ, _ := envelope[c.typeField()].(string)
	c.mu.RLock()
	reg, ok := c.types[typ]
	c.mu.RUnlock()
	if typ == "" || !ok {
		ev := newEvent(EventUnhandled)
		ev.Type = typ
		ev.Raw = frame.Data
		return ev
	}

	ev := newEvent(reg.kind)
	ev.Type = typ
	ev.Raw = frame.Data
	ev.Payload = envelope
	if reg.decode != nil {
		payload, err := reg.decode(frame.Data)
		if err != nil {
			ev = newEvent(EventError)
			ev.Type = typ
			ev.Raw = frame.Data
			ev.Err = newError(KindProtocol, "decode "+typ, err)
			return ev
		}
		ev.Payload = payload
	}
	if reg.kind == EventError {
		ev.Err = newError(KindRemote, typ, remoteErrorFrom(ev.Payload))
	}
	return ev
}

// remoteErrorFrom uses the payload itself when the registered decoder
// returns an error type.
func remoteErrorFrom(payload any) error {
	if err, ok := payload.(error); ok {
		return err
	}
	if envelope, ok := payload.(map[string]any); ok {
		for _, key := range []string{"description", "message", "err_msg"} {
			if msg, ok := envelope[key].(string); ok && msg != "" {
				return errors.New(msg)
			}
		}
	}
	return errors.New("provider reported an error")
}
