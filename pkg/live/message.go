package live

import (
	"encoding/json"
	"fmt"
)

type MessageKind int

const (
	// MessageBinary carries raw media bytes, sent as a binary frame.
	MessageBinary MessageKind = iota + 1
	// MessageControl carries a text or JSON control payload.
	MessageControl
	// MessageFinalize is the provider's end-of-stream signal, sent by Finish.
	MessageFinalize
	// MessageKeepAlive is emitted by the keepalive monitor.
	MessageKeepAlive
)

func (k MessageKind) String() string {
	switch k {
	case MessageBinary:
		return "binary"
	case MessageControl:
		return "control"
	case MessageFinalize:
		return "finalize"
	case MessageKeepAlive:
		return "keepalive"
	default:
		return fmt.Sprintf("MessageKind(%d)", int(k))
	}
}

// Message is one outbound unit. Build it with Binary, Text or JSON; the
// payload must not be modified after it is handed to Send.
type Message struct {
	Kind MessageKind
	Data []byte
}

func Binary(data []byte) Message {
	return Message{Kind: MessageBinary, Data: data}
}

func Text(text string) Message {
	return Message{Kind: MessageControl, Data: []byte(text)}
}

// JSON marshals v into a control message.
func JSON(v any) (Message, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Message{}, fmt.Errorf("marshal control message: %w", err)
	}
	return Message{Kind: MessageControl, Data: data}, nil
}

// Control builds a {"type": typ} control message.
func Control(typ string) Message {
	msg, _ := JSON(map[string]string{"type": typ})
	return msg
}

func (m Message) application() bool {
	return m.Kind == MessageBinary || m.Kind == MessageControl
}
