package live

import (
	"fmt"
	"time"
)

type EventKind int

const (
	EventOpen EventKind = iota + 1
	EventResult
	EventMetadata
	EventWarning
	EventError
	EventClose
	EventUnhandled
	EventAudio
)

var eventKinds = []EventKind{
	EventOpen,
	EventResult,
	EventMetadata,
	EventWarning,
	EventError,
	EventClose,
	EventUnhandled,
	EventAudio,
}

func (k EventKind) String() string {
	switch k {
	case EventOpen:
		return "Open"
	case EventResult:
		return "Result"
	case EventMetadata:
		return "Metadata"
	case EventWarning:
		return "Warning"
	case EventError:
		return "Error"
	case EventClose:
		return "Close"
	case EventUnhandled:
		return "Unhandled"
	case EventAudio:
		return "Audio"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is one inbound occurrence delivered to handlers.
type Event struct {
	Kind EventKind
	// Type is the wire discriminator of the frame, if any.
	Type string
	// Payload is the typed value built by the registered decoder.
	Payload any
	// Raw holds the undecoded frame bytes.
	Raw  []byte
	Time time.Time

	// Err is set on Error events.
	Err error

	// CloseCode, CloseReason and Unsent are set on Close events.
	CloseCode   int
	CloseReason string
	Unsent      []Message
}

func newEvent(kind EventKind) Event {
	return Event{Kind: kind, Time: time.Now()}
}
