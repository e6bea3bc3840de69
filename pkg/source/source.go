// Package source describes the inputs accepted by the REST clients.
package source

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

type Kind int

const (
	KindURL Kind = iota + 1
	KindBuffer
	KindStream
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindURL:
		return "url"
	case KindBuffer:
		return "buffer"
	case KindStream:
		return "stream"
	case KindText:
		return "text"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Source is exactly one of a remote URL, an in-memory buffer, a reader or
// plain text.
type Source struct {
	Kind   Kind
	URL    string
	Buffer []byte
	Stream io.Reader
	Text   string
}

func FromURL(u string) Source {
	return Source{Kind: KindURL, URL: u}
}

func FromBuffer(b []byte) Source {
	return Source{Kind: KindBuffer, Buffer: b}
}

func FromStream(r io.Reader) Source {
	return Source{Kind: KindStream, Stream: r}
}

func FromText(text string) Source {
	return Source{Kind: KindText, Text: text}
}

// FromFile loads the file at path into a buffer source.
func FromFile(path string) (Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Source{}, fmt.Errorf("read source file: %w", err)
	}
	return FromBuffer(data), nil
}

// Reader returns the body of a buffer or stream source.
func (s Source) Reader() (io.Reader, bool) {
	switch s.Kind {
	case KindBuffer:
		return bytes.NewReader(s.Buffer), true
	case KindStream:
		if s.Stream == nil {
			return nil, false
		}
		return s.Stream, true
	default:
		return nil, false
	}
}
