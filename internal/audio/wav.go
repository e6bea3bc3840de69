package audio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var ErrNotWAV = errors.New("audio: not a RIFF/WAVE stream")

// ReadWAVHeader consumes a RIFF header up to the data chunk and returns the
// PCM format and a reader positioned at the first sample.
func ReadWAVHeader(r io.Reader) (Format, io.Reader, error) {
	br := bufio.NewReader(r)
	var riff [12]byte
	if _, err := io.ReadFull(br, riff[:]); err != nil {
		return Format{}, nil, fmt.Errorf("%w: %v", ErrNotWAV, err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return Format{}, nil, ErrNotWAV
	}

	var (
		format    Format
		sawFormat bool
	)
	for {
		var hdr [8]byte
		if _, err := io.ReadFull(br, hdr[:]); err != nil {
			return Format{}, nil, fmt.Errorf("audio: read chunk header: %w", err)
		}
		id := string(hdr[0:4])
		size := int64(binary.LittleEndian.Uint32(hdr[4:8]))

		switch id {
		case "fmt ":
			if size < 16 {
				return Format{}, nil, fmt.Errorf("audio: fmt chunk too short (%d)", size)
			}
			body := make([]byte, size)
			if _, err := io.ReadFull(br, body); err != nil {
				return Format{}, nil, fmt.Errorf("audio: read fmt chunk: %w", err)
			}
			audioFormat := binary.LittleEndian.Uint16(body[0:2])
			bits := binary.LittleEndian.Uint16(body[14:16])
			// 0xFFFE is WAVE_FORMAT_EXTENSIBLE
			if (audioFormat != 1 && audioFormat != 0xFFFE) || bits != 16 {
				return Format{}, nil, fmt.Errorf("audio: unsupported wav encoding (format=%d, bits=%d)", audioFormat, bits)
			}
			format = Format{
				Channels:   int(binary.LittleEndian.Uint16(body[2:4])),
				SampleRate: int(binary.LittleEndian.Uint32(body[4:8])),
			}
			sawFormat = true
		case "data":
			if !sawFormat {
				return Format{}, nil, errors.New("audio: data chunk before fmt chunk")
			}
			if err := format.Validate(); err != nil {
				return Format{}, nil, err
			}
			return format, io.LimitReader(br, size), nil
		default:
			if _, err := io.CopyN(io.Discard, br, size); err != nil {
				return Format{}, nil, fmt.Errorf("audio: skip %q chunk: %w", id, err)
			}
		}
		// chunks are word aligned
		if size%2 == 1 {
			if _, err := br.Discard(1); err != nil {
				return Format{}, nil, fmt.Errorf("audio: chunk padding: %w", err)
			}
		}
	}
}
