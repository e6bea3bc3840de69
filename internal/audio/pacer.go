package audio

import (
	"context"
	"errors"
	"io"
	"time"
)

// FrameSource yields successive audio frames. Read returns io.EOF once the
// source is exhausted.
type FrameSource interface {
	Read(ctx context.Context) ([]byte, error)
}

// Pacer releases fixed-size frames from a reader no faster than real time.
type Pacer struct {
	r          io.Reader
	format     Format
	frameBytes int
	next       time.Time
}

func NewPacer(r io.Reader, format Format, frame time.Duration) (*Pacer, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	n := format.FrameBytes(frame)
	if n <= 0 {
		return nil, errors.New("audio: frame duration too short")
	}
	return &Pacer{r: r, format: format, frameBytes: n}, nil
}

func (p *Pacer) FrameBytes() int { return p.frameBytes }

func (p *Pacer) Read(ctx context.Context) ([]byte, error) {
	if wait := time.Until(p.next); !p.next.IsZero() && wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	buf := make([]byte, p.frameBytes)
	n, err := io.ReadFull(p.r, buf)
	if n == 0 {
		if err == nil || errors.Is(err, io.ErrUnexpectedEOF) {
			err = io.EOF
		}
		return nil, err
	}
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, err
	}

	now := time.Now()
	if p.next.Before(now) {
		p.next = now
	}
	p.next = p.next.Add(p.format.Duration(n))
	return buf[:n], nil
}

// Pump forwards frames from src to send until src is exhausted. It returns
// the number of bytes handed to send.
func Pump(ctx context.Context, src FrameSource, send func(context.Context, []byte) error) (int64, error) {
	var total int64
	for {
		frame, err := src.Read(ctx)
		if errors.Is(err, io.EOF) {
			return total, nil
		}
		if err != nil {
			return total, err
		}
		if len(frame) == 0 {
			continue
		}
		if err := send(ctx, frame); err != nil {
			return total, err
		}
		total += int64(len(frame))
	}
}
