package audio

import (
	"encoding/binary"
	"fmt"
	"io"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Quality selects the resampling algorithm.
type Quality int

const (
	// QualityLinear interpolates between neighbouring frames. Low latency.
	QualityLinear Quality = iota
	// QualityHigh uses a windowed-sinc filter.
	QualityHigh
)

func ParseQuality(s string) (Quality, error) {
	switch s {
	case "", "linear":
		return QualityLinear, nil
	case "high":
		return QualityHigh, nil
	default:
		return 0, fmt.Errorf("audio: unknown resample quality %q", s)
	}
}

// Resampler converts interleaved samples between two fixed rates. Process
// keeps state across calls, so a stream may be fed in arbitrary chunks of
// whole frames.
type Resampler interface {
	Process(in []int16) ([]int16, error)
}

func NewResampler(inputRate, outputRate, channels int, quality Quality) (Resampler, error) {
	if inputRate <= 0 || outputRate <= 0 {
		return nil, fmt.Errorf("audio: invalid sample rate: input=%d, output=%d", inputRate, outputRate)
	}
	if channels <= 0 {
		return nil, fmt.Errorf("audio: invalid channels: %d", channels)
	}
	if inputRate == outputRate {
		return passthrough{}, nil
	}
	switch quality {
	case QualityHigh:
		r, err := resampling.New(&resampling.Config{
			InputRate:  float64(inputRate),
			OutputRate: float64(outputRate),
			Channels:   channels,
			Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
		})
		if err != nil {
			return nil, fmt.Errorf("audio: create resampler: %w", err)
		}
		return &sincResampler{r: r}, nil
	default:
		return &linearResampler{
			inputRate:  int64(inputRate),
			outputRate: int64(outputRate),
			channels:   channels,
		}, nil
	}
}

type passthrough struct{}

func (passthrough) Process(in []int16) ([]int16, error) {
	out := make([]int16, len(in))
	copy(out, in)
	return out, nil
}

// linearResampler tracks the read position in units of 1/outputRate of an
// input frame so chunk boundaries never introduce rounding drift.
type linearResampler struct {
	inputRate  int64
	outputRate int64
	channels   int

	last []int16 // final frame of the previous chunk
	pos  int64
}

func (r *linearResampler) Process(in []int16) ([]int16, error) {
	ch := r.channels
	if len(in)%ch != 0 {
		return nil, fmt.Errorf("audio: %d samples is not a whole number of %d-channel frames", len(in), ch)
	}
	if len(in) == 0 {
		return []int16{}, nil
	}

	buf := in
	if r.last != nil {
		buf = make([]int16, 0, len(r.last)+len(in))
		buf = append(buf, r.last...)
		buf = append(buf, in...)
	}
	frames := int64(len(buf) / ch)

	end := (frames - 1) * r.outputRate
	out := make([]int16, 0, int((end-r.pos)/r.inputRate+1)*ch)
	for ; r.pos < end; r.pos += r.inputRate {
		i := r.pos / r.outputRate
		rem := r.pos % r.outputRate
		for c := 0; c < ch; c++ {
			s1 := int64(buf[int(i)*ch+c])
			s2 := int64(buf[int(i+1)*ch+c])
			out = append(out, int16((s1*(r.outputRate-rem)+s2*rem)/r.outputRate))
		}
	}

	r.pos -= end
	r.last = append(r.last[:0], buf[len(buf)-ch:]...)
	return out, nil
}

type sincResampler struct {
	r resampling.Resampler
}

func (s *sincResampler) Process(in []int16) ([]int16, error) {
	input := make([]float64, len(in))
	for i, v := range in {
		input[i] = float64(v) / 32768.0
	}
	output, err := s.r.Process(input)
	if err != nil {
		return nil, fmt.Errorf("audio: resample: %w", err)
	}
	out := make([]int16, len(output))
	for i, v := range output {
		switch {
		case v >= 1.0:
			out[i] = 32767
		case v < -1.0:
			out[i] = -32768
		default:
			out[i] = int16(v * 32767.0)
		}
	}
	return out, nil
}

// ResampleReader converts a PCM byte stream from one rate to another.
type ResampleReader struct {
	src       io.Reader
	resampler Resampler
	frameSize int

	readBuf []byte
	pending []byte // partial frame carried to the next read
	out     []byte
	err     error
}

func NewResampleReader(src io.Reader, from, to Format, quality Quality) (*ResampleReader, error) {
	if from.Channels != to.Channels {
		return nil, fmt.Errorf("audio: channel conversion %d -> %d is not supported", from.Channels, to.Channels)
	}
	r, err := NewResampler(from.SampleRate, to.SampleRate, from.Channels, quality)
	if err != nil {
		return nil, err
	}
	return &ResampleReader{
		src:       src,
		resampler: r,
		frameSize: from.Channels * 2,
		readBuf:   make([]byte, 4096),
	}, nil
}

func (r *ResampleReader) Read(p []byte) (int, error) {
	for len(r.out) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		nr, err := r.src.Read(r.readBuf)
		if nr > 0 {
			data := append(r.pending, r.readBuf[:nr]...)
			whole := len(data) / r.frameSize * r.frameSize
			samples, perr := r.resampler.Process(BytesToSamples(data[:whole]))
			if perr != nil {
				return 0, perr
			}
			r.pending = append(r.pending[:0:0], data[whole:]...)
			r.out = SamplesToBytes(samples)
		}
		if err != nil {
			r.err = err
		}
	}
	n := copy(p, r.out)
	r.out = r.out[n:]
	return n, nil
}

// Close closes the source when it is an io.Closer.
func (r *ResampleReader) Close() error {
	if c, ok := r.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func BytesToSamples(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return samples
}

func SamplesToBytes(samples []int16) []byte {
	data := make([]byte, len(samples)*2)
	for i, v := range samples {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(v))
	}
	return data
}
