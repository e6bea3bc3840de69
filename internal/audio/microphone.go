package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
)

type inputStream interface {
	Start() error
	Read() error
	Abort() error
	Stop() error
	Close() error
}

// MicrophoneConfig selects the capture device and buffer.
type MicrophoneConfig struct {
	Format Format
	Frame  time.Duration
	// Device matches an input device by case-insensitive substring.
	Device string
	// HighLatency uses the device's high latency setting, which suits
	// bluetooth headsets.
	HighLatency bool
}

// Microphone captures PCM frames from a portaudio input device.
type Microphone struct {
	stream    inputStream
	format    Format
	buffer    []int16
	terminate func() error
	logger    *zap.Logger

	closeCh   chan struct{}
	closeOnce sync.Once
	closeErr  error
	startOnce sync.Once
	startErr  error

	mu           sync.Mutex
	totalReads   int64
	blockedReads int64
}

// OpenMicrophone initializes portaudio and opens the input stream. The
// stream starts on the first Read.
func OpenMicrophone(cfg MicrophoneConfig, logger *zap.Logger) (*Microphone, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Format.Validate(); err != nil {
		return nil, err
	}
	frames := cfg.Format.FrameBytes(cfg.Frame) / (2 * cfg.Format.Channels)
	if frames <= 0 {
		return nil, fmt.Errorf("audio: frame %s too short for %s", cfg.Frame, cfg.Format)
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("audio: initialize portaudio: %w", err)
	}
	logger = logger.With(zap.String("component", "microphone"))

	buffer := make([]int16, frames*cfg.Format.Channels)
	stream, err := openInputStream(cfg, buffer, logger)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, err
	}

	logger.Info("microphone opened",
		zap.Stringer("format", cfg.Format),
		zap.Duration("frame", cfg.Frame),
		zap.Bool("high_latency", cfg.HighLatency))
	m := newMicrophone(stream, cfg.Format, buffer, logger)
	m.terminate = portaudio.Terminate
	return m, nil
}

func openInputStream(cfg MicrophoneConfig, buffer []int16, logger *zap.Logger) (*portaudio.Stream, error) {
	var device *portaudio.DeviceInfo
	if cfg.Device != "" {
		d, err := findInputDevice(cfg.Device)
		if err != nil {
			logger.Warn("input device not found, using default", zap.String("device", cfg.Device), zap.Error(err))
		}
		device = d
	}
	if device == nil {
		d, err := portaudio.DefaultInputDevice()
		if err != nil {
			logger.Warn("no default input device, opening default stream", zap.Error(err))
			return portaudio.OpenDefaultStream(cfg.Format.Channels, 0, float64(cfg.Format.SampleRate), len(buffer)/cfg.Format.Channels, &buffer)
		}
		device = d
	}

	latency := device.DefaultLowInputLatency
	if cfg.HighLatency {
		latency = device.DefaultHighInputLatency
	}
	logger.Info("using input device", zap.String("device", device.Name), zap.Duration("latency", latency))

	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: cfg.Format.Channels,
			Latency:  latency,
		},
		SampleRate:      float64(cfg.Format.SampleRate),
		FramesPerBuffer: len(buffer) / cfg.Format.Channels,
	}, &buffer)
	if err != nil {
		logger.Warn("open stream with device parameters failed, opening default stream", zap.Error(err))
		return portaudio.OpenDefaultStream(cfg.Format.Channels, 0, float64(cfg.Format.SampleRate), len(buffer)/cfg.Format.Channels, &buffer)
	}
	return stream, nil
}

func findInputDevice(name string) (*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	want := strings.ToLower(name)
	for _, dev := range devices {
		if dev.MaxInputChannels > 0 && strings.Contains(strings.ToLower(dev.Name), want) {
			return dev, nil
		}
	}
	return nil, fmt.Errorf("no input device matching %q", name)
}

func newMicrophone(stream inputStream, format Format, buffer []int16, logger *zap.Logger) *Microphone {
	return &Microphone{
		stream:  stream,
		format:  format,
		buffer:  buffer,
		logger:  logger,
		closeCh: make(chan struct{}),
	}
}

func (m *Microphone) Format() Format { return m.format }

func (m *Microphone) start() error {
	m.startOnce.Do(func() {
		if err := m.stream.Start(); err != nil {
			m.startErr = fmt.Errorf("audio: start stream: %w", err)
		}
	})
	return m.startErr
}

// Read blocks for one buffer of audio. Cancelling ctx aborts the stream.
func (m *Microphone) Read(ctx context.Context) ([]byte, error) {
	select {
	case <-m.closeCh:
		return nil, io.EOF
	default:
	}
	if err := m.start(); err != nil {
		return nil, err
	}

	began := time.Now()
	readErr := make(chan error, 1)
	go func() {
		readErr <- m.stream.Read()
	}()

	select {
	case <-ctx.Done():
		m.abort("context canceled")
		return nil, ctx.Err()
	case <-m.closeCh:
		m.abort("microphone closed")
		return nil, io.EOF
	case err := <-readErr:
		m.recordRead(time.Since(began))
		if err != nil {
			select {
			case <-m.closeCh:
				return nil, io.EOF
			default:
			}
			return nil, fmt.Errorf("audio: read stream: %w", err)
		}
	}

	data := make([]byte, len(m.buffer)*2)
	for i, v := range m.buffer {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(v))
	}
	return data, nil
}

// Close stops the stream and releases portaudio. Safe to call more than once.
func (m *Microphone) Close() error {
	m.closeOnce.Do(func() {
		close(m.closeCh)
		var result *multierror.Error
		if err := m.stream.Stop(); err != nil {
			result = multierror.Append(result, fmt.Errorf("stop stream: %w", err))
		}
		if err := m.stream.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close stream: %w", err))
		}
		if m.terminate != nil {
			if err := m.terminate(); err != nil {
				result = multierror.Append(result, fmt.Errorf("terminate portaudio: %w", err))
			}
		}
		m.closeErr = result.ErrorOrNil()
		m.mu.Lock()
		m.logger.Info("microphone closed",
			zap.Int64("reads", m.totalReads),
			zap.Int64("blocked_reads", m.blockedReads))
		m.mu.Unlock()
	})
	return m.closeErr
}

func (m *Microphone) abort(reason string) {
	if err := m.stream.Abort(); err != nil {
		m.logger.Warn("abort stream failed", zap.String("reason", reason), zap.Error(err))
	}
}

// recordRead counts reads that took over three buffer periods.
func (m *Microphone) recordRead(d time.Duration) {
	expected := m.format.Duration(len(m.buffer) * 2)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalReads++
	if d > 3*expected {
		m.blockedReads++
		m.logger.Warn("microphone read blocked",
			zap.Duration("took", d),
			zap.Duration("expected", expected),
			zap.Int64("blocked", m.blockedReads),
			zap.Int64("total", m.totalReads))
	}
}
