package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/liuscraft/voxlink/internal/audio"
	"github.com/liuscraft/voxlink/pkg/client"
	"github.com/liuscraft/voxlink/pkg/listen"
	"github.com/liuscraft/voxlink/pkg/live"
	"github.com/liuscraft/voxlink/pkg/speak"
	"github.com/liuscraft/voxlink/pkg/transport"
)

const DefaultPath = "config/voxlink.yaml"

type AppConfig struct {
	Logging  LoggingConfig  `json:"logging" yaml:"logging"`
	Deepgram DeepgramConfig `json:"deepgram" yaml:"deepgram"`
	Live     LiveConfig     `json:"live" yaml:"live"`
	Listen   ListenConfig   `json:"listen" yaml:"listen"`
	Speak    SpeakConfig    `json:"speak" yaml:"speak"`
	Audio    AudioConfig    `json:"audio" yaml:"audio"`
	Metrics  MetricsConfig  `json:"metrics" yaml:"metrics"`
}

type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

type DeepgramConfig struct {
	APIKey string `json:"api_key" yaml:"api_key"`
	Host   string `json:"host" yaml:"host"`
	// Transport selects the WebSocket implementation: gorilla or coder.
	Transport string `json:"transport" yaml:"transport"`
}

type LiveConfig struct {
	IdleSendInterval Duration `json:"idle_send_interval" yaml:"idle_send_interval"`
	ReceiveTimeout   Duration `json:"receive_timeout" yaml:"receive_timeout"`
	QueueCapacity    int      `json:"queue_capacity" yaml:"queue_capacity"`
	Backpressure     string   `json:"backpressure" yaml:"backpressure"`
	HandshakeTimeout Duration `json:"handshake_timeout" yaml:"handshake_timeout"`
	CloseTimeout     Duration `json:"close_timeout" yaml:"close_timeout"`
}

type ListenConfig struct {
	Model          string `json:"model" yaml:"model"`
	Language       string `json:"language" yaml:"language"`
	Encoding       string `json:"encoding" yaml:"encoding"`
	SampleRate     int    `json:"sample_rate" yaml:"sample_rate"`
	Channels       int    `json:"channels" yaml:"channels"`
	InterimResults bool   `json:"interim_results" yaml:"interim_results"`
	SmartFormat    bool   `json:"smart_format" yaml:"smart_format"`
	Punctuate      bool   `json:"punctuate" yaml:"punctuate"`
	Endpointing    string `json:"endpointing" yaml:"endpointing"`
	UtteranceEndMs int    `json:"utterance_end_ms" yaml:"utterance_end_ms"`
}

type SpeakConfig struct {
	Model      string `json:"model" yaml:"model"`
	Encoding   string `json:"encoding" yaml:"encoding"`
	Container  string `json:"container" yaml:"container"`
	SampleRate int    `json:"sample_rate" yaml:"sample_rate"`
}

// AudioConfig describes local capture for microphone streaming.
type AudioConfig struct {
	SampleRate int `json:"sample_rate" yaml:"sample_rate"`
	Channels   int `json:"channels" yaml:"channels"`
	FrameMs    int `json:"frame_ms" yaml:"frame_ms"`

	// Device selects an input device by partial name; empty uses the default.
	Device      string `json:"device" yaml:"device"`
	HighLatency bool   `json:"high_latency" yaml:"high_latency"`
	// ResampleQuality is linear or high. Used when a WAV file's rate differs
	// from listen.sample_rate.
	ResampleQuality string `json:"resample_quality" yaml:"resample_quality"`
}

type MetricsConfig struct {
	Addr      string `json:"addr" yaml:"addr"`
	Namespace string `json:"namespace" yaml:"namespace"`
}

func DefaultConfig() *AppConfig {
	return &AppConfig{
		Logging: LoggingConfig{},
		Deepgram: DeepgramConfig{
			Host:      client.DefaultHost,
			Transport: "gorilla",
		},
		Live: LiveConfig{
			IdleSendInterval: Duration(5 * time.Second),
			ReceiveTimeout:   Duration(30 * time.Second),
			QueueCapacity:    256,
			Backpressure:     "block",
			HandshakeTimeout: Duration(10 * time.Second),
			CloseTimeout:     Duration(5 * time.Second),
		},
		Listen: ListenConfig{
			Model:          "nova-2",
			Language:       "en-US",
			Encoding:       "linear16",
			SampleRate:     16000,
			Channels:       1,
			InterimResults: true,
			SmartFormat:    true,
			Punctuate:      true,
		},
		Speak: SpeakConfig{
			Model:      "aura-asteria-en",
			Encoding:   "linear16",
			SampleRate: 24000,
		},
		Audio: AudioConfig{
			SampleRate: 16000,
			Channels:   1,
			FrameMs:    20,
		},
		Metrics: MetricsConfig{
			Namespace: "voxlink",
		},
	}
}

// Load reads a JSON or YAML file (by extension) over the defaults, then
// applies environment overrides. A missing file yields the defaults.
func Load(path string) (*AppConfig, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = DefaultPath
	}

	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg.ApplyEnv()
			return cfg, cfg.Validate()
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		return nil, fmt.Errorf("unsupported config format %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.ApplyEnv()
	return cfg, cfg.Validate()
}

func (c *AppConfig) ApplyEnv() {
	if level := strings.TrimSpace(os.Getenv("LOG_LEVEL")); level != "" {
		c.Logging.Level = level
	}
	if format := strings.TrimSpace(os.Getenv("LOG_FORMAT")); format != "" {
		c.Logging.Format = format
	}
	if key := strings.TrimSpace(os.Getenv("DEEPGRAM_API_KEY")); key != "" {
		c.Deepgram.APIKey = key
	}
	if host := strings.TrimSpace(os.Getenv("DEEPGRAM_HOST")); host != "" {
		c.Deepgram.Host = host
	}
}

func (c *AppConfig) Validate() error {
	if _, err := transport.NewDialer(c.Deepgram.Transport, 0); err != nil {
		return fmt.Errorf("deepgram.transport: %w", err)
	}
	if _, err := parseBackpressure(c.Live.Backpressure); err != nil {
		return err
	}
	if c.Live.QueueCapacity < 0 {
		return errors.New("live.queue_capacity must be non-negative")
	}
	for name, d := range map[string]Duration{
		"live.idle_send_interval": c.Live.IdleSendInterval,
		"live.receive_timeout":    c.Live.ReceiveTimeout,
		"live.handshake_timeout":  c.Live.HandshakeTimeout,
		"live.close_timeout":      c.Live.CloseTimeout,
	} {
		if d < 0 {
			return fmt.Errorf("%s must be non-negative", name)
		}
	}
	if c.Listen.SampleRate < 0 || c.Speak.SampleRate < 0 {
		return errors.New("sample_rate must be non-negative")
	}
	if c.Audio.SampleRate <= 0 {
		return errors.New("audio.sample_rate must be positive")
	}
	if c.Audio.Channels <= 0 {
		return errors.New("audio.channels must be positive")
	}
	if c.Audio.FrameMs <= 0 {
		return errors.New("audio.frame_ms must be positive")
	}
	if _, err := audio.ParseQuality(c.Audio.ResampleQuality); err != nil {
		return fmt.Errorf("audio.resample_quality: %w", err)
	}
	return nil
}

func (c *AppConfig) ValidateKeys() error {
	if strings.TrimSpace(c.Deepgram.APIKey) == "" {
		return errors.New("deepgram api_key is required (set DEEPGRAM_API_KEY)")
	}
	return nil
}

func parseBackpressure(v string) (live.Backpressure, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "block":
		return live.Block, nil
	case "fail-fast", "failfast", "fail_fast":
		return live.FailFast, nil
	default:
		return live.Block, fmt.Errorf("invalid live.backpressure: %s", v)
	}
}

// ClientOptions builds the provider options. logger and hooks may be nil.
func (c *AppConfig) ClientOptions(logger *zap.Logger, hooks live.Hooks) (client.Options, error) {
	dialer, err := transport.NewDialer(c.Deepgram.Transport, c.Live.HandshakeTimeout.Std())
	if err != nil {
		return client.Options{}, err
	}
	return client.Options{
		APIKey: c.Deepgram.APIKey,
		Host:   c.Deepgram.Host,
		Dialer: dialer,
		Logger: logger,
		Hooks:  hooks,
	}, nil
}

func (c *AppConfig) LiveOptions() live.Options {
	bp, _ := parseBackpressure(c.Live.Backpressure)
	return live.Options{
		IdleSendInterval: c.Live.IdleSendInterval.Std(),
		ReceiveTimeout:   c.Live.ReceiveTimeout.Std(),
		QueueCapacity:    c.Live.QueueCapacity,
		Backpressure:     bp,
		HandshakeTimeout: c.Live.HandshakeTimeout.Std(),
		CloseTimeout:     c.Live.CloseTimeout.Std(),
	}
}

func (c *AppConfig) ListenOptions() listen.LiveOptions {
	return listen.LiveOptions{
		Model:          c.Listen.Model,
		Language:       c.Listen.Language,
		Encoding:       c.Listen.Encoding,
		SampleRate:     c.Listen.SampleRate,
		Channels:       c.Listen.Channels,
		InterimResults: client.BoolPtr(c.Listen.InterimResults),
		SmartFormat:    client.BoolPtr(c.Listen.SmartFormat),
		Punctuate:      client.BoolPtr(c.Listen.Punctuate),
		Endpointing:    c.Listen.Endpointing,
		UtteranceEndMs: c.Listen.UtteranceEndMs,
	}
}

func (c *AppConfig) SpeakOptions() speak.Options {
	return speak.Options{
		Model:      c.Speak.Model,
		Encoding:   c.Speak.Encoding,
		Container:  c.Speak.Container,
		SampleRate: c.Speak.SampleRate,
	}
}

func (c *AppConfig) AudioFormat() audio.Format {
	return audio.Format{SampleRate: c.Audio.SampleRate, Channels: c.Audio.Channels}
}

func (c *AppConfig) FrameDuration() time.Duration {
	return time.Duration(c.Audio.FrameMs) * time.Millisecond
}

func (c *AppConfig) MicrophoneConfig() audio.MicrophoneConfig {
	return audio.MicrophoneConfig{
		Format:      c.AudioFormat(),
		Frame:       c.FrameDuration(),
		Device:      c.Audio.Device,
		HighLatency: c.Audio.HighLatency,
	}
}

func (c *AppConfig) ResampleQuality() audio.Quality {
	q, _ := audio.ParseQuality(c.Audio.ResampleQuality)
	return q
}
