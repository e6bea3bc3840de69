package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/liuscraft/voxlink/internal/audio"
	"github.com/liuscraft/voxlink/pkg/live"
	"github.com/liuscraft/voxlink/pkg/transport"
)

func writeFile(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_JSONMergesDefaultsAndEnv(t *testing.T) {
	path := writeFile(t, "voxlink.json", `{
		"logging": {"level": "debug"},
		"live": {"receive_timeout": "12s", "idle_send_interval": 3},
		"listen": {"model": "nova-3"}
	}`)

	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("DEEPGRAM_API_KEY", "dg-key")
	t.Setenv("DEEPGRAM_HOST", "http://localhost:9000")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Logging.Level != "warn" {
		t.Fatalf("expected LOG_LEVEL to override config, got %q", cfg.Logging.Level)
	}
	if cfg.Live.ReceiveTimeout.Std() != 12*time.Second {
		t.Fatalf("receive_timeout = %s", cfg.Live.ReceiveTimeout)
	}
	if cfg.Live.IdleSendInterval.Std() != 3*time.Second {
		t.Fatalf("idle_send_interval = %s", cfg.Live.IdleSendInterval)
	}
	if cfg.Listen.Model != "nova-3" || cfg.Listen.Encoding != "linear16" {
		t.Fatalf("expected listen defaults to be preserved, got %+v", cfg.Listen)
	}
	if cfg.Deepgram.APIKey != "dg-key" || cfg.Deepgram.Host != "http://localhost:9000" {
		t.Fatalf("expected deepgram settings from env, got %+v", cfg.Deepgram)
	}
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "voxlink.yaml", `
deepgram:
  transport: coder
live:
  close_timeout: 750ms
  backpressure: fail-fast
  queue_capacity: 32
speak:
  model: aura-luna-en
metrics:
  addr: ":9090"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Live.CloseTimeout.Std() != 750*time.Millisecond {
		t.Fatalf("close_timeout = %s", cfg.Live.CloseTimeout)
	}
	opts := cfg.LiveOptions()
	if opts.Backpressure != live.FailFast || opts.QueueCapacity != 32 {
		t.Fatalf("LiveOptions() = %+v", opts)
	}
	if cfg.SpeakOptions().Model != "aura-luna-en" {
		t.Fatalf("SpeakOptions().Model = %q", cfg.SpeakOptions().Model)
	}
	if cfg.Metrics.Addr != ":9090" {
		t.Fatalf("metrics.addr = %q", cfg.Metrics.Addr)
	}

	cfg.Deepgram.APIKey = "k"
	copts, err := cfg.ClientOptions(nil, nil)
	if err != nil {
		t.Fatalf("ClientOptions() error = %v", err)
	}
	if _, ok := copts.Dialer.(*transport.CoderDialer); !ok {
		t.Fatalf("expected coder dialer, got %T", copts.Dialer)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Live.QueueCapacity != 256 {
		t.Fatalf("expected default queue capacity, got %d", cfg.Live.QueueCapacity)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		file string
		data string
	}{
		{"bad duration", "a.json", `{"live": {"close_timeout": "soon"}}`},
		{"bad backpressure", "b.yaml", "live:\n  backpressure: drop\n"},
		{"bad transport", "c.yaml", "deepgram:\n  transport: carrier-pigeon\n"},
		{"negative timeout", "d.json", `{"live": {"receive_timeout": "-1s"}}`},
		{"unsupported extension", "e.toml", `x = 1`},
		{"malformed yaml", "f.yml", "live: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeFile(t, tt.file, tt.data)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestValidateKeys(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.ValidateKeys(); err == nil {
		t.Fatalf("expected error when key is missing")
	}
	cfg.Deepgram.APIKey = "k"
	if err := cfg.ValidateKeys(); err != nil {
		t.Fatalf("unexpected key validation error: %v", err)
	}
}

func TestListenOptions(t *testing.T) {
	q := DefaultConfig().ListenOptions().Query()
	if q.Get("model") != "nova-2" || q.Get("sample_rate") != "16000" || q.Get("interim_results") != "true" {
		t.Fatalf("unexpected query %v", q)
	}
}

func TestAudioSettings(t *testing.T) {
	path := writeFile(t, "voxlink.yaml", `
audio:
  sample_rate: 48000
  channels: 2
  frame_ms: 40
  device: usb
  resample_quality: high
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	mic := cfg.MicrophoneConfig()
	if mic.Format.SampleRate != 48000 || mic.Format.Channels != 2 {
		t.Fatalf("format = %+v", mic.Format)
	}
	if mic.Frame != 40*time.Millisecond || mic.Device != "usb" {
		t.Fatalf("microphone config = %+v", mic)
	}
	if cfg.ResampleQuality() != audio.QualityHigh {
		t.Fatalf("resample quality = %v", cfg.ResampleQuality())
	}

	cfg.Audio.ResampleQuality = "cubic"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected unknown resample quality to fail validation")
	}
}
