package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/liuscraft/voxlink/internal/config"
	"github.com/liuscraft/voxlink/internal/logging"
	"github.com/liuscraft/voxlink/internal/metrics"
	"github.com/liuscraft/voxlink/pkg/client"
	"github.com/liuscraft/voxlink/pkg/live"
)

var (
	cfgFile     string
	logLevel    string
	logFormat   string
	metricsAddr string
	outputJSON  bool

	current *app
)

var rootCmd = &cobra.Command{
	Use:   "voxlink",
	Short: "Speech-to-text, text-to-speech and text intelligence client",
	Long: `voxlink streams audio to a live transcription endpoint, synthesizes
speech and analyzes text against a Deepgram-compatible API.

Examples:
  # Live transcription from the microphone
  voxlink listen --mic

  # Transcribe a remote recording
  voxlink transcribe https://example.com/call.wav --diarize

  # Synthesize speech into a file
  voxlink speak "Hello there" -o hello.mp3`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		current = a
		return nil
	},
}

// Execute runs the root command until it returns or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err := rootCmd.ExecuteContext(ctx)
	if current != nil {
		current.shutdown()
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file, YAML or JSON (default "+config.DefaultPath+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: console or json")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "print raw JSON responses")

	rootCmd.AddCommand(listenCmd)
	rootCmd.AddCommand(transcribeCmd)
	rootCmd.AddCommand(speakCmd)
	rootCmd.AddCommand(analyzeCmd)
}

type app struct {
	cfg    *config.AppConfig
	logger *zap.Logger
	hooks  live.Hooks

	stopMetrics context.CancelFunc
	metricsDone chan struct{}
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	if metricsAddr != "" {
		cfg.Metrics.Addr = metricsAddr
	}
	if err := logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format}); err != nil {
		return nil, err
	}
	logging.SetTraceID(logging.NewTraceID())

	a := &app{
		cfg:    cfg,
		logger: logging.Logger().With(zap.String("command", cmd.Name())),
	}
	hooks := live.MultiHooks{live.NewLogHooks(a.logger)}

	if cfg.Metrics.Addr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		hooks = append(hooks, metrics.NewCollector(reg, cfg.Metrics.Namespace, a.logger))

		srv, err := metrics.Listen(cfg.Metrics.Addr, reg, a.logger)
		if err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
		ctx, cancel := context.WithCancel(context.Background())
		a.stopMetrics = cancel
		a.metricsDone = make(chan struct{})
		go func() {
			defer close(a.metricsDone)
			if err := srv.Serve(ctx); err != nil {
				a.logger.Error("metrics server stopped", zap.Error(err))
			}
		}()
	}
	a.hooks = hooks
	return a, nil
}

func (a *app) clientOptions() (client.Options, error) {
	if err := a.cfg.ValidateKeys(); err != nil {
		return client.Options{}, err
	}
	return a.cfg.ClientOptions(a.logger, a.hooks)
}

func (a *app) shutdown() {
	if a.stopMetrics != nil {
		a.stopMetrics()
		<-a.metricsDone
	}
	logging.Sync()
}
