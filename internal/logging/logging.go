package logging

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Level  string
	Format string
}

var (
	baseLogger *zap.Logger
	sugar      *zap.SugaredLogger
	traceID    atomic.Value
	sessionID  atomic.Value
	sessions   uint64
)

func init() {
	baseLogger = zap.NewNop()
	sugar = baseLogger.Sugar()
}

func InitFromEnv() error {
	return Init(Config{
		Level:  os.Getenv("LOG_LEVEL"),
		Format: os.Getenv("LOG_FORMAT"),
	})
}

func Init(cfg Config) error {
	level := strings.ToLower(strings.TrimSpace(cfg.Level))
	if level == "" {
		level = "info"
	}

	format := strings.ToLower(strings.TrimSpace(cfg.Format))
	if format == "" {
		format = "console"
	}

	var zapCfg zap.Config
	switch format {
	case "json":
		zapCfg = zap.NewProductionConfig()
	case "console":
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return fmt.Errorf("invalid log format: %s", cfg.Format)
	}

	atomLevel := zap.NewAtomicLevel()
	if err := atomLevel.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level: %s", cfg.Level)
	}
	zapCfg.Level = atomLevel

	logger, err := zapCfg.Build(zap.AddCaller())
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	setLogger(logger)
	return nil
}

func setLogger(logger *zap.Logger) {
	baseLogger = logger
	sugar = logger.WithOptions(zap.AddCallerSkip(1)).Sugar()
}

// Logger returns the process logger tagged with the current trace id, for
// injection into library packages.
func Logger() *zap.Logger {
	return baseLogger.With(zap.String("trace_id", currentTraceID()))
}

func Sync() {
	if baseLogger != nil {
		_ = baseLogger.Sync()
	}
}

func SetTraceID(id string) {
	if strings.TrimSpace(id) == "" {
		return
	}
	traceID.Store(id)
}

func NewTraceID() string {
	return uuid.NewString()
}

// StartSession marks the beginning of a streaming session and returns its
// sequence number. Later log lines carry session_id.
func StartSession(id string) uint64 {
	n := atomic.AddUint64(&sessions, 1)
	if strings.TrimSpace(id) == "" {
		id = fmt.Sprintf("session-%d", n)
	}
	sessionID.Store(id)
	return n
}

func Debugf(format string, args ...interface{}) {
	withFields().Debugf(format, args...)
}

func Infof(format string, args ...interface{}) {
	withFields().Infof(format, args...)
}

func Warnf(format string, args ...interface{}) {
	withFields().Warnf(format, args...)
}

func Errorf(format string, args ...interface{}) {
	withFields().Errorf(format, args...)
}

func Fatalf(format string, args ...interface{}) {
	withFields().Fatalf(format, args...)
}

func currentTraceID() string {
	tid, _ := traceID.Load().(string)
	if tid == "" {
		return "trace-unknown"
	}
	return tid
}

func withFields() *zap.SugaredLogger {
	fields := []interface{}{"trace_id", currentTraceID()}
	if sid, _ := sessionID.Load().(string); sid != "" {
		fields = append(fields, "session_id", sid)
	}
	return sugar.With(fields...)
}
