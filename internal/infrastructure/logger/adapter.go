package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"vision-crawler/internal/application/port/output"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const DefaultFile = "log/crawler.log"

var _ output.LoggerPort = (*LoggerAdapter)(nil)

// Config controls the JSON file sink. Logs never go to the terminal, which
// belongs to the operator prompt.
type Config struct {
	Level string
	File  string

	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

func DefaultConfig() Config {
	return Config{
		Level:      "info",
		File:       DefaultFile,
		MaxSizeMB:  10,
		MaxBackups: 3,
		MaxAgeDays: 7,
	}
}

type LoggerAdapter struct {
	sugar  *zap.SugaredLogger
	closer io.Closer
}

func NewLoggerAdapter(cfg Config) (*LoggerAdapter, error) {
	if cfg.File == "" {
		cfg.File = DefaultFile
	}

	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level.SetLevel(zap.InfoLevel)
	}

	if dir := filepath.Dir(cfg.File); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
	}

	sink := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}

	core := zapcore.NewCore(encoder(), zapcore.AddSync(sink), level)
	return newAdapter(core, sink), nil
}

// NewWithCore wraps an existing core. The caller owns its lifecycle.
func NewWithCore(core zapcore.Core) *LoggerAdapter {
	return newAdapter(core, nil)
}

func newAdapter(core zapcore.Core, closer io.Closer) *LoggerAdapter {
	logger := zap.New(core, zap.AddStacktrace(zap.ErrorLevel))
	return &LoggerAdapter{
		sugar:  logger.Sugar(),
		closer: closer,
	}
}

func encoder() zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.MessageKey = "message"
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02T15:04:05.000Z07:00")
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewJSONEncoder(cfg)
}

func (l *LoggerAdapter) Debug(msg string, args ...any) {
	l.sugar.Debugw(msg, args...)
}

func (l *LoggerAdapter) Info(msg string, args ...any) {
	l.sugar.Infow(msg, args...)
}

func (l *LoggerAdapter) Warn(msg string, args ...any) {
	l.sugar.Warnw(msg, args...)
}

func (l *LoggerAdapter) Error(msg string, args ...any) {
	l.sugar.Errorw(msg, args...)
}

func (l *LoggerAdapter) WithField(key string, value any) output.LoggerPort {
	return &LoggerAdapter{
		sugar:  l.sugar.With(key, value),
		closer: l.closer,
	}
}

func (l *LoggerAdapter) WithFields(fields map[string]any) output.LoggerPort {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]any, 0, len(fields)*2)
	for _, k := range keys {
		args = append(args, k, fields[k])
	}

	return &LoggerAdapter{
		sugar:  l.sugar.With(args...),
		closer: l.closer,
	}
}

// Close flushes buffered entries and releases the file sink.
func (l *LoggerAdapter) Close() error {
	_ = l.sugar.Sync()
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}
