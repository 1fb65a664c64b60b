package logging

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the host's structured logger.
type Logger interface {
	Debug(msg string, fields ...zap.Field)
	Info(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)

	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)

	// With creates a child logger with additional fields.
	With(fields ...zap.Field) Logger
	// WithError creates a child logger with an error field.
	WithError(err error) Logger
	// Named creates a child logger with the given name.
	Named(name string) Logger

	// Zap returns the underlying *zap.Logger.
	Zap() *zap.Logger
	// Sync flushes any buffered log entries.
	Sync() error
	// Close flushes and releases the log file, if any.
	Close() error
}

type zapLogger struct {
	zl     *zap.Logger
	sl     *zap.SugaredLogger
	closer io.Closer
}

// NewLogger builds a Logger writing to stdout and, when configured, to a
// rotating file.
func NewLogger(config Config) Logger {
	return New(config, os.Stdout)
}

// New is NewLogger with the terminal writer supplied by the caller.
func New(config Config, terminal io.Writer) Logger {
	config.applyDefaults()

	ws, closer := newWriteSyncer(config, terminal)
	core := zapcore.NewCore(GetEncoder(config), ws, config.TransportLevel())

	opts := []zap.Option{zap.ErrorOutput(zapcore.AddSync(os.Stderr))}
	if config.ShowLineNumber {
		opts = append(opts, zap.AddCaller(), zap.AddCallerSkip(1))
	}
	zl := zap.New(core, opts...)

	return &zapLogger{zl: zl, sl: zl.Sugar(), closer: closer}
}

// FromZap wraps an existing *zap.Logger as a Logger.
func FromZap(zl *zap.Logger) Logger {
	return &zapLogger{zl: zl, sl: zl.Sugar(), closer: nopCloser{}}
}

func (l *zapLogger) Debug(msg string, fields ...zap.Field) { l.zl.Debug(msg, fields...) }
func (l *zapLogger) Info(msg string, fields ...zap.Field)  { l.zl.Info(msg, fields...) }
func (l *zapLogger) Warn(msg string, fields ...zap.Field)  { l.zl.Warn(msg, fields...) }
func (l *zapLogger) Error(msg string, fields ...zap.Field) { l.zl.Error(msg, fields...) }

func (l *zapLogger) Debugf(format string, args ...any) { l.sl.Debugf(format, args...) }
func (l *zapLogger) Infof(format string, args ...any)  { l.sl.Infof(format, args...) }
func (l *zapLogger) Warnf(format string, args ...any)  { l.sl.Warnf(format, args...) }
func (l *zapLogger) Errorf(format string, args ...any) { l.sl.Errorf(format, args...) }

func (l *zapLogger) With(fields ...zap.Field) Logger {
	return l.derive(l.zl.With(fields...))
}

func (l *zapLogger) WithError(err error) Logger {
	return l.derive(l.zl.With(zap.Error(err)))
}

func (l *zapLogger) Named(name string) Logger {
	return l.derive(l.zl.Named(name))
}

// derive shares the parent's file; only the root closes it.
func (l *zapLogger) derive(zl *zap.Logger) Logger {
	return &zapLogger{zl: zl, sl: zl.Sugar(), closer: nopCloser{}}
}

func (l *zapLogger) Zap() *zap.Logger { return l.zl }

func (l *zapLogger) Sync() error { return l.zl.Sync() }

func (l *zapLogger) Close() error {
	_ = l.zl.Sync()
	return l.closer.Close()
}

var _ Logger = (*zapLogger)(nil)
