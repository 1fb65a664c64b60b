package logging

import (
	"io"
	"path/filepath"

	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// newFileWriter returns the rotating host log file.
func newFileWriter(config Config) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   filepath.Join(config.Director, config.FileName),
		MaxSize:    config.MaxSize,
		MaxBackups: config.MaxBackups,
		MaxAge:     config.MaxAge,
		Compress:   config.Compress,
		LocalTime:  true,
	}
}

// newWriteSyncer tees terminal and file output as configured. The returned
// closer releases the file, if one was opened.
func newWriteSyncer(config Config, terminal io.Writer) (zapcore.WriteSyncer, io.Closer) {
	var syncers []zapcore.WriteSyncer
	var closer io.Closer = nopCloser{}

	if config.LogInTerminal && terminal != nil {
		syncers = append(syncers, zapcore.Lock(zapcore.AddSync(terminal)))
	}
	if config.LogInFile {
		file := newFileWriter(config)
		syncers = append(syncers, zapcore.AddSync(file))
		closer = file
	}

	switch len(syncers) {
	case 0:
		return zapcore.AddSync(io.Discard), closer
	case 1:
		return syncers[0], closer
	default:
		return zapcore.NewMultiWriteSyncer(syncers...), closer
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
