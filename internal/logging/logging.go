// Package logging builds the application logger. filechat is a terminal UI,
// so logs go to a rotating file and never to stdout or stderr: the terminal
// belongs to bubbletea.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New returns a JSON logger writing to a rotating file at the given level.
// Unknown level names fall back to info.
func New(path, level string) *zap.Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     14, // days
		Compress:   true,
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(rotator),
		lvl,
	)
	return zap.New(core, zap.AddCaller())
}

// Nop returns a logger that discards everything, for tests and for callers
// that opt out of logging.
func Nop() *zap.Logger {
	return zap.NewNop()
}
