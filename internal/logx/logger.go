package logx

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var Logger = zap.NewNop()

func InitLogger() {
	InitLoggerWithLevel(false)
}

// InitLoggerWithLevel builds the process logger and installs it as zap's
// global, which is what the loader falls back to when no logger is passed.
func InitLoggerWithLevel(verbose bool) {
	l, err := build(verbose)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	Logger = l
	zap.ReplaceGlobals(Logger)

	InitStyledLogger()
}

func build(verbose bool) (*zap.Logger, error) {
	if verbose {
		// debug level, console encoder, caller and stack traces
		return zap.NewDevelopment()
	}
	// JSON on stderr; batch failures and warnings only
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	config.Sampling = nil
	return config.Build()
}

// Sync flushes buffered entries. Errors from syncing a terminal are ignored.
func Sync() {
	_ = Logger.Sync()
}
