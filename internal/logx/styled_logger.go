package logx

import (
	"github.com/pixperk/chugsql/internal/ui"
	"go.uber.org/zap"
)

// StyledLogger writes every entry to the zap logger and echoes it to the
// terminal with the matching ui style.
type StyledLogger struct {
	logger *zap.Logger
}

func NewStyledLogger(l *zap.Logger) *StyledLogger {
	if l == nil {
		l = zap.NewNop()
	}
	return &StyledLogger{logger: l}
}

func (s *StyledLogger) Info(msg string, fields ...zap.Field) {
	s.logger.Info(msg, fields...)
	ui.PrintInfo(msg)
}

func (s *StyledLogger) Success(msg string, fields ...zap.Field) {
	s.logger.Info(msg, fields...)
	ui.PrintSuccess(msg)
}

func (s *StyledLogger) Error(msg string, fields ...zap.Field) {
	s.logger.Error(msg, fields...)
	ui.PrintError(msg)
}

func (s *StyledLogger) Warn(msg string, fields ...zap.Field) {
	s.logger.Warn(msg, fields...)
	ui.PrintWarning(msg)
}

// Fatal prints the styled message first: zap's Fatal exits the process.
func (s *StyledLogger) Fatal(msg string, fields ...zap.Field) {
	ui.PrintError(msg)
	s.logger.Fatal(msg, fields...)
}

// Debug is not echoed.
func (s *StyledLogger) Debug(msg string, fields ...zap.Field) {
	s.logger.Debug(msg, fields...)
}

func (s *StyledLogger) Highlight(msg string, fields ...zap.Field) {
	s.logger.Info(msg, fields...)
	ui.PrintHighlight(msg)
}

func (s *StyledLogger) With(fields ...zap.Field) *StyledLogger {
	return &StyledLogger{logger: s.logger.With(fields...)}
}

// Zap returns the underlying logger, e.g. for loader.Options.
func (s *StyledLogger) Zap() *zap.Logger {
	return s.logger
}

var StyledLog = NewStyledLogger(nil)

func InitStyledLogger() {
	StyledLog = NewStyledLogger(Logger)
}
