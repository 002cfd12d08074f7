package logging

import "github.com/rs/zerolog"

// InternalLogger is the printf-style logger handed to background tasks, so a run can be
// written to zerolog and to the task's own log buffer at the same time.
type InternalLogger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

var _ InternalLogger = ZLogger{}

// ZLogger adapts a zerolog.Logger.
type ZLogger struct {
	ZLog zerolog.Logger
}

func NewZLogger(zlog zerolog.Logger) ZLogger {
	return ZLogger{ZLog: zlog}
}

func (l ZLogger) msgf(level zerolog.Level, format string, args []any) {
	l.ZLog.WithLevel(level).Msgf(format, args...)
}

func (l ZLogger) Debug(format string, args ...any) { l.msgf(zerolog.DebugLevel, format, args) }
func (l ZLogger) Info(format string, args ...any)  { l.msgf(zerolog.InfoLevel, format, args) }
func (l ZLogger) Warn(format string, args ...any)  { l.msgf(zerolog.WarnLevel, format, args) }
func (l ZLogger) Error(format string, args ...any) { l.msgf(zerolog.ErrorLevel, format, args) }

var _ InternalLogger = MultiLogger{}

// MultiLogger writes every line to each logger in order.
type MultiLogger []InternalLogger

func NewMultiLogger(loggers ...InternalLogger) MultiLogger {
	return loggers
}

func (m MultiLogger) each(fn func(InternalLogger)) {
	for _, l := range m {
		fn(l)
	}
}

func (m MultiLogger) Debug(format string, args ...any) {
	m.each(func(l InternalLogger) { l.Debug(format, args...) })
}

func (m MultiLogger) Info(format string, args ...any) {
	m.each(func(l InternalLogger) { l.Info(format, args...) })
}

func (m MultiLogger) Warn(format string, args ...any) {
	m.each(func(l InternalLogger) { l.Warn(format, args...) })
}

func (m MultiLogger) Error(format string, args ...any) {
	m.each(func(l InternalLogger) { l.Error(format, args...) })
}
