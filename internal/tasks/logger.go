package tasks

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/rosilesmarcos01/bbms-sub000/internal/logging"
)

var _ logging.InternalLogger = (*runLogger)(nil)

// runLogger appends to the log buffer of a task run.
type runLogger struct {
	task *RunnableTask
}

func (t runLogger) Debug(format string, args ...any) {
	t.task.appendLog("debug", fmt.Sprintf(format, args...))
}

func (t runLogger) Info(format string, args ...any) {
	t.task.appendLog("info", fmt.Sprintf(format, args...))
}

func (t runLogger) Warn(format string, args ...any) {
	t.task.appendLog("warn", fmt.Sprintf(format, args...))
}

func (t runLogger) Error(format string, args ...any) {
	t.task.appendLog("error", fmt.Sprintf(format, args...))
}

// newCompositeLogger logs to zerolog first, then into the task's run log.
func newCompositeLogger(task *RunnableTask, zlog zerolog.Logger) logging.MultiLogger {
	return logging.NewMultiLogger(
		logging.NewZLogger(zlog),
		runLogger{task: task},
	)
}
