package tasks

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rosilesmarcos01/bbms-sub000/internal/logging"
)

func TestManager_RunNowAndLogs(t *testing.T) {
	m := NewManager(context.Background())

	m.Register("sweep", 0, func(ctx context.Context, logger logging.InternalLogger) error {
		logger.Info("evicted %d operations", 3)
		return nil
	})

	require.NoError(t, m.RunNow("sweep"))

	logs, err := m.GetLogs("sweep")
	require.NoError(t, err)
	require.NotEmpty(t, logs)

	var found bool
	for _, l := range logs {
		if l.Message == "evicted 3 operations" && l.Level == "info" {
			found = true
		}
	}
	require.True(t, found, "logs: %+v", logs)

	status := m.ListStatus()
	require.Len(t, status, 1)
	require.Equal(t, "sweep", status[0].Name)
	require.Equal(t, 1, status[0].Runs)
	require.Equal(t, "success", status[0].LastResult)
	require.True(t, status[0].NextRun.IsZero())
}

func TestManager_FailedRun(t *testing.T) {
	m := NewManager(context.Background())
	m.Register("broken", 0, func(context.Context, logging.InternalLogger) error {
		return errors.New("boom")
	})
	require.NoError(t, m.RunNow("broken"))
	require.Equal(t, "failed: boom", m.ListStatus()[0].LastResult)
}

func TestManager_UnknownTask(t *testing.T) {
	m := NewManager(context.Background())
	noop := func(context.Context, logging.InternalLogger) error { return nil }
	m.Register("b-task", 0, noop)
	m.Register("a-task", 0, noop)

	var notFound TaskNotFoundError
	require.ErrorAs(t, m.Trigger("nope"), &notFound)
	require.Equal(t, "nope", notFound.Name)
	require.Equal(t, []string{"a-task", "b-task"}, notFound.Known)
	require.EqualError(t, notFound, "unknown task 'nope' (known: a-task, b-task)")

	_, err := m.GetLogs("nope")
	require.Error(t, err)
}

func TestManager_SchedulerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := NewManager(ctx)

	var runs atomic.Int32
	m.Register("tick", 10*time.Millisecond, func(context.Context, logging.InternalLogger) error {
		runs.Add(1)
		return nil
	})

	require.Eventually(t, func() bool { return runs.Load() >= 2 }, time.Second, 5*time.Millisecond)

	cancel()
	m.Wait()

	stopped := runs.Load()
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, stopped, runs.Load())
}

func TestManager_ListIsSorted(t *testing.T) {
	m := NewManager(context.Background())
	noop := func(context.Context, logging.InternalLogger) error { return nil }
	m.Register("b", 0, noop)
	m.Register("a", 0, noop)
	m.Register("c", 0, noop)

	var names []string
	for _, s := range m.ListStatus() {
		names = append(names, s.Name)
	}
	require.Equal(t, []string{"a", "b", "c"}, names)
}
