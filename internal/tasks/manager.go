package tasks

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"
)

const (
	MaxLogsPerTask     = 1000
	DefaultTaskTimeout = time.Minute
)

// Manager runs named tasks periodically and on demand. Scheduled tasks stop when
// the context given to NewManager is cancelled.
type Manager struct {
	ctx   context.Context
	tasks sync.Map
	wg    sync.WaitGroup
}

func NewManager(ctx context.Context) *Manager {
	return &Manager{ctx: ctx}
}

// Register adds a task. With a positive interval the task is scheduled right away.
func (m *Manager) Register(name string, interval time.Duration, fn TaskFunc) {
	task := &RunnableTask{
		Name:         name,
		Interval:     interval,
		Timeout:      DefaultTaskTimeout,
		Handler:      fn,
		registeredAt: time.Now(),
		logs:         make([]LogEntry, 0),
	}
	m.tasks.Store(name, task)

	if interval > 0 {
		m.wg.Add(1)
		go m.scheduler(task)
	}
}

// Trigger runs the task in the background.
func (m *Manager) Trigger(name string) error {
	task, err := m.get(name)
	if err != nil {
		return err
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		task.Run(m.ctx)
	}()
	return nil
}

// RunNow runs the task and waits for it to finish.
func (m *Manager) RunNow(name string) error {
	task, err := m.get(name)
	if err != nil {
		return err
	}
	task.Run(m.ctx)
	return nil
}

func (m *Manager) ListStatus() []TaskStatus {
	var list []TaskStatus
	m.tasks.Range(func(_, value any) bool {
		list = append(list, value.(*RunnableTask).Status())
		return true
	})
	slices.SortFunc(list, func(a, b TaskStatus) int {
		return strings.Compare(a.Name, b.Name)
	})
	return list
}

func (m *Manager) GetLogs(name string) ([]LogEntry, error) {
	task, err := m.get(name)
	if err != nil {
		return nil, err
	}
	return task.Logs(), nil
}

// Wait blocks until every scheduler and triggered run has returned.
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) get(name string) (*RunnableTask, error) {
	t, ok := m.tasks.Load(name)
	if !ok {
		return nil, TaskNotFoundError{Name: name, Known: m.names()}
	}
	return t.(*RunnableTask), nil
}

func (m *Manager) names() []string {
	var names []string
	m.tasks.Range(func(key, _ any) bool {
		names = append(names, key.(string))
		return true
	})
	slices.Sort(names)
	return names
}

func (m *Manager) scheduler(task *RunnableTask) {
	defer m.wg.Done()

	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			task.Run(m.ctx)
		}
	}
}
