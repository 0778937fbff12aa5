// Package installmonitor aggregates a fixed set of install tasks started
// together into one observable unit of work.
package installmonitor

import (
	"sync"

	"github.com/rs/zerolog"

	"pacm/internal/installtask"
	"pacm/internal/pacmerr"
	"pacm/internal/pkgmodel"
	"pacm/internal/signal"
)

// TaskEvent is a per-task StateChange the monitor fans out to its own
// subscribers, tagged with the package id it concerns.
type TaskEvent struct {
	ID     string
	Change installtask.StateChange
}

// Monitor groups tasks chosen by the caller and reports aggregate
// progress as they complete. It does not own the tasks; the manager's
// task list remains the sole owner.
type Monitor struct {
	mu        sync.Mutex
	total     int
	pending   map[string]*installtask.Task
	packages  []*pkgmodel.LocalPackage
	disposers map[string][]func()

	taskStateSig *signal.Signal[TaskEvent]
	progressSig  *signal.Signal[int]
	completeSig  *signal.Signal[[]*pkgmodel.LocalPackage]

	logger *zerolog.Logger
}

// New returns an empty Monitor ready to receive AddTask calls.
func New() *Monitor {
	return NewWithLogger(nil)
}

// NewWithLogger returns an empty Monitor that logs through logger.
// A nil logger falls back to a discard logger.
func NewWithLogger(logger *zerolog.Logger) *Monitor {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Monitor{
		pending:      make(map[string]*installtask.Task),
		disposers:    make(map[string][]func()),
		taskStateSig: signal.New[TaskEvent](),
		progressSig:  signal.New[int](),
		completeSig:  signal.New[[]*pkgmodel.LocalPackage](),
		logger:       logger,
	}
}

// AddTask registers a task with the monitor, subscribing to its Complete
// signal so the monitor can recompute aggregate progress. It fails if the
// task is not valid.
func (m *Monitor) AddTask(t *installtask.Task) error {
	if !t.Valid() {
		return pacmerr.New(pacmerr.InvalidPackage, t.ID(), "task is not valid")
	}
	m.mu.Lock()
	m.pending[t.ID()] = t
	m.total++
	m.packages = append(m.packages, t.Local())
	m.mu.Unlock()

	id := t.ID()
	disposeState := t.OnStateChange(func(c installtask.StateChange) {
		m.taskStateSig.Emit(TaskEvent{ID: id, Change: c})
	})
	disposeComplete := t.OnComplete(func() { m.onTaskComplete(id) })
	m.mu.Lock()
	m.disposers[t.ID()] = []func(){disposeState, disposeComplete}
	m.mu.Unlock()
	m.logger.Debug().Str("id", id).Msg("installmonitor: task added")
	return nil
}

func (m *Monitor) onTaskComplete(id string) {
	m.mu.Lock()
	for _, dispose := range m.disposers[id] {
		dispose()
	}
	delete(m.disposers, id)
	delete(m.pending, id)
	remaining := len(m.pending)
	total := m.total
	packages := append([]*pkgmodel.LocalPackage(nil), m.packages...)
	m.mu.Unlock()

	progress := 0
	if total > 0 {
		progress = 100 * (total - remaining) / total
	}
	m.logger.Debug().Str("id", id).Int("progress", progress).Int("remaining", remaining).Msg("installmonitor: task complete")
	m.progressSig.Emit(progress)

	if remaining == 0 {
		m.logger.Info().Int("packages", len(packages)).Msg("installmonitor: all complete")
		m.completeSig.Emit(packages)
	}
}

// StartAll calls start for every pending task, one after another on the
// calling goroutine; start decides whether each task runs concurrently.
func (m *Monitor) StartAll(start func(*installtask.Task)) {
	m.mu.Lock()
	tasks := make([]*installtask.Task, 0, len(m.pending))
	for _, t := range m.pending {
		tasks = append(tasks, t)
	}
	m.mu.Unlock()
	for _, t := range tasks {
		start(t)
	}
}

// CancelAll cancels every registered task.
func (m *Monitor) CancelAll() {
	m.mu.Lock()
	tasks := make([]*installtask.Task, 0, len(m.pending))
	for _, t := range m.pending {
		tasks = append(tasks, t)
	}
	m.mu.Unlock()
	for _, t := range tasks {
		t.Cancel()
	}
}

// IsComplete reports whether every registered task has reached a terminal
// state.
func (m *Monitor) IsComplete() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending) == 0
}

// OnTaskStateChange subscribes to per-task state transitions fanned out
// from every registered task and returns a disposer.
func (m *Monitor) OnTaskStateChange(h func(TaskEvent)) func() { return m.taskStateSig.Subscribe(h) }

// OnProgress subscribes to aggregate progress updates (0-100) and returns
// a disposer.
func (m *Monitor) OnProgress(h func(int)) func() { return m.progressSig.Subscribe(h) }

// OnComplete subscribes to the "all done" event, fired exactly once with
// every package the monitor tracked, and returns a disposer.
func (m *Monitor) OnComplete(h func([]*pkgmodel.LocalPackage)) func() {
	return m.completeSig.Subscribe(h)
}
