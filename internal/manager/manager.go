package manager

import (
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"pacm/internal/installtask"
	"pacm/internal/pkgmodel"
	"pacm/internal/transport"
)

// Manager owns every local and remote package record, the install tasks
// currently running against them, and the collaborators (downloader,
// HTTP client, event publisher) those tasks and queries need. All
// mutable state lives behind mu; the original source's per-package
// delegate objects are replaced by the single EventPublisher each
// mutation reports through.
type Manager struct {
	mu sync.RWMutex

	opts Options

	localPackages  map[string]*pkgmodel.LocalPackage
	remotePackages map[string]*pkgmodel.RemotePackage
	tasks          map[string]*installtask.Task

	publisher  EventPublisher
	downloader transport.Downloader
	httpClient *http.Client
	logger     *zerolog.Logger

	startTime time.Time
}

// Options returns a copy of the manager's active options.
func (m *Manager) Options() Options {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.opts
}

// HasActiveTasks reports whether any install task is currently running.
// Query and initialization operations refuse to proceed while true.
func (m *Manager) HasActiveTasks() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tasks) > 0
}

// Uptime returns how long the manager has been constructed.
func (m *Manager) Uptime() time.Duration {
	return time.Since(m.startTime)
}

// publish reports an event without blocking mutation of manager state;
// implementations are required to be lightweight and non-blocking.
func (m *Manager) publish(e Event) {
	m.publisher.Publish(e)
}

// log returns the manager's logger, never nil.
func (m *Manager) log() *zerolog.Logger {
	return m.logger
}
