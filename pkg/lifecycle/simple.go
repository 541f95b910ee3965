// Package lifecycle provides minimal graceful-shutdown coordination for the
// router and matchmaker processes.
package lifecycle

import "go.uber.org/zap"

// Manager runs registered cleanup funcs in reverse registration order on
// Shutdown, so the last-started subsystem (e.g. a listener) tears down
// before the first-started one (e.g. a logger's sync).
type Manager struct {
	cleanup []func() error
	log     *zap.Logger
}

// NewManager creates an empty lifecycle manager.
func NewManager(log *zap.Logger) *Manager {
	return &Manager{log: log}
}

// AddCleanup registers a cleanup function to run on Shutdown.
func (m *Manager) AddCleanup(cleanup func() error) {
	m.cleanup = append(m.cleanup, cleanup)
}

// Shutdown executes all cleanup functions LIFO, logging but not aborting on
// individual failures so one bad cleanup doesn't block the rest.
func (m *Manager) Shutdown() {
	m.log.Info("starting graceful shutdown")
	for i := len(m.cleanup) - 1; i >= 0; i-- {
		if err := m.cleanup[i](); err != nil {
			m.log.Error("cleanup failed", zap.Error(err))
		}
	}
	m.log.Info("graceful shutdown complete")
}
