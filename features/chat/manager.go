package chat

import (
	"log/slog"
	"sync"
)

// Manager tracks live sessions for logging and the stats endpoint.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	logger   *slog.Logger
}

func NewManager(logger *slog.Logger) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		logger:   logger,
	}
}

func (m *Manager) Add(s *Session) {
	m.mu.Lock()
	m.sessions[s.ID()] = s
	count := len(m.sessions)
	m.mu.Unlock()
	m.logger.Info("client connected", "session_id", s.ID(), "active_sessions", count)
}

func (m *Manager) Remove(s *Session) {
	m.mu.Lock()
	delete(m.sessions, s.ID())
	count := len(m.sessions)
	m.mu.Unlock()
	m.logger.Info("client disconnected", "session_id", s.ID(), "active_sessions", count)
}

func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
