package sessions

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrShuttingDown    = errors.New("session manager shutting down")
)

// Info is a point-in-time view of a live session
type Info struct {
	ID          string    `json:"id"`
	State       string    `json:"state"`
	SandboxPath string    `json:"sandbox_path,omitempty"`
	PID         int       `json:"pid,omitempty"`
	Cols        uint16    `json:"cols,omitempty"`
	Rows        uint16    `json:"rows,omitempty"`
	StartedAt   time.Time `json:"started_at"`
}

// Session is what the manager needs from a live terminal session
type Session interface {
	ID() string
	Info() Info
	// Terminate requests termination; it does not wait.
	Terminate()
	// Closed is closed once the session has fully released its resources.
	Closed() <-chan struct{}
}

// Manager tracks live sessions so they can be listed and shut down together
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]Session
	closing  bool
}

// NewManager creates a new session manager
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]Session),
	}
}

// Track registers s until the returned release func is called.
// It fails once Shutdown has started.
func (m *Manager) Track(s Session) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closing {
		return nil, ErrShuttingDown
	}
	id := s.ID()
	m.sessions[id] = s

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			if m.sessions[id] == s {
				delete(m.sessions, id)
			}
			m.mu.Unlock()
		})
	}, nil
}

// Get retrieves a session's info by ID
func (m *Manager) Get(id string) (Info, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok {
		return Info{}, ErrSessionNotFound
	}
	return s.Info(), nil
}

// Terminate requests termination of one session
func (m *Manager) Terminate(id string) error {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok {
		return ErrSessionNotFound
	}
	s.Terminate()
	return nil
}

// List returns info for all live sessions, oldest first
func (m *Manager) List() []Info {
	m.mu.RLock()
	infos := make([]Info, 0, len(m.sessions))
	for _, s := range m.sessions {
		infos = append(infos, s.Info())
	}
	m.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].StartedAt.Before(infos[j].StartedAt)
	})
	return infos
}

// Count returns the number of live sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Shutdown stops accepting sessions, terminates every live one, and waits
// for each to close or for ctx to expire.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closing = true
	sessions := make([]Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		s.Terminate()
	}
	for _, s := range sessions {
		select {
		case <-s.Closed():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
