// Package session tracks whether an archival run is in progress.
package session

import (
	"encoding/json"
	"errors"
	"sync"
	"time"
)

// TimeLayout renders session timestamps as DD/MM/YYYY HH:MM:SS.
const TimeLayout = "02/01/2006 15:04:05"

// Session errors.
var (
	ErrAlreadyActive = errors.New("an archival session is already active")
	ErrNotActive     = errors.New("no archival session is active")
	ErrNotFound      = errors.New("no archival session in progress")
)

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// Session is one mirroring run.
type Session struct {
	StartTime time.Time
	EndTime   *time.Time
	Path      string
}

// Active reports whether the session has not ended.
func (s Session) Active() bool {
	return s.EndTime == nil
}

// MarshalJSON formats timestamps with TimeLayout; end_time is null while active.
func (s Session) MarshalJSON() ([]byte, error) {
	out := struct {
		StartTime string  `json:"start_time"`
		EndTime   *string `json:"end_time"`
		Path      string  `json:"path"`
	}{
		StartTime: s.StartTime.Format(TimeLayout),
		Path:      s.Path,
	}
	if s.EndTime != nil {
		end := s.EndTime.Format(TimeLayout)
		out.EndTime = &end
	}
	//nolint:wrapcheck // encoding a plain struct.
	return json.Marshal(out)
}

// Manager serializes session transitions behind one lock. At most one
// session is active at a time.
type Manager struct {
	mu      sync.Mutex
	clock   Clock
	root    string
	current *Session
}

// NewManager constructs a Manager. root is reported as the session path.
func NewManager(clock Clock, root string) *Manager {
	return &Manager{clock: clock, root: root}
}

// Start opens a new session unless one is already active.
func (m *Manager) Start() (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil && m.current.Active() {
		return m.current.clone(), ErrAlreadyActive
	}
	m.current = &Session{StartTime: m.clock.Now(), Path: m.root}
	return m.current.clone(), nil
}

// End closes the active session.
func (m *Manager) End() (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil || !m.current.Active() {
		return Session{}, ErrNotActive
	}
	now := m.clock.Now()
	m.current.EndTime = &now
	return m.current.clone(), nil
}

// Current returns the active session. Once a session has ended the manager
// is idle again and ErrNotFound is returned.
func (m *Manager) Current() (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil || !m.current.Active() {
		return Session{}, ErrNotFound
	}
	return m.current.clone(), nil
}

// IsActive reports whether a session is running.
func (m *Manager) IsActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil && m.current.Active()
}

func (s *Session) clone() Session {
	cp := *s
	if s.EndTime != nil {
		end := *s.EndTime
		cp.EndTime = &end
	}
	return cp
}
