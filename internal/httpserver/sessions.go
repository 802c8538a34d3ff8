package httpserver

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/tinytelemetry/reqchart/internal/chart"
	"github.com/tinytelemetry/reqchart/internal/metrics"
	"github.com/tinytelemetry/reqchart/internal/resize"
	"github.com/tinytelemetry/reqchart/internal/scene"
)

// ErrSessionNotFound is returned for unknown or unmounted sessions.
var ErrSessionNotFound = errors.New("httpserver: session not found")

// DatasetLoader returns the dataset a session renders.
type DatasetLoader func() (chart.Dataset, error)

// Session is a mounted chart fed by resize signals.
type Session struct {
	ID      string
	Created time.Time

	handle *scene.Handle
	signal *resize.Broadcaster
	coord  *resize.Coordinator
	load   DatasetLoader
	obs    *metrics.Recorder

	renderMu sync.Mutex
	closed   bool

	mu      sync.Mutex
	width   int
	lastErr error
}

// SessionInfo is the JSON view of a session.
type SessionInfo struct {
	ID      string    `json:"id"`
	Width   int       `json:"width"`
	Renders int       `json:"renders"`
	Pending bool      `json:"pending"`
	Created time.Time `json:"created"`
	Error   string    `json:"error,omitempty"`
}

func (s *Session) render(width int) {
	s.renderMu.Lock()
	defer s.renderMu.Unlock()
	if s.closed {
		return
	}

	start := time.Now()
	ds, err := s.load()
	if err == nil {
		_, err = s.handle.Render(ds, s.handle.Options().Layout(width))
	}

	s.mu.Lock()
	s.lastErr = err
	if err == nil {
		s.width = width
	}
	s.mu.Unlock()

	if err != nil {
		log.Printf("httpserver: session %s render at width %d failed: %v", s.ID, width, err)
		return
	}
	s.obs.ObserveRender("session", time.Since(start).Seconds())
}

// Info snapshots the session state.
func (s *Session) Info() SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	info := SessionInfo{
		ID:      s.ID,
		Width:   s.width,
		Renders: s.handle.Renders(),
		Pending: s.coord.Pending(),
		Created: s.Created,
	}
	if s.lastErr != nil {
		info.Error = s.lastErr.Error()
	}
	return info
}

// Handle exposes the mounted scene.
func (s *Session) Handle() *scene.Handle { return s.handle }

// SessionConfig holds the parameters shared by every session.
type SessionConfig struct {
	Options  chart.Options
	Debounce time.Duration
	Policy   resize.Policy
	Clock    clock.Clock
	Metrics  *metrics.Recorder
}

// SessionManager owns the mounted sessions.
type SessionManager struct {
	conf SessionConfig
	load DatasetLoader

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionManager creates an empty manager.
func NewSessionManager(load DatasetLoader, conf SessionConfig) *SessionManager {
	if conf.Clock == nil {
		conf.Clock = clock.New()
	}
	return &SessionManager{
		conf:     conf,
		load:     load,
		sessions: make(map[string]*Session),
	}
}

// Mount creates a session, renders it once at width and starts listening
// for resize signals.
func (m *SessionManager) Mount(width int) (*Session, error) {
	id := uuid.NewString()
	handle, err := scene.Mount("reqchart-"+id[:8], m.conf.Options)
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID:      id,
		Created: m.conf.Clock.Now(),
		handle:  handle,
		signal:  resize.NewBroadcaster(),
		load:    m.load,
		obs:     m.conf.Metrics,
	}
	s.render(width)
	if s.lastErr != nil {
		return nil, s.lastErr
	}

	s.coord = resize.New(s.signal, s.render, resize.Config{
		Debounce: m.conf.Debounce,
		Policy:   m.conf.Policy,
		Clock:    m.conf.Clock,
		OnSignal: m.conf.Metrics.ObserveResizeSignal,
	})
	if err := s.coord.Start(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[id] = s
	n := len(m.sessions)
	m.mu.Unlock()
	m.conf.Metrics.SetActiveSessions(n)
	return s, nil
}

// Get returns a mounted session.
func (m *SessionManager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Resize delivers a resize signal to the session.
func (m *SessionManager) Resize(id string, width int) (*Session, error) {
	s, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	s.signal.Emit(resize.Event{Width: width})
	return s, nil
}

// Unmount stops the session's coordinator and forgets it. No render of
// that session runs after Unmount returns.
func (m *SessionManager) Unmount(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	n := len(m.sessions)
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	s.close()
	m.conf.Metrics.SetActiveSessions(n)
	return nil
}

func (s *Session) close() {
	s.coord.Stop()
	s.renderMu.Lock()
	s.closed = true
	s.renderMu.Unlock()
}

// Refresh re-renders every session at its current width, as when the
// underlying data changes.
func (m *SessionManager) Refresh() {
	m.mu.RLock()
	list := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		list = append(list, s)
	}
	m.mu.RUnlock()

	for _, s := range list {
		s.mu.Lock()
		w := s.width
		s.mu.Unlock()
		s.render(w)
	}
}

// Len returns the number of mounted sessions.
func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close unmounts every session.
func (m *SessionManager) Close() {
	m.mu.Lock()
	list := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range list {
		s.close()
	}
	m.conf.Metrics.SetActiveSessions(0)
}
