package session

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/remoteframe/fbridge/internal/fb"
)

// Registry maps display numbers to live sessions. Capacity is fixed at
// construction; displays are a build-time configuration, not a growing
// set. Lookups are safe against concurrent connect and disconnect, but
// a returned session is only known current for the operation in hand —
// callers re-resolve on every call instead of caching.
type Registry struct {
	log *zap.Logger

	mu       sync.RWMutex
	sessions []*Session
}

// NewRegistry creates a registry for maxDisplays displays.
func NewRegistry(maxDisplays int, log *zap.Logger) *Registry {
	if maxDisplays < 1 {
		maxDisplays = 1
	}
	return &Registry{
		log:      log,
		sessions: make([]*Session, maxDisplays),
	}
}

// MaxDisplays returns the registry capacity.
func (r *Registry) MaxDisplays() int {
	return len(r.sessions)
}

// Find returns the session for a display. The second return is false
// when the display is out of range or has no session.
func (r *Registry) Find(display int) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if display < 0 || display >= len(r.sessions) {
		return nil, false
	}
	s := r.sessions[display]
	if s == nil {
		return nil, false
	}
	return s, true
}

// Create installs a fresh session for a display. A display with a live
// session cannot be recreated; a closed leftover is replaced.
func (r *Registry) Create(display int, cfg Config) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if display < 0 || display >= len(r.sessions) {
		return nil, fmt.Errorf("display %d outside [0, %d): %w",
			display, len(r.sessions), fb.ErrInvalidArgument)
	}
	if existing := r.sessions[display]; existing != nil && existing.State() != StateClosed {
		return nil, fmt.Errorf("display %d already has session %s: %w",
			display, existing.ID, fb.ErrBusy)
	}

	return r.installLocked(display, cfg), nil
}

// FindOrCreate returns the live session for a display, installing a
// fresh one in the Listening state when the display is vacant or holds
// a closed leftover. Find-then-create races collapse here: concurrent
// callers for the same display all receive the same session.
func (r *Registry) FindOrCreate(display int, cfg Config) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if display < 0 || display >= len(r.sessions) {
		return nil, fmt.Errorf("display %d outside [0, %d): %w",
			display, len(r.sessions), fb.ErrInvalidArgument)
	}
	if existing := r.sessions[display]; existing != nil && existing.State() != StateClosed {
		return existing, nil
	}

	s := r.installLocked(display, cfg)
	if err := s.Transition(StateListening); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *Registry) installLocked(display int, cfg Config) *Session {
	s := New(display, cfg, r.log)
	r.sessions[display] = s
	r.log.Info("session registered",
		zap.Int("display", display),
		zap.String("session_id", s.ID))
	return s
}

// Remove drops the registration for a display, but only if s is still
// the current occupant. A teardown racing a reconnect must not evict
// the newer session.
func (r *Registry) Remove(display int, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if display < 0 || display >= len(r.sessions) {
		return
	}
	if r.sessions[display] != s {
		return
	}
	r.sessions[display] = nil
	r.log.Info("session removed",
		zap.Int("display", display),
		zap.String("session_id", s.ID))
}

// Snapshot returns the state of every registered session.
func (r *Registry) Snapshot() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.sessions))
	for _, s := range r.sessions {
		if s != nil {
			infos = append(infos, s.Snapshot())
		}
	}
	return infos
}
