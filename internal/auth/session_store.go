package auth

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// CleanupInterval is how often expired sessions are dropped
const CleanupInterval = time.Minute

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
)

type Session struct {
	Token     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// SessionStore keeps admin sessions in memory. Sessions do not survive a
// restart; the admin logs in again.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session // token -> session
	ttl      time.Duration
	now      func() time.Time

	stopCleanup chan struct{}
	closeOnce   sync.Once
	wg          sync.WaitGroup
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	s := &SessionStore{
		sessions:    make(map[string]*Session),
		ttl:         ttl,
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}

	s.wg.Add(1)
	go s.cleanupLoop()

	return s
}

func (s *SessionStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.expireSessions()
		case <-s.stopCleanup:
			return
		}
	}
}

func (s *SessionStore) expireSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for token, sess := range s.sessions {
		if sess.IsExpired(now) {
			delete(s.sessions, token)
		}
	}
}

// Create starts a new session and returns it.
func (s *SessionStore) Create() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sess := &Session{
		Token:     uuid.NewString(),
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	s.sessions[sess.Token] = sess
	cp := *sess
	return &cp
}

// Validate reports whether token names a live session.
func (s *SessionStore) Validate(token string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[token]
	if !ok {
		return ErrSessionNotFound
	}
	if sess.IsExpired(s.now()) {
		return ErrSessionExpired
	}
	return nil
}

func (s *SessionStore) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}

func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Close stops the background cleanup and waits for it to finish. Repeated
// calls are no-ops.
func (s *SessionStore) Close() error {
	s.closeOnce.Do(func() { close(s.stopCleanup) })
	s.wg.Wait()
	return nil
}
