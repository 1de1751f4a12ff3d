package conversation

import (
	"context"
	"slices"
	"sync"
	"time"
)

// Session is the in-progress report of one user. It exists from device
// selection until the record is stored or another action is started.
type Session struct {
	Action     Action
	DeviceID   int64
	DeviceName string
	// Selected holds predefined message ids in the order they were picked.
	Selected []int64
	// AwaitingText is set once the user asked to type a custom description.
	AwaitingText bool
	StartedAt    time.Time
	// ExpiresAt is zero when the store has no TTL.
	ExpiresAt time.Time
}

// Toggle flips membership of id and reports whether it is now selected.
func (s *Session) Toggle(id int64) bool {
	if i := slices.Index(s.Selected, id); i >= 0 {
		s.Selected = slices.Delete(s.Selected, i, i+1)
		return false
	}
	s.Selected = append(s.Selected, id)
	return true
}

func (s *Session) IsSelected(id int64) bool {
	return slices.Contains(s.Selected, id)
}

func (s *Session) clone() Session {
	c := *s
	c.Selected = slices.Clone(s.Selected)
	return c
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

// Store keeps sessions in process memory keyed by Telegram user id.
//
// Callers serialize all work for a user with Lock; Get hands out copies so a
// session only changes when the caller Puts it back.
type Store struct {
	mu       sync.Mutex
	sessions map[int64]*Session
	locks    map[int64]*userLock
	ttl      time.Duration
	now      func() time.Time
}

// NewStore creates a store. A zero ttl keeps sessions until they complete or
// are replaced.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[int64]*Session),
		locks:    make(map[int64]*userLock),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Lock acquires the per-user lock and returns its release function.
func (s *Store) Lock(userID int64) func() {
	s.mu.Lock()
	l, ok := s.locks[userID]
	if !ok {
		l = &userLock{}
		s.locks[userID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, userID)
		}
		s.mu.Unlock()
	}
}

// Get returns a copy of the user's session. Expired sessions are evicted and
// reported as missing.
func (s *Store) Get(userID int64) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return Session{}, false
	}
	if s.expired(sess) {
		delete(s.sessions, userID)
		return Session{}, false
	}
	return sess.clone(), true
}

// Put stores the session, replacing any previous one, and renews its expiry.
func (s *Store) Put(userID int64, sess Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ttl > 0 {
		sess.ExpiresAt = s.now().Add(s.ttl)
	}
	c := sess.clone()
	s.sessions[userID] = &c
}

func (s *Store) Delete(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// EvictExpired drops every expired session. Its signature fits the
// maintenance job task runner.
func (s *Store) EvictExpired(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, sess := range s.sessions {
		if s.expired(sess) {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}

func (s *Store) expired(sess *Session) bool {
	return !sess.ExpiresAt.IsZero() && !s.now().Before(sess.ExpiresAt)
}
