package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	sessionmodel "github.com/voicerelay/backend/internal/model/session"
)

// ErrSessionNotFound is internal: the HTTP surface never exposes it, unknown
// ids are silently replaced by GetOrCreate instead.
var ErrSessionNotFound = errors.New("session not found")

// Store owns every in-memory session. The outer RWMutex guards the map;
// each entry carries its own mutex so concurrent chunk uploads for one
// session serialize their appends without blocking other sessions.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	idleTTL  time.Duration
}

type entry struct {
	mu       sync.Mutex
	session  sessionmodel.Session
	lastSeen time.Time
}

// NewStore builds the store. idleTTL of zero keeps sessions for the process
// lifetime; a positive value makes Run evict sessions idle for that long.
func NewStore(idleTTL time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*entry),
		idleTTL:  idleTTL,
	}
}

func newSessionID() string {
	return "sess_" + uuid.NewString()
}

// GetOrCreate returns a snapshot of the session for id, minting a fresh
// session when id is empty or unknown. A caller-supplied but unknown id is
// replaced, never an error.
func (s *Store) GetOrCreate(id string) sessionmodel.Session {
	if id != "" {
		s.mu.RLock()
		e, ok := s.sessions[id]
		s.mu.RUnlock()
		if ok {
			return s.snapshot(e)
		}
	}

	fresh := &entry{
		session: sessionmodel.Session{
			ID:        newSessionID(),
			CreatedAt: time.Now().UTC(),
			Segments:  make([]sessionmodel.Segment, 0, 16),
		},
		lastSeen: time.Now(),
	}

	s.mu.Lock()
	s.sessions[fresh.session.ID] = fresh
	s.mu.Unlock()

	return s.snapshot(fresh)
}

// AppendSegment appends one immutable segment to the session, serialized
// per session id.
func (s *Store) AppendSegment(id string, seg sessionmodel.Segment) error {
	e := s.lookup(id)
	if e == nil {
		return ErrSessionNotFound
	}

	e.mu.Lock()
	e.session.Segments = append(e.session.Segments, seg)
	e.lastSeen = time.Now()
	e.mu.Unlock()
	return nil
}

// SetRecap overwrites the session's latest recap.
func (s *Store) SetRecap(id string, r sessionmodel.Recap) error {
	e := s.lookup(id)
	if e == nil {
		return ErrSessionNotFound
	}

	e.mu.Lock()
	e.session.LastRecap = &r
	e.lastSeen = time.Now()
	e.mu.Unlock()
	return nil
}

// Snapshot returns a copy of the session, or false when id is unknown.
func (s *Store) Snapshot(id string) (sessionmodel.Session, bool) {
	e := s.lookup(id)
	if e == nil {
		return sessionmodel.Session{}, false
	}
	return s.snapshot(e), true
}

// Len reports how many sessions are alive.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Run sweeps idle sessions until ctx is cancelled. It returns immediately
// when no idle TTL is configured.
func (s *Store) Run(ctx context.Context) {
	if s.idleTTL <= 0 {
		return
	}

	interval := s.idleTTL / 4
	if interval < 30*time.Second {
		interval = 30 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if evicted := s.evictIdle(now); evicted > 0 {
				log.Printf("[session] evicted %d idle sessions", evicted)
			}
		}
	}
}

func (s *Store) evictIdle(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, e := range s.sessions {
		e.mu.Lock()
		idle := now.Sub(e.lastSeen) > s.idleTTL
		e.mu.Unlock()
		if idle {
			delete(s.sessions, id)
			evicted++
		}
	}
	return evicted
}

func (s *Store) lookup(id string) *entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[id]
}

func (s *Store) snapshot(e *entry) sessionmodel.Session {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.lastSeen = time.Now()

	copied := e.session
	copied.Segments = make([]sessionmodel.Segment, len(e.session.Segments))
	copy(copied.Segments, e.session.Segments)
	if e.session.LastRecap != nil {
		recap := *e.session.LastRecap
		copied.LastRecap = &recap
	}
	return copied
}
