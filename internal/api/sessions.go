package api

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"pharmadash/internal/engine"
	"pharmadash/internal/models"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrUnknownView     = errors.New("unknown view")
)

// View names exposed by the API.
const (
	ViewDrugs   = "drugs"
	ViewCompany = "company"
)

var viewSchemas = map[string]*engine.Schema[models.Record]{
	ViewDrugs:   engine.DrugTable,
	ViewCompany: engine.CompanyTable,
}

// UserSession is one analyst's set of table surfaces.
type UserSession struct {
	ID       string
	views    map[string]*engine.Session[models.Record]
	lastSeen time.Time
}

func (u *UserSession) view(name string) (*engine.Session[models.Record], error) {
	v, ok := u.views[name]
	if !ok {
		return nil, ErrUnknownView
	}
	return v, nil
}

// SessionStore keeps user sessions in memory and forgets idle ones.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*UserSession
	fetcher  engine.Fetcher[models.Record]
	ttl      time.Duration
	now      func() time.Time
}

func NewSessionStore(fetcher engine.Fetcher[models.Record], ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*UserSession),
		fetcher:  fetcher,
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *SessionStore) Create() *UserSession {
	u := &UserSession{
		ID:    uuid.NewString(),
		views: make(map[string]*engine.Session[models.Record], len(viewSchemas)),
	}
	for name, schema := range viewSchemas {
		u.views[name] = engine.NewSession(schema, s.fetcher)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u.lastSeen = s.now()
	s.sessions[u.ID] = u
	return u
}

func (s *SessionStore) Get(id string) (*UserSession, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrSessionNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	u.lastSeen = s.now()
	return u, nil
}

func (s *SessionStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	return ok
}

// Sweep removes sessions idle for longer than the TTL and returns how many
// were removed.
func (s *SessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, u := range s.sessions {
		if s.now().Sub(u.lastSeen) > s.ttl {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
