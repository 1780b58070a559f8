package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultIdleTimeout is how long an unused session survives in a Store.
const DefaultIdleTimeout = 30 * time.Minute

type entry struct {
	session  *Session
	lastUsed time.Time
}

// Store keeps sessions addressable by id and drops idle ones.
type Store struct {
	mu            sync.Mutex
	sessions      map[string]*entry
	idleTimeout   time.Duration
	maxResultBits uint64
	now           func() time.Time
}

// NewStore creates sessions limited to maxResultBits (see NewLimited).
func NewStore(idleTimeout time.Duration, maxResultBits uint64) *Store {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	return &Store{
		sessions:      map[string]*entry{},
		idleTimeout:   idleTimeout,
		maxResultBits: maxResultBits,
		now:           time.Now,
	}
}

// Create registers a new session and returns its id.
func (st *Store) Create() (string, *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()

	id := uuid.NewString()
	s := NewLimited(st.maxResultBits)
	st.sessions[id] = &entry{session: s, lastUsed: st.now()}
	return id, s
}

// Get returns the session for id and marks it used.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	e, ok := st.sessions[id]
	if !ok {
		return nil, false
	}
	if st.now().Sub(e.lastUsed) > st.idleTimeout {
		delete(st.sessions, id)
		return nil, false
	}
	e.lastUsed = st.now()
	return e.session, true
}

// GetOrCreate returns the session for id, creating a fresh one when id is
// empty or unknown. The returned id is the one the session is stored under.
func (st *Store) GetOrCreate(id string) (string, *Session) {
	if id != "" {
		if s, ok := st.Get(id); ok {
			return id, s
		}
	}
	return st.Create()
}

func (st *Store) Delete(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	_, ok := st.sessions[id]
	delete(st.sessions, id)
	return ok
}

// Sweep removes idle sessions and returns how many were dropped.
func (st *Store) Sweep() int {
	st.mu.Lock()
	defer st.mu.Unlock()

	dropped := 0
	now := st.now()
	for id, e := range st.sessions {
		if now.Sub(e.lastUsed) > st.idleTimeout {
			delete(st.sessions, id)
			dropped++
		}
	}
	return dropped
}

func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}
