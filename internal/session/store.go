package session

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// Store is the process-wide session table. Entries are created lazily on
// first reference and evicted after the TTL elapses without access, so the
// table stays bounded instead of growing for the process lifetime.
type Store struct {
	mu    sync.Mutex
	cache *cache.Cache
}

// NewStore creates a session store whose entries expire ttl after their
// last access. Expired entries are purged every cleanup interval.
func NewStore(ttl, cleanup time.Duration) *Store {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if cleanup <= 0 {
		cleanup = 10 * time.Minute
	}
	return &Store{cache: cache.New(ttl, cleanup)}
}

// GetOrCreate returns the session for the given identifier, creating a fresh
// one in state none if the identifier has never been seen (or was evicted).
// Access refreshes the entry's TTL.
func (s *Store) GetOrCreate(sessionID string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if x, found := s.cache.Get(sessionID); found {
		sess := x.(*Session)
		s.cache.SetDefault(sessionID, sess)
		return sess
	}
	sess := newSession()
	s.cache.SetDefault(sessionID, sess)
	return sess
}
