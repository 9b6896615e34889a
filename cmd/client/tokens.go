package client

import (
	"sync"
	"time"
)

// Tokens is the locally held session.
type Tokens struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// TokenStore persists Tokens between requests. The Coordinator serializes
// writes; implementations only need to be safe for concurrent reads.
type TokenStore interface {
	Load() (Tokens, bool)
	Save(Tokens)
	Clear()
}

// MemoryTokenStore keeps tokens in memory.
type MemoryTokenStore struct {
	mu sync.RWMutex
	t  Tokens
	ok bool
}

func (s *MemoryTokenStore) Load() (Tokens, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.t, s.ok
}

func (s *MemoryTokenStore) Save(t Tokens) {
	s.mu.Lock()
	s.t, s.ok = t, true
	s.mu.Unlock()
}

func (s *MemoryTokenStore) Clear() {
	s.mu.Lock()
	s.t, s.ok = Tokens{}, false
	s.mu.Unlock()
}
