package session

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore is a mutex-guarded Store for tests and database-less runs.
// The single lock makes Rotate atomic with respect to every other call.
type MemoryStore struct {
	mu     sync.Mutex
	byHash map[string]*Record
	byID   map[string]*Record
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byHash: make(map[string]*Record),
		byID:   make(map[string]*Record),
	}
}

func (s *MemoryStore) Create(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(rec)
}

func (s *MemoryStore) GetByHash(ctx context.Context, secretHash string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.byHash[secretHash]
	if !ok {
		return Record{}, ErrTokenNotFound
	}
	return *r, nil
}

func (s *MemoryStore) Rotate(ctx context.Context, now time.Time, oldHash string, next Record) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.byHash[oldHash]
	if !ok {
		return Record{}, ErrTokenNotFound
	}
	if err := old.check(now); err != nil {
		return Record{}, err
	}

	next.UserID = old.UserID
	if err := s.insertLocked(next); err != nil {
		return Record{}, err
	}

	revokedAt, replacedBy, reason := now, next.ID, ReasonRotation
	old.RevokedAt = &revokedAt
	old.ReplacedBy = &replacedBy
	old.RevocationReason = &reason

	return next, nil
}

func (s *MemoryStore) Revoke(ctx context.Context, now time.Time, secretHash string, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, ok := s.byHash[secretHash]; ok {
		revokeLocked(r, now, reason)
	}
	return nil
}

func (s *MemoryStore) RevokeAllForUsers(ctx context.Context, now time.Time, userIDs []string, reason string) (int64, error) {
	owners := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		owners[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, r := range s.byID {
		if _, ok := owners[r.UserID]; ok && r.RevokedAt == nil {
			revokeLocked(r, now, reason)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, r := range s.byID {
		if r.ExpiresAt.Before(before) {
			delete(s.byID, id)
			delete(s.byHash, r.SecretHash)
			n++
		}
	}
	return n, nil
}

// Len reports how many records are stored.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

func (s *MemoryStore) insertLocked(rec Record) error {
	if _, dup := s.byHash[rec.SecretHash]; dup {
		return fmt.Errorf("session: duplicate secret hash")
	}
	if _, dup := s.byID[rec.ID]; dup {
		return fmt.Errorf("session: duplicate record id %s", rec.ID)
	}
	r := rec
	s.byHash[r.SecretHash] = &r
	s.byID[r.ID] = &r
	return nil
}

func revokeLocked(r *Record, now time.Time, reason string) {
	if r.RevokedAt == nil {
		at := now
		r.RevokedAt = &at
	}
	if r.RevocationReason == nil {
		rs := reason
		r.RevocationReason = &rs
	}
}
