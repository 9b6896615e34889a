package invite

import (
	"context"
	"sync"
	"time"

	"github.com/WillyWilliam00/gestione-fotocopie/cmd/identity"
)

// MemoryStore keeps invites in process memory.
type MemoryStore struct {
	mu     sync.Mutex
	byID   map[string]*Invite
	byHash map[string]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]*Invite), byHash: make(map[string]string)}
}

func (s *MemoryStore) Create(ctx context.Context, inv Invite, codeHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.byHash[codeHash]; dup {
		return identity.ConflictError{Op: "invite.Create", Field: "code"}
	}
	cp := inv
	s.byID[inv.ID] = &cp
	s.byHash[codeHash] = inv.ID
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Invite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.byID[id]
	if !ok {
		return Invite{}, identity.NotFoundError{Op: "invite.Get", Resource: "invite"}
	}
	return *inv, nil
}

func (s *MemoryStore) Consume(ctx context.Context, codeHash string, now time.Time) (Invite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byHash[codeHash]
	if !ok {
		return Invite{}, ErrInvalidInvite
	}
	inv := s.byID[id]
	if !inv.Usable(now) {
		return Invite{}, ErrInvalidInvite
	}
	inv.UsedCount++
	return *inv, nil
}

func (s *MemoryStore) Release(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if inv, ok := s.byID[id]; ok && inv.UsedCount > 0 {
		inv.UsedCount--
	}
	return nil
}

func (s *MemoryStore) Revoke(ctx context.Context, id string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.byID[id]
	if !ok {
		return identity.NotFoundError{Op: "invite.Revoke", Resource: "invite"}
	}
	if inv.RevokedAt == nil {
		t := now
		inv.RevokedAt = &t
	}
	return nil
}
