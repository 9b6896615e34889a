package session

import (
	"context"
	"time"

	"github.com/WillyWilliam00/gestione-fotocopie/cmd/identity/ids"
	"github.com/WillyWilliam00/gestione-fotocopie/cmd/security/token"
)

// Service implements the refresh-credential lifecycle on top of a Store.
type Service struct {
	cfg   Config
	store Store
}

// Issued is a freshly minted refresh credential. Secret is shown to the
// client exactly once and never logged.
type Issued struct {
	ID        string
	UserID    string
	Secret    string
	ExpiresAt time.Time
}

// NewService constructs a Service.
func NewService(cfg Config, store Store) *Service {
	return &Service{cfg: cfg, store: store}
}

// Config returns the service configuration.
func (s *Service) Config() Config { return s.cfg }

// Issue creates a new active refresh credential for userID (login).
func (s *Service) Issue(ctx context.Context, now time.Time, userID string) (Issued, error) {
	rec, secret, err := s.newRecord(now)
	if err != nil {
		return Issued{}, err
	}
	rec.UserID = userID

	if err := s.store.Create(ctx, rec); err != nil {
		return Issued{}, err
	}
	return Issued{ID: rec.ID, UserID: userID, Secret: secret, ExpiresAt: rec.ExpiresAt}, nil
}

// Rotate exchanges a presented secret for its successor.
//
// Failures, in order: ErrTokenNotFound, ErrTokenRevoked, ErrTokenExpired.
// A replayed predecessor only fails; the successor stays usable.
func (s *Service) Rotate(ctx context.Context, now time.Time, secret string) (Issued, error) {
	secret, ok := token.Normalize(secret)
	if !ok {
		return Issued{}, ErrTokenNotFound
	}

	next, plain, err := s.newRecord(now)
	if err != nil {
		return Issued{}, err
	}

	stored, err := s.store.Rotate(ctx, now, token.HashSecretHex(secret), next)
	if err != nil {
		return Issued{}, err
	}
	return Issued{ID: stored.ID, UserID: stored.UserID, Secret: plain, ExpiresAt: stored.ExpiresAt}, nil
}

// Revoke revokes the credential matching secret. Blank and unknown secrets are a no-op.
func (s *Service) Revoke(ctx context.Context, now time.Time, secret string) error {
	secret, ok := token.Normalize(secret)
	if !ok {
		return nil
	}
	return s.store.Revoke(ctx, now, token.HashSecretHex(secret), ReasonLogout)
}

// RevokeUsers revokes every active credential owned by userIDs.
func (s *Service) RevokeUsers(ctx context.Context, now time.Time, userIDs []string, reason string) (int64, error) {
	return s.store.RevokeAllForUsers(ctx, now, userIDs, reason)
}

// Purge deletes records that expired more than the retention window ago.
func (s *Service) Purge(ctx context.Context, now time.Time) (int64, error) {
	return s.store.PurgeExpired(ctx, now.Add(-s.cfg.Retention))
}

func (s *Service) newRecord(now time.Time) (Record, string, error) {
	plain, hash, err := token.NewOpaque(s.cfg.RefreshTokenBytes)
	if err != nil {
		return Record{}, "", err
	}
	id, err := ids.NewULID(now)
	if err != nil {
		return Record{}, "", err
	}
	return Record{
		ID:         id,
		SecretHash: hash,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.cfg.RefreshTTL),
	}, plain, nil
}
