package session

import (
	"context"
	"time"

	"libraryapi/internal/platform/crypto"
)

type Service struct {
	repo Repository
	ttl  time.Duration
	now  func() time.Time
}

func NewService(repo Repository, ttl time.Duration) *Service {
	return &Service{repo: repo, ttl: ttl, now: time.Now}
}

// Issue creates a refresh token for the user and returns its plain value.
func (s *Service) Issue(ctx context.Context, userID string) (string, error) {
	token, err := crypto.NewRefreshToken()
	if err != nil {
		return "", err
	}
	sess := &Session{
		UserID:    userID,
		TokenHash: crypto.HashToken(token),
		ExpiresAt: s.now().Add(s.ttl),
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return "", err
	}
	return token, nil
}

// Consume redeems a refresh token. The token is deleted so it cannot be reused.
func (s *Service) Consume(ctx context.Context, token string) (Session, error) {
	return s.repo.Consume(ctx, crypto.HashToken(token))
}

// Revoke deletes a refresh token. Unknown tokens are ignored.
func (s *Service) Revoke(ctx context.Context, token string) error {
	return s.repo.DeleteByTokenHash(ctx, crypto.HashToken(token))
}

func (s *Service) ListByUserID(ctx context.Context, userID string) ([]Session, error) {
	sessions, err := s.repo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sessions == nil {
		sessions = []Session{}
	}
	return sessions, nil
}

func (s *Service) DeleteForUser(ctx context.Context, id int64, userID string) error {
	return s.repo.DeleteForUser(ctx, id, userID)
}

// CleanupExpired purges expired refresh tokens and reports how many were removed.
func (s *Service) CleanupExpired(ctx context.Context) (int64, error) {
	return s.repo.CleanupExpired(ctx)
}
