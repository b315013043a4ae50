package session

import (
	"context"
)

//go:generate mockgen -source=ports.go -destination=mock_ports.go -package=session

type Repository interface {
	Create(ctx context.Context, s *Session) error
	// Consume deletes an unexpired token and returns it. A token can be consumed once.
	Consume(ctx context.Context, tokenHash string) (Session, error)
	DeleteByTokenHash(ctx context.Context, tokenHash string) error
	ListByUserID(ctx context.Context, userID string) ([]Session, error)
	DeleteForUser(ctx context.Context, id int64, userID string) error
	CleanupExpired(ctx context.Context) (int64, error)
}
