package auth

import (
	"context"

	"libraryapi/internal/session"
	"libraryapi/internal/user"
)

//go:generate mockgen -source=ports.go -destination=mock_ports.go -package=auth

type Users interface {
	Register(ctx context.Context, reg user.Registration) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
}

type RefreshTokens interface {
	Issue(ctx context.Context, userID string) (string, error)
	Consume(ctx context.Context, token string) (session.Session, error)
	Revoke(ctx context.Context, token string) error
}

type AccessTokens interface {
	IssueAccessToken(userID, role string) (string, int, error)
}
