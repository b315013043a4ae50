package auth

import (
	"context"
	"errors"

	"libraryapi/internal/platform/crypto"
	"libraryapi/internal/session"
	"libraryapi/internal/user"
)

type Service struct {
	users   Users
	refresh RefreshTokens
	access  AccessTokens
}

func NewService(users Users, refresh RefreshTokens, access AccessTokens) *Service {
	return &Service{users: users, refresh: refresh, access: access}
}

// RegisterInput carries a registration request. Password is in clear text.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

func (s *Service) issue(ctx context.Context, u user.User) (Tokens, error) {
	accessToken, expiresIn, err := s.access.IssueAccessToken(u.ID, u.Role)
	if err != nil {
		return Tokens{}, err
	}
	refreshToken, err := s.refresh.Issue(ctx, u.ID)
	if err != nil {
		return Tokens{}, err
	}
	return Tokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    expiresIn,
		TokenType:    "Bearer",
	}, nil
}

// Register creates an account and signs it in. callerIsAdmin reflects the
// optional identity of the request.
func (s *Service) Register(ctx context.Context, in RegisterInput, callerIsAdmin bool) (Session, error) {
	hashed, err := crypto.HashPassword(in.Password)
	if err != nil {
		return Session{}, err
	}

	u, err := s.users.Register(ctx, user.Registration{
		Name:           in.Name,
		Email:          in.Email,
		HashedPassword: hashed,
		RequestedRole:  in.Role,
		CallerIsAdmin:  callerIsAdmin,
	})
	if err != nil {
		return Session{}, err
	}

	tokens, err := s.issue(ctx, u)
	if err != nil {
		return Session{}, err
	}
	return Session{User: u, Tokens: tokens}, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}
	if !crypto.VerifyPassword(u.Password, password) {
		return Session{}, ErrInvalidCredentials
	}

	tokens, err := s.issue(ctx, u)
	if err != nil {
		return Session{}, err
	}
	return Session{User: u, Tokens: tokens}, nil
}

// Refresh redeems a refresh token and rotates it. The presented token is
// invalid afterwards, whatever the outcome.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	sess, err := s.refresh.Consume(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return Tokens{}, ErrUnauthorized
		}
		return Tokens{}, err
	}

	u, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return Tokens{}, ErrUnauthorized
		}
		return Tokens{}, err
	}
	return s.issue(ctx, u)
}

func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	return s.refresh.Revoke(ctx, refreshToken)
}
