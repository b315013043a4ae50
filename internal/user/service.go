package user

import (
	"context"
	"errors"
	"strings"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Registration is the input of Register. Password must already be hashed.
type Registration struct {
	Name           string
	Email          string
	HashedPassword string
	RequestedRole  string
	CallerIsAdmin  bool
}

func (s *Service) Register(ctx context.Context, reg Registration) (User, error) {
	email := strings.ToLower(strings.TrimSpace(reg.Email))

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return User{}, ErrAlreadyExists
	} else if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}

	adminCount := 0
	if reg.RequestedRole == RoleAdmin && !reg.CallerIsAdmin {
		n, err := s.repo.CountAdmins(ctx)
		if err != nil {
			return User{}, err
		}
		adminCount = n
	}

	newUser := &User{
		Name:     strings.TrimSpace(reg.Name),
		Email:    email,
		Password: reg.HashedPassword,
		Role:     AssignRole(reg.RequestedRole, adminCount, reg.CallerIsAdmin),
	}
	if err := s.repo.Create(ctx, newUser); err != nil {
		return User{}, err
	}
	return *newUser, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}
