package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libraryapi/internal/httpx"
	"libraryapi/internal/platform/crypto"
	"libraryapi/internal/platform/logging"
	"libraryapi/internal/session"
	"libraryapi/internal/user"
)

type mocks struct {
	users   *MockUsers
	refresh *MockRefreshTokens
	access  *MockAccessTokens
}

func newService(t *testing.T) (*Service, mocks) {
	ctrl := gomock.NewController(t)
	m := mocks{
		users:   NewMockUsers(ctrl),
		refresh: NewMockRefreshTokens(ctrl),
		access:  NewMockAccessTokens(ctrl),
	}
	return NewService(m.users, m.refresh, m.access), m
}

func (m mocks) expectTokens(userID, role string) {
	m.access.EXPECT().IssueAccessToken(userID, role).Return("access", 900, nil)
	m.refresh.EXPECT().Issue(gomock.Any(), userID).Return("refresh", nil)
}

func TestService_Register(t *testing.T) {
	svc, m := newService(t)

	m.users.EXPECT().Register(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, reg user.Registration) (user.User, error) {
		assert.True(t, crypto.VerifyPassword(reg.HashedPassword, "secret1"))
		assert.Equal(t, user.RoleAdmin, reg.RequestedRole)
		assert.True(t, reg.CallerIsAdmin)
		return user.User{ID: "u-1", Role: user.RoleAdmin}, nil
	})
	m.expectTokens("u-1", user.RoleAdmin)

	sess, err := svc.Register(context.Background(), RegisterInput{Name: "Ada", Email: "ada@example.com", Password: "secret1", Role: user.RoleAdmin}, true)
	require.NoError(t, err)
	assert.Equal(t, "u-1", sess.User.ID)
	assert.Equal(t, "access", sess.AccessToken)
	assert.Equal(t, "refresh", sess.RefreshToken)
	assert.Equal(t, "Bearer", sess.TokenType)
}

func TestService_Login(t *testing.T) {
	hash, err := crypto.HashPassword("secret1")
	require.NoError(t, err)
	stored := user.User{ID: "u-1", Email: "ada@example.com", Password: hash, Role: user.RoleUser}

	t.Run("valid", func(t *testing.T) {
		svc, m := newService(t)
		m.users.EXPECT().GetByEmail(gomock.Any(), "ada@example.com").Return(stored, nil)
		m.expectTokens("u-1", user.RoleUser)

		sess, err := svc.Login(context.Background(), "ada@example.com", "secret1")
		require.NoError(t, err)
		assert.Equal(t, 900, sess.ExpiresIn)
	})

	t.Run("wrong password", func(t *testing.T) {
		svc, m := newService(t)
		m.users.EXPECT().GetByEmail(gomock.Any(), gomock.Any()).Return(stored, nil)

		_, err := svc.Login(context.Background(), "ada@example.com", "nope")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		svc, m := newService(t)
		m.users.EXPECT().GetByEmail(gomock.Any(), gomock.Any()).Return(user.User{}, user.ErrNotFound)

		_, err := svc.Login(context.Background(), "who@example.com", "secret1")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestService_Refresh(t *testing.T) {
	t.Run("rotates", func(t *testing.T) {
		svc, m := newService(t)
		m.refresh.EXPECT().Consume(gomock.Any(), "old").Return(session.Session{UserID: "u-1"}, nil)
		m.users.EXPECT().GetByID(gomock.Any(), "u-1").Return(user.User{ID: "u-1", Role: user.RoleAdmin}, nil)
		m.expectTokens("u-1", user.RoleAdmin)

		tokens, err := svc.Refresh(context.Background(), "old")
		require.NoError(t, err)
		assert.Equal(t, "refresh", tokens.RefreshToken)
	})

	t.Run("reused token", func(t *testing.T) {
		svc, m := newService(t)
		m.refresh.EXPECT().Consume(gomock.Any(), "old").Return(session.Session{}, session.ErrNotFound)

		_, err := svc.Refresh(context.Background(), "old")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("store failure is not unauthorized", func(t *testing.T) {
		svc, m := newService(t)
		boom := errors.New("db down")
		m.refresh.EXPECT().Consume(gomock.Any(), "old").Return(session.Session{}, boom)

		_, err := svc.Refresh(context.Background(), "old")
		assert.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, ErrUnauthorized)
	})
}

func TestHTTPHandler_Register(t *testing.T) {
	t.Run("optional admin identity is forwarded", func(t *testing.T) {
		svc, m := newService(t)
		handler := NewHTTPHandler(svc, logging.Discard())

		m.users.EXPECT().Register(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, reg user.Registration) (user.User, error) {
			assert.True(t, reg.CallerIsAdmin)
			return user.User{ID: "u-2", Role: user.RoleAdmin}, nil
		})
		m.expectTokens("u-2", user.RoleAdmin)

		r := httptest.NewRequest(http.MethodPost, "/api/auth/register",
			strings.NewReader(`{"name":"Grace","email":"grace@example.com","password":"secret1","role":"admin"}`))
		r = r.WithContext(httpx.ContextWithIdentity(r.Context(), httpx.Identity{UserID: "admin-1", Role: user.RoleAdmin}))
		w := httptest.NewRecorder()
		handler.Register(w, r)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), `"access_token":"access"`)
		assert.Contains(t, w.Body.String(), `"role":"admin"`)
	})

	t.Run("duplicate email", func(t *testing.T) {
		svc, m := newService(t)
		handler := NewHTTPHandler(svc, logging.Discard())
		m.users.EXPECT().Register(gomock.Any(), gomock.Any()).Return(user.User{}, user.ErrAlreadyExists)

		w := httptest.NewRecorder()
		handler.Register(w, httptest.NewRequest(http.MethodPost, "/api/auth/register",
			strings.NewReader(`{"name":"Grace","email":"grace@example.com","password":"secret1"}`)))

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("invalid role", func(t *testing.T) {
		svc, _ := newService(t)
		handler := NewHTTPHandler(svc, logging.Discard())

		w := httptest.NewRecorder()
		handler.Register(w, httptest.NewRequest(http.MethodPost, "/api/auth/register",
			strings.NewReader(`{"name":"Grace","email":"grace@example.com","password":"secret1","role":"root"}`)))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "role must be admin or user")
	})
}

func TestHTTPHandler_LoginRefreshLogout(t *testing.T) {
	svc, m := newService(t)
	handler := NewHTTPHandler(svc, logging.Discard())

	m.users.EXPECT().GetByEmail(gomock.Any(), gomock.Any()).Return(user.User{}, user.ErrNotFound)
	w := httptest.NewRecorder()
	handler.Login(w, httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"x@example.com","password":"p"}`)))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	m.refresh.EXPECT().Consume(gomock.Any(), "stale").Return(session.Session{}, session.ErrNotFound)
	w = httptest.NewRecorder()
	handler.Refresh(w, httptest.NewRequest(http.MethodPost, "/api/auth/refresh", strings.NewReader(`{"refresh_token":"stale"}`)))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	m.refresh.EXPECT().Revoke(gomock.Any(), "live").Return(nil)
	w = httptest.NewRecorder()
	handler.Logout(w, httptest.NewRequest(http.MethodPost, "/api/auth/logout", strings.NewReader(`{"refresh_token":"live"}`)))
	assert.Equal(t, http.StatusNoContent, w.Code)
}
