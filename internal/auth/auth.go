package auth

import (
	"errors"

	"libraryapi/internal/user"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthorized       = errors.New("unauthorized")
)

// Tokens is the credential pair handed to a client after login, registration or refresh.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// Session is the response of register and login.
type Session struct {
	User user.User `json:"user"`
	Tokens
}
