package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAdminDisabled      = errors.New("admin login disabled: no password hash configured")
)

func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword compares password with a bcrypt hash. An empty hash never
// matches.
func CheckPassword(hash, password string) error {
	if hash == "" {
		return ErrAdminDisabled
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrInvalidCredentials
	}
	if err != nil {
		return fmt.Errorf("compare password: %w", err)
	}
	return nil
}

// Authenticator checks the admin password and hands out sessions.
type Authenticator struct {
	hash     string
	sessions *SessionStore
}

func NewAuthenticator(hash string, sessions *SessionStore) *Authenticator {
	return &Authenticator{hash: hash, sessions: sessions}
}

func (a *Authenticator) Login(password string) (*Session, error) {
	if err := CheckPassword(a.hash, password); err != nil {
		return nil, err
	}
	return a.sessions.Create(), nil
}

func (a *Authenticator) Logout(token string) {
	a.sessions.Revoke(token)
}

func (a *Authenticator) Validate(token string) error {
	return a.sessions.Validate(token)
}
