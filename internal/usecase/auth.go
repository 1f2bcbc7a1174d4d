package usecase

import (
	"fmt"

	domainErrors "github.com/polkiloo/labtracker/internal/domain/errors"
	pkgAuth "github.com/polkiloo/labtracker/internal/pkg/auth"
)

// AuthUseCase guards the app behind the shared lab password.
type AuthUseCase struct {
	passwordHash string
	hasher       pkgAuth.PasswordHasher
	tokens       pkgAuth.Strategy
}

// NewAuthUseCase hashes the lab password once so requests never compare
// against the plain text.
func NewAuthUseCase(password string, hasher pkgAuth.PasswordHasher, strategy pkgAuth.Strategy) (*AuthUseCase, error) {
	if password == "" {
		return nil, fmt.Errorf("lab password: %w", domainErrors.ErrInvalidPassword)
	}
	hash, err := hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash lab password: %w", err)
	}
	return &AuthUseCase{passwordHash: hash, hasher: hasher, tokens: strategy}, nil
}

// Login checks password and returns the session token on success.
func (u *AuthUseCase) Login(password string) (string, error) {
	if !u.VerifyPassword(password) {
		return "", domainErrors.ErrInvalidPassword
	}
	return u.tokens.IssueToken(pkgAuth.SessionSubject)
}

// VerifyPassword reports whether password matches the lab password.
func (u *AuthUseCase) VerifyPassword(password string) bool {
	if password == "" {
		return false
	}
	return u.hasher.Compare(u.passwordHash, password) == nil
}

// ParseToken validates a session cookie value.
func (u *AuthUseCase) ParseToken(token string) error {
	if token == "" {
		return pkgAuth.ErrInvalidToken
	}
	subject, err := u.tokens.ParseToken(token)
	if err != nil {
		return err
	}
	if subject != pkgAuth.SessionSubject {
		return pkgAuth.ErrInvalidToken
	}
	return nil
}
