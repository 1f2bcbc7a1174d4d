package test

import (
	domainErrors "github.com/polkiloo/labtracker/internal/domain/errors"
	pkgAuth "github.com/polkiloo/labtracker/internal/pkg/auth"
)

// TokenParserStub accepts exactly one session token.
type TokenParserStub struct {
	Valid string
}

// ParseToken returns ErrInvalidToken for every token other than Valid.
func (s TokenParserStub) ParseToken(token string) error {
	if s.Valid == "" || token != s.Valid {
		return pkgAuth.ErrInvalidToken
	}
	return nil
}

// AuthFacadeStub logs in with a fixed password and token.
type AuthFacadeStub struct {
	TokenParserStub
	Password string
	LoginErr error
}

// Login returns Valid for the configured password.
func (s AuthFacadeStub) Login(password string) (string, error) {
	if s.LoginErr != nil {
		return "", s.LoginErr
	}
	if password != s.Password {
		return "", domainErrors.ErrInvalidPassword
	}
	return s.Valid, nil
}

// VerifyPassword compares against the configured password.
func (s AuthFacadeStub) VerifyPassword(password string) bool {
	return password != "" && password == s.Password
}
