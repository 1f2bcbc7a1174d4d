package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
)

var ErrInvalidToken = errors.New("invalid auth token")

// HMACStrategy implements auth token creation/verification using HMAC signatures.
// Tokens carry no expiry; the session cookie lifetime bounds them.
type HMACStrategy struct {
	secret []byte
}

// NewHMACStrategy builds HMACStrategy with provided secret.
func NewHMACStrategy(secret string) *HMACStrategy {
	return &HMACStrategy{secret: []byte(secret)}
}

// IssueToken generates a signed token for the subject. The same subject and
// secret always yield the same token.
func (s *HMACStrategy) IssueToken(subject string) (string, error) {
	if subject == "" || strings.Contains(subject, ":") {
		return "", ErrInvalidToken
	}
	token := subject + ":" + s.sign(subject)
	return base64.RawURLEncoding.EncodeToString([]byte(token)), nil
}

// ParseToken validates token and returns the encoded subject.
func (s *HMACStrategy) ParseToken(token string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", ErrInvalidToken
	}

	subject, sig, ok := strings.Cut(string(raw), ":")
	if !ok || subject == "" {
		return "", ErrInvalidToken
	}

	if !hmac.Equal([]byte(s.sign(subject)), []byte(sig)) {
		return "", ErrInvalidToken
	}

	return subject, nil
}

func (s *HMACStrategy) Name() string {
	return "hmac"
}

func (s *HMACStrategy) sign(payload string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
