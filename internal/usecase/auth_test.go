package usecase

import (
	"errors"
	"testing"

	domainErrors "github.com/polkiloo/labtracker/internal/domain/errors"
	pkgAuth "github.com/polkiloo/labtracker/internal/pkg/auth"
	testhelpers "github.com/polkiloo/labtracker/internal/test"
)

func TestNewAuthUseCaseRequiresPassword(t *testing.T) {
	if _, err := NewAuthUseCase("", testhelpers.HasherStub{}, testhelpers.StrategyStub{}); !errors.Is(err, domainErrors.ErrInvalidPassword) {
		t.Fatalf("expected invalid password, got %v", err)
	}

	hasher := testhelpers.HasherStub{HashFn: func(string) (string, error) { return "", errors.New("boom") }}
	if _, err := NewAuthUseCase("pipette", hasher, testhelpers.StrategyStub{}); err == nil {
		t.Fatal("expected hash error")
	}
}

func TestAuthUseCaseLogin(t *testing.T) {
	uc, err := NewAuthUseCase("pipette", testhelpers.HasherStub{}, testhelpers.StrategyStub{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := uc.Login("wrong"); !errors.Is(err, domainErrors.ErrInvalidPassword) {
		t.Fatalf("expected invalid password, got %v", err)
	}
	if _, err := uc.Login(""); !errors.Is(err, domainErrors.ErrInvalidPassword) {
		t.Fatalf("expected invalid password for empty input, got %v", err)
	}

	token, err := uc.Login("pipette")
	if err != nil {
		t.Fatalf("login returned error: %v", err)
	}
	if token != "token-"+pkgAuth.SessionSubject {
		t.Fatalf("unexpected token %q", token)
	}
}

func TestAuthUseCaseVerifyPassword(t *testing.T) {
	uc, err := NewAuthUseCase("pipette", testhelpers.HasherStub{}, testhelpers.StrategyStub{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !uc.VerifyPassword("pipette") {
		t.Fatal("expected password to match")
	}
	if uc.VerifyPassword("Pipette") {
		t.Fatal("password comparison must be exact")
	}
}

func TestAuthUseCaseParseToken(t *testing.T) {
	uc, err := NewAuthUseCase("pipette", testhelpers.HasherStub{}, testhelpers.StrategyStub{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := uc.ParseToken("token-" + pkgAuth.SessionSubject); err != nil {
		t.Fatalf("expected valid token, got %v", err)
	}
	for _, token := range []string{"", "garbage", "token-someone"} {
		if err := uc.ParseToken(token); !errors.Is(err, pkgAuth.ErrInvalidToken) {
			t.Fatalf("expected invalid token for %q, got %v", token, err)
		}
	}
}

func TestAuthUseCaseWithRealPrimitives(t *testing.T) {
	uc, err := NewAuthUseCase("pipette", pkgAuth.NewBcryptHasher(4), pkgAuth.NewHMACStrategy("secret"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	token, err := uc.Login("pipette")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := uc.ParseToken(token); err != nil {
		t.Fatalf("token must round trip: %v", err)
	}
}
