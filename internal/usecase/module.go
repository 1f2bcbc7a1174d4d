package usecase

import (
	"go.uber.org/fx"

	"github.com/polkiloo/labtracker/internal/config"
	pkgAuth "github.com/polkiloo/labtracker/internal/pkg/auth"
)

// Module provides core business use cases to the fx container.
var Module = fx.Provide(
	newAuthUseCase,
	NewOrderUseCase,
	NewImportUseCase,
)

type authParams struct {
	fx.In

	Config *config.Config
	Hasher pkgAuth.PasswordHasher
	Tokens pkgAuth.Strategy
}

func newAuthUseCase(p authParams) (*AuthUseCase, error) {
	return NewAuthUseCase(p.Config.LabPassword, p.Hasher, p.Tokens)
}
