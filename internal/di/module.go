package di

import (
	"go.uber.org/fx"

	"github.com/polkiloo/labtracker/internal/app"
	"github.com/polkiloo/labtracker/internal/config"
	"github.com/polkiloo/labtracker/internal/feed"
	"github.com/polkiloo/labtracker/internal/logger"
	"github.com/polkiloo/labtracker/internal/pkg/auth"
	"github.com/polkiloo/labtracker/internal/server/http/router"
	"github.com/polkiloo/labtracker/internal/state"
	"github.com/polkiloo/labtracker/internal/storage/postgres"
	"github.com/polkiloo/labtracker/internal/usecase"
)

func Module(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.Module,
		logger.Module,
		auth.Module,
		postgres.Module,
		usecase.Module,
		state.Module,
		feed.Module,
		router.Module,
		app.Module,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}
