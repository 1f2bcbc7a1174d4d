package router

import (
	"go.uber.org/fx"

	"github.com/polkiloo/labtracker/internal/app"
	"github.com/polkiloo/labtracker/internal/server/http/handlers"
)

// Module registers HTTP router construction for fx runtime.
var Module = fx.Options(
	fx.Provide(func(f *app.LabFacade) handlers.LabFacade { return f }),
	fx.Provide(Setup),
)
