package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/polkiloo/labtracker/internal/config"
	"github.com/polkiloo/labtracker/internal/domain/repository"
	"github.com/polkiloo/labtracker/internal/feed"
	"github.com/polkiloo/labtracker/internal/state"
	"github.com/polkiloo/labtracker/internal/usecase"
	"github.com/polkiloo/labtracker/internal/worker"
)

// Module wires application services, runtime components, and lifecycle hooks.
var Module = fx.Options(
	fx.Provide(
		newLabFacade,
		newHTTPServer,
		newChangeListener,
	),
	fx.Invoke(registerLifecycle),
)

type facadeParams struct {
	fx.In

	Config   *config.Config
	Logger   *slog.Logger
	Auth     *usecase.AuthUseCase
	Orders   *usecase.OrderUseCase
	Imports  *usecase.ImportUseCase
	Registry *state.Registry
	Hub      *feed.Hub
	Health   repository.HealthChecker
}

func newLabFacade(p facadeParams) *LabFacade {
	return NewLabFacade(FacadeDeps{
		Auth:     p.Auth,
		Orders:   p.Orders,
		Imports:  p.Imports,
		Registry: p.Registry,
		Hub:      p.Hub,
		Health:   p.Health,
		ViewIdle: p.Config.ViewIdleTimeout,
		Logger:   p.Logger,
	})
}

type serverParams struct {
	fx.In

	Config *config.Config
	Router *gin.Engine
}

func newHTTPServer(p serverParams) *http.Server {
	return &http.Server{
		Addr:    p.Config.RunAddress,
		Handler: p.Router,
	}
}

type workerParams struct {
	fx.In

	Feed   repository.ChangeFeed
	Facade *LabFacade
	Config *config.Config
	Logger *slog.Logger
}

func newChangeListener(p workerParams) *worker.ChangeListener {
	sweep := p.Config.ViewIdleTimeout / 2
	return worker.NewChangeListener(p.Feed, p.Facade, p.Config.FeedRetryInterval, sweep, p.Logger)
}

type lifecycleParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	Logger     *slog.Logger
	Server     *http.Server
	Worker     *worker.ChangeListener
	Facade     *LabFacade
	Config     *config.Config
}

func registerLifecycle(p lifecycleParams) {
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			p.Logger.Info("starting labtracker", slog.String("addr", p.Server.Addr))
			if err := p.Facade.Reload(ctx); err != nil {
				return fmt.Errorf("load orders: %w", err)
			}
			// the listener outlives the start context
			p.Worker.Start(context.Background())
			go func() {
				if err := p.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					p.Logger.Error("http server terminated", slog.String("error", err.Error()))
					_ = p.Shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			p.Worker.Stop()

			shutdownCtx := ctx
			cancel := func() {}
			if _, ok := ctx.Deadline(); !ok {
				shutdownCtx, cancel = context.WithTimeout(ctx, p.Config.ShutdownTimeout)
			}
			defer cancel()

			if err := p.Server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			p.Logger.Info("labtracker stopped")
			return nil
		},
	})
}
