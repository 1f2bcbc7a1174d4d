package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/polkiloo/labtracker/internal/config"
	"github.com/polkiloo/labtracker/internal/domain/model"
	testhelpers "github.com/polkiloo/labtracker/internal/test"
	"github.com/polkiloo/labtracker/internal/worker"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newTestListener(facade *LabFacade) *worker.ChangeListener {
	return worker.NewChangeListener(&testhelpers.ChangeFeedStub{Block: true}, facade, 10*time.Millisecond, time.Hour, discardLogger())
}

func TestNewHTTPServer(t *testing.T) {
	cfg := &config.Config{RunAddress: ":9999"}
	router := gin.New()
	server := newHTTPServer(serverParams{Config: cfg, Router: router})
	if server.Addr != ":9999" {
		t.Fatalf("expected address :9999, got %q", server.Addr)
	}
	if server.Handler != router {
		t.Fatalf("expected handler to be router")
	}
}

func TestNewChangeListenerUsesConfig(t *testing.T) {
	facade, _, _ := newFacade(t)
	l := newChangeListener(workerParams{
		Feed:   &testhelpers.ChangeFeedStub{},
		Facade: facade,
		Config: &config.Config{FeedRetryInterval: 3 * time.Second, ViewIdleTimeout: time.Minute},
		Logger: discardLogger(),
	})
	if l == nil {
		t.Fatal("expected change listener instance")
	}
}

func TestNewLabFacadeUsesConfig(t *testing.T) {
	facade := newLabFacade(facadeParams{Config: &config.Config{ViewIdleTimeout: 42 * time.Second}, Logger: discardLogger()})
	if facade.viewIdle != 42*time.Second {
		t.Fatalf("unexpected idle timeout %v", facade.viewIdle)
	}
}

func TestRegisterLifecycleStartStop(t *testing.T) {
	recorder := &testhelpers.LifecycleRecorder{}
	shutdowner := &testhelpers.ShutdownerStub{Called: make(chan struct{}, 1)}
	server := &http.Server{Addr: "127.0.0.1:0", Handler: http.NewServeMux()}
	facade, _, registry := newFacade(t, labOrder("a", "Ethanol"))
	registry.Replace(nil)

	registerLifecycle(lifecycleParams{
		Lifecycle:  recorder,
		Shutdowner: shutdowner,
		Logger:     discardLogger(),
		Server:     server,
		Worker:     newTestListener(facade),
		Facade:     facade,
		Config:     &config.Config{ShutdownTimeout: 100 * time.Millisecond},
	})

	if len(recorder.Hooks) != 1 {
		t.Fatalf("expected one hook registered, got %d", len(recorder.Hooks))
	}

	hook := recorder.Hooks[0]
	if err := hook.OnStart(context.Background()); err != nil {
		t.Fatalf("on start failed: %v", err)
	}
	if len(registry.Snapshot()) != 1 {
		t.Fatalf("expected orders to be loaded on start")
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = hook.OnStop(context.Background())
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected on stop to finish")
	}
}

func TestRegisterLifecycleFailsWhenOrdersCannotLoad(t *testing.T) {
	recorder := &testhelpers.LifecycleRecorder{}
	facade, repo, _ := newFacade(t)
	repo.ListFn = func(context.Context) ([]model.Order, error) { return nil, errors.New("db down") }

	registerLifecycle(lifecycleParams{
		Lifecycle:  recorder,
		Shutdowner: &testhelpers.ShutdownerStub{},
		Logger:     discardLogger(),
		Server:     &http.Server{Addr: "127.0.0.1:0"},
		Worker:     newTestListener(facade),
		Facade:     facade,
		Config:     &config.Config{ShutdownTimeout: time.Second},
	})

	if err := recorder.Hooks[0].OnStart(context.Background()); err == nil {
		t.Fatal("expected start to fail")
	}
}

func TestRegisterLifecycleShutdownOnServerError(t *testing.T) {
	recorder := &testhelpers.LifecycleRecorder{}
	shutdowner := &testhelpers.ShutdownerStub{Called: make(chan struct{}, 1)}
	facade, _, _ := newFacade(t)

	registerLifecycle(lifecycleParams{
		Lifecycle:  recorder,
		Shutdowner: shutdowner,
		Logger:     discardLogger(),
		Server:     &http.Server{Addr: "bad addr"},
		Worker:     newTestListener(facade),
		Facade:     facade,
		Config:     &config.Config{ShutdownTimeout: time.Second},
	})

	hook := recorder.Hooks[0]
	if err := hook.OnStart(context.Background()); err != nil {
		t.Fatalf("on start returned error: %v", err)
	}

	select {
	case <-shutdowner.Called:
	case <-time.After(time.Second):
		t.Fatal("expected shutdown to be triggered on server error")
	}

	_ = hook.OnStop(context.Background())
}

func TestLifecycleRecorderAppend(t *testing.T) {
	recorder := &testhelpers.LifecycleRecorder{}
	recorder.Append(fx.Hook{})
	if len(recorder.Hooks) != 1 {
		t.Fatalf("expected hook to be appended")
	}
}

func TestShutdownerStub(t *testing.T) {
	shutdowner := &testhelpers.ShutdownerStub{Called: make(chan struct{}, 1)}
	if err := shutdowner.Shutdown(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	select {
	case <-shutdowner.Called:
	default:
		t.Fatal("expected shutdown notification")
	}
}
