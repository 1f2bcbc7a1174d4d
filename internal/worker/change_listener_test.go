package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/polkiloo/labtracker/internal/domain/model"
	testhelpers "github.com/polkiloo/labtracker/internal/test"
)

type facadeStub struct {
	mu      sync.Mutex
	events  []model.ChangeEvent
	reloads int
	sweeps  int
}

func (f *facadeStub) ApplyRemoteChange(ev model.ChangeEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
}

func (f *facadeStub) Reload(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reloads++
	return nil
}

func (f *facadeStub) SweepIdleViews() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sweeps++
	return 1
}

func (f *facadeStub) snapshot() (int, int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events), f.reloads, f.sweeps
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestNewChangeListenerDefaults(t *testing.T) {
	l := NewChangeListener(&testhelpers.ChangeFeedStub{}, &facadeStub{}, 0, 0, discardLogger())
	if l.retryInterval != time.Second {
		t.Fatalf("expected retry default to 1s, got %v", l.retryInterval)
	}
	if l.sweepInterval != time.Minute {
		t.Fatalf("expected sweep default to 1m, got %v", l.sweepInterval)
	}
}

func TestChangeListenerDeliversEvents(t *testing.T) {
	feed := &testhelpers.ChangeFeedStub{
		Events: []model.ChangeEvent{model.DeleteEvent{ID: "a"}, model.DeleteEvent{ID: "b"}},
		Block:  true,
	}
	facade := &facadeStub{}
	l := NewChangeListener(feed, facade, time.Hour, time.Hour, discardLogger())

	l.Start(context.Background())
	deadline := time.After(time.Second)
	for {
		if n, _, _ := facade.snapshot(); n == 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("events were not delivered")
		case <-time.After(5 * time.Millisecond):
		}
	}
	l.Stop()

	if _, reloads, _ := facade.snapshot(); reloads != 0 {
		t.Fatalf("first subscription must not reload, got %d", reloads)
	}
}

func TestChangeListenerResubscribesAndReloads(t *testing.T) {
	feed := &testhelpers.ChangeFeedStub{Err: errors.New("connection lost"), Calls: make(chan struct{}, 8)}
	facade := &facadeStub{}
	l := NewChangeListener(feed, facade, 5*time.Millisecond, time.Hour, discardLogger())

	l.Start(context.Background())
	for i := 0; i < 3; i++ {
		select {
		case <-feed.Calls:
		case <-time.After(time.Second):
			t.Fatalf("listen attempt %d did not happen", i+1)
		}
	}
	l.Stop()

	if _, reloads, _ := facade.snapshot(); reloads < 2 {
		t.Fatalf("expected reload before each resubscription, got %d", reloads)
	}
}

func TestChangeListenerSweepsViews(t *testing.T) {
	feed := &testhelpers.ChangeFeedStub{Block: true}
	facade := &facadeStub{}
	l := NewChangeListener(feed, facade, time.Hour, 5*time.Millisecond, discardLogger())

	l.Start(context.Background())
	deadline := time.After(time.Second)
	for {
		if _, _, sweeps := facade.snapshot(); sweeps > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("sweep did not run")
		case <-time.After(5 * time.Millisecond):
		}
	}
	l.Stop()
}

func TestChangeListenerStopIsIdempotent(t *testing.T) {
	l := NewChangeListener(&testhelpers.ChangeFeedStub{Block: true}, &facadeStub{}, time.Hour, time.Hour, discardLogger())
	l.Stop()
	l.Start(context.Background())
	l.Stop()
	l.Stop()
}
